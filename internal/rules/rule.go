// internal/rules/rule.go
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

// Rule is a named predicate with a human-readable requirement message.
// Name is both the external identifier and the storage key.
type Rule struct {
	Name      types.RuleName
	Predicate Predicate
	Message   string
}

// NewRule builds a Rule.
func NewRule(name types.RuleName, predicate Predicate, message string) Rule {
	return Rule{Name: name, Predicate: predicate, Message: message}
}

// Evaluate reports whether doc satisfies the rule's predicate.
func (r Rule) Evaluate(doc any) (bool, error) {
	return Evaluate(r.Predicate, doc)
}

// Clone returns a deep copy of r.
func (r Rule) Clone() Rule {
	return Rule{Name: r.Name, Predicate: r.Predicate.Clone(), Message: r.Message}
}

// Validate rejects rules that cannot be stored or evaluated.
func (r Rule) Validate() error {
	if r.Name == "" {
		return types.ErrEmptyRuleName
	}
	if err := r.Predicate.Validate(); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return nil
}

type ruleWire struct {
	Name      string    `json:"name"`
	Predicate Predicate `json:"predicate"`
	Message   string    `json:"message"`
}

// MarshalJSON implements json.Marshaler.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleWire{Name: r.Name, Predicate: r.Predicate, Message: r.Message})
}

// UnmarshalJSON requires exactly name, predicate and message.
func (r *Rule) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "rule")
	if err != nil {
		return err
	}
	if err := requireExactKeys(fields, "rule", "name", "predicate", "message"); err != nil {
		return err
	}

	var decoded Rule
	if isNull(fields["name"]) || json.Unmarshal(fields["name"], &decoded.Name) != nil {
		return fmt.Errorf("%w: rule name must be a string", types.ErrInvalidPredicate)
	}
	if isNull(fields["message"]) || json.Unmarshal(fields["message"], &decoded.Message) != nil {
		return fmt.Errorf("%w: rule message must be a string", types.ErrInvalidPredicate)
	}
	if err := json.Unmarshal(fields["predicate"], &decoded.Predicate); err != nil {
		return err
	}

	*r = decoded
	return nil
}

// ParseRule decodes one rule from JSON.
func ParseRule(data []byte) (Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// internal/rules/operator.go
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * Comparison operators.
 *
 * Closed set of seven operators. Each has a canonical wire name and a
 * symbolic alias; decoding accepts either, encoding always emits the
 * canonical name so stored rules round-trip to one spelling.
 *
 *   Canonical      Alias
 *   equal          ==
 *   notEqual       !=
 *   greater        >
 *   less           <
 *   greaterEqual   >=
 *   lessEqual      <=
 *   contains       in
 */

// Operator identifies the comparison applied by a raw predicate.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

var operatorNames = map[Operator]string{
	OpEqual:        "equal",
	OpNotEqual:     "notEqual",
	OpGreater:      "greater",
	OpLess:         "less",
	OpGreaterEqual: "greaterEqual",
	OpLessEqual:    "lessEqual",
	OpContains:     "contains",
}

// operatorTokens maps every accepted wire token to its operator.
var operatorTokens = map[string]Operator{
	"equal":        OpEqual,
	"==":           OpEqual,
	"notEqual":     OpNotEqual,
	"!=":           OpNotEqual,
	"greater":      OpGreater,
	">":            OpGreater,
	"less":         OpLess,
	"<":            OpLess,
	"greaterEqual": OpGreaterEqual,
	">=":           OpGreaterEqual,
	"lessEqual":    OpLessEqual,
	"<=":           OpLessEqual,
	"contains":     OpContains,
	"in":           OpContains,
}

// ParseOperator resolves a canonical name or symbolic alias.
func ParseOperator(token string) (Operator, error) {
	op, ok := operatorTokens[token]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidOperator, token)
	}
	return op, nil
}

// String returns the canonical wire name.
func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// GoString renders the operator the way error messages name it.
func (op Operator) GoString() string {
	switch op {
	case OpEqual:
		return "Equal"
	case OpNotEqual:
		return "NotEqual"
	case OpGreater:
		return "Greater"
	case OpLess:
		return "Less"
	case OpGreaterEqual:
		return "GreaterEqual"
	case OpLessEqual:
		return "LessEqual"
	case OpContains:
		return "Contains"
	default:
		return op.String()
	}
}

// Valid reports whether op is one of the seven operators.
func (op Operator) Valid() bool {
	_, ok := operatorNames[op]
	return ok
}

// IsNumeric reports whether op requires numeric operands.
func (op Operator) IsNumeric() bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (op Operator) MarshalJSON() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidOperator, int(op))
	}
	return json.Marshal(op.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (op *Operator) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("%w: operator must be a string", types.ErrInvalidOperator)
	}
	parsed, err := ParseOperator(token)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

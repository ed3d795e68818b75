// internal/rules/predicate.go
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * Predicate model and wire codec.
 *
 * A Predicate is either a raw field comparison or a boolean combination of
 * child predicates. The wire format is untagged: the variant is inferred from
 * which keys an object carries.
 *
 *   Raw:      {"path": "a.b", "operator": "==", "value": 10}
 *   Not:      {"not": <predicate>}
 *   Any/All/None: {"any": [<predicate>, ...]}
 *
 * Decoding dispatches on shape rather than trial-and-error: an object holding
 * any raw key must hold exactly the three raw keys; otherwise it must hold
 * exactly one compound key. Unknown keys fail at every level.
 *
 * Values keep number precision (json.Number) so integer literals survive a
 * decode/encode round trip unchanged.
 */

// CompoundKind selects the boolean combinator of a CompoundPredicate.
type CompoundKind int

const (
	CompoundNot CompoundKind = iota + 1
	CompoundAny
	CompoundAll
	CompoundNone
)

var compoundKeys = map[string]CompoundKind{
	"not":  CompoundNot,
	"any":  CompoundAny,
	"all":  CompoundAll,
	"none": CompoundNone,
}

// String returns the wire key of the combinator.
func (k CompoundKind) String() string {
	switch k {
	case CompoundNot:
		return "not"
	case CompoundAny:
		return "any"
	case CompoundAll:
		return "all"
	case CompoundNone:
		return "none"
	default:
		return fmt.Sprintf("CompoundKind(%d)", int(k))
	}
}

// RawPredicate compares the value found at Path against Value.
type RawPredicate struct {
	Path     string
	Operator Operator
	Value    any
}

// CompoundPredicate combines child predicates.
// Not uses Operand; Any, All and None use Operands.
type CompoundPredicate struct {
	Kind     CompoundKind
	Operand  *Predicate
	Operands []Predicate
}

// Predicate is exactly one of Raw or Compound.
type Predicate struct {
	Raw      *RawPredicate
	Compound *CompoundPredicate
}

// Field builds a raw predicate.
func Field(path string, op Operator, value any) Predicate {
	return Predicate{Raw: &RawPredicate{Path: path, Operator: op, Value: value}}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return Predicate{Compound: &CompoundPredicate{Kind: CompoundNot, Operand: &p}}
}

// Any is true when at least one child is true.
func Any(ps ...Predicate) Predicate {
	return compound(CompoundAny, ps)
}

// All is true when every child is true.
func All(ps ...Predicate) Predicate {
	return compound(CompoundAll, ps)
}

// None is true when no child is true.
func None(ps ...Predicate) Predicate {
	return compound(CompoundNone, ps)
}

func compound(kind CompoundKind, ps []Predicate) Predicate {
	operands := make([]Predicate, len(ps))
	copy(operands, ps)
	return Predicate{Compound: &CompoundPredicate{Kind: kind, Operands: operands}}
}

// IsZero reports whether p carries neither variant.
func (p Predicate) IsZero() bool {
	return p.Raw == nil && p.Compound == nil
}

// Validate checks structural well-formedness of a programmatically built tree.
// Decoded predicates are always valid.
func (p Predicate) Validate() error {
	switch {
	case p.Raw != nil && p.Compound != nil:
		return fmt.Errorf("%w: both raw and compound forms set", types.ErrInvalidPredicate)
	case p.Raw != nil:
		if !p.Raw.Operator.Valid() {
			return fmt.Errorf("%w: path %q", types.ErrInvalidOperator, p.Raw.Path)
		}
		return nil
	case p.Compound != nil:
		return p.Compound.validate()
	default:
		return fmt.Errorf("%w: empty predicate", types.ErrInvalidPredicate)
	}
}

func (c *CompoundPredicate) validate() error {
	switch c.Kind {
	case CompoundNot:
		if c.Operand == nil {
			return fmt.Errorf("%w: not without operand", types.ErrInvalidPredicate)
		}
		return c.Operand.Validate()
	case CompoundAny, CompoundAll, CompoundNone:
		for i := range c.Operands {
			if err := c.Operands[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown compound kind %d", types.ErrInvalidPredicate, int(c.Kind))
	}
}

// Clone returns a deep copy sharing no mutable state with p.
func (p Predicate) Clone() Predicate {
	var out Predicate
	if p.Raw != nil {
		out.Raw = &RawPredicate{
			Path:     p.Raw.Path,
			Operator: p.Raw.Operator,
			Value:    cloneValue(p.Raw.Value),
		}
	}
	if p.Compound != nil {
		c := &CompoundPredicate{Kind: p.Compound.Kind}
		if p.Compound.Operand != nil {
			operand := p.Compound.Operand.Clone()
			c.Operand = &operand
		}
		if p.Compound.Operands != nil {
			c.Operands = make([]Predicate, len(p.Compound.Operands))
			for i, child := range p.Compound.Operands {
				c.Operands[i] = child.Clone()
			}
		}
		out.Compound = c
	}
	return out
}

// String renders the predicate as compact JSON for logs.
func (p Predicate) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("<invalid predicate: %v>", err)
	}
	return string(data)
}

type rawWire struct {
	Path     string   `json:"path"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (p Predicate) MarshalJSON() ([]byte, error) {
	switch {
	case p.Raw != nil && p.Compound == nil:
		return p.Raw.MarshalJSON()
	case p.Compound != nil && p.Raw == nil:
		return p.Compound.MarshalJSON()
	default:
		return nil, p.Validate()
	}
}

// MarshalJSON implements json.Marshaler.
func (r RawPredicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawWire{Path: r.Path, Operator: r.Operator, Value: r.Value})
}

// MarshalJSON implements json.Marshaler.
func (c CompoundPredicate) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CompoundNot:
		if c.Operand == nil {
			return nil, fmt.Errorf("%w: not without operand", types.ErrInvalidPredicate)
		}
		return json.Marshal(map[string]Predicate{"not": *c.Operand})
	case CompoundAny, CompoundAll, CompoundNone:
		operands := c.Operands
		if operands == nil {
			operands = []Predicate{}
		}
		return json.Marshal(map[string][]Predicate{c.Kind.String(): operands})
	default:
		return nil, fmt.Errorf("%w: unknown compound kind %d", types.ErrInvalidPredicate, int(c.Kind))
	}
}

// UnmarshalJSON implements json.Unmarshaler with shape dispatch.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "predicate")
	if err != nil {
		return err
	}

	if hasAnyKey(fields, "path", "operator", "value") {
		raw, err := decodeRaw(fields)
		if err != nil {
			return err
		}
		*p = Predicate{Raw: raw}
		return nil
	}

	c, err := decodeCompound(fields)
	if err != nil {
		return err
	}
	*p = Predicate{Compound: c}
	return nil
}

// UnmarshalJSON accepts only the raw shape.
func (r *RawPredicate) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "raw predicate")
	if err != nil {
		return err
	}
	raw, err := decodeRaw(fields)
	if err != nil {
		return err
	}
	*r = *raw
	return nil
}

// UnmarshalJSON accepts only a compound shape.
func (c *CompoundPredicate) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "compound predicate")
	if err != nil {
		return err
	}
	decoded, err := decodeCompound(fields)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

func decodeRaw(fields map[string]json.RawMessage) (*RawPredicate, error) {
	if err := requireExactKeys(fields, "raw predicate", "path", "operator", "value"); err != nil {
		return nil, err
	}

	var path string
	if isNull(fields["path"]) {
		return nil, fmt.Errorf("%w: path must be a string", types.ErrInvalidPredicate)
	}
	if err := json.Unmarshal(fields["path"], &path); err != nil {
		return nil, fmt.Errorf("%w: path must be a string", types.ErrInvalidPredicate)
	}

	var op Operator
	if isNull(fields["operator"]) {
		return nil, fmt.Errorf("%w: operator must be a string", types.ErrInvalidOperator)
	}
	if err := json.Unmarshal(fields["operator"], &op); err != nil {
		return nil, err
	}

	value, err := types.DecodeDocument(fields["value"])
	if err != nil {
		return nil, fmt.Errorf("%w: value: %v", types.ErrInvalidPredicate, err)
	}

	return &RawPredicate{Path: path, Operator: op, Value: value}, nil
}

func decodeCompound(fields map[string]json.RawMessage) (*CompoundPredicate, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty object matches no predicate shape", types.ErrInvalidPredicate)
	}

	var (
		key  string
		kind CompoundKind
	)
	for _, name := range sortedKeys(fields) {
		k, ok := compoundKeys[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", types.ErrInvalidPredicate, name)
		}
		if key != "" {
			return nil, fmt.Errorf("%w: fields %q and %q are mutually exclusive", types.ErrInvalidPredicate, key, name)
		}
		key, kind = name, k
	}

	raw := fields[key]
	if isNull(raw) {
		return nil, fmt.Errorf("%w: %q must not be null", types.ErrInvalidPredicate, key)
	}

	if kind == CompoundNot {
		var operand Predicate
		if err := json.Unmarshal(raw, &operand); err != nil {
			return nil, err
		}
		return &CompoundPredicate{Kind: kind, Operand: &operand}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %q must be an array of predicates", types.ErrInvalidPredicate, key)
	}
	operands := make([]Predicate, len(elems))
	for i, elem := range elems {
		if err := json.Unmarshal(elem, &operands[i]); err != nil {
			return nil, err
		}
	}
	return &CompoundPredicate{Kind: kind, Operands: operands}, nil
}

// decodeObject parses data as a JSON object keeping exact key spelling.
// encoding/json struct decoding matches keys case-insensitively, which would
// let "Path" through as "path". A key repeated within one object is rejected.
func decodeObject(data []byte, what string) (map[string]json.RawMessage, error) {
	if isNull(data) {
		return nil, fmt.Errorf("%w: %s must be an object, got null", types.ErrInvalidPredicate, what)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if delim, ok := tok.(json.Delim); err != nil || !ok || delim != '{' {
		return nil, fmt.Errorf("%w: %s must be an object", types.ErrInvalidPredicate, what)
	}

	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidPredicate, what, err)
		}
		key, _ := tok.(string)
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("%w: %s has duplicate field %q", types.ErrInvalidPredicate, what, key)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidPredicate, what, err)
		}
		fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidPredicate, what, err)
	}
	return fields, nil
}

func requireExactKeys(fields map[string]json.RawMessage, what string, keys ...string) error {
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
		if _, ok := fields[k]; !ok {
			return fmt.Errorf("%w: %s missing field %q", types.ErrInvalidPredicate, what, k)
		}
	}
	for _, name := range sortedKeys(fields) {
		if !allowed[name] {
			return fmt.Errorf("%w: %s has unknown field %q (expected %s)", types.ErrInvalidPredicate, what, name, strings.Join(keys, ", "))
		}
	}
	return nil
}

func hasAnyKey(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

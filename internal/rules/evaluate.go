// internal/rules/evaluate.go
package rules

import (
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * Predicate evaluation.
 *
 * Recursive descent with explicit error returns. Compound nodes visit
 * children in order and stop at the first child that decides the result or
 * fails; later children are never evaluated, so an error in a child past the
 * deciding one is not reported.
 *
 *   All([])  = true
 *   Any([])  = false
 *   None([]) = true
 */

// Evaluate reports whether doc satisfies p.
func Evaluate(p Predicate, doc any) (bool, error) {
	switch {
	case p.Raw != nil && p.Compound == nil:
		return p.Raw.Evaluate(doc)
	case p.Compound != nil && p.Raw == nil:
		return p.Compound.Evaluate(doc)
	default:
		return false, p.Validate()
	}
}

// Evaluate reports whether doc satisfies p.
func (p Predicate) Evaluate(doc any) (bool, error) {
	return Evaluate(p, doc)
}

// Evaluate resolves Path in doc and applies the operator.
func (r *RawPredicate) Evaluate(doc any) (bool, error) {
	data, err := FollowPath(r.Path, doc)
	if err != nil {
		return false, err
	}
	return Compare(r.Operator, data, r.Value)
}

// Evaluate combines children according to Kind.
func (c *CompoundPredicate) Evaluate(doc any) (bool, error) {
	switch c.Kind {
	case CompoundNot:
		if c.Operand == nil {
			return false, fmt.Errorf("%w: not without operand", types.ErrInvalidPredicate)
		}
		ok, err := Evaluate(*c.Operand, doc)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case CompoundAny:
		for i := range c.Operands {
			ok, err := Evaluate(c.Operands[i], doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case CompoundAll:
		for i := range c.Operands {
			ok, err := Evaluate(c.Operands[i], doc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case CompoundNone:
		for i := range c.Operands {
			ok, err := Evaluate(c.Operands[i], doc)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown compound kind %d", types.ErrInvalidPredicate, int(c.Kind))
	}
}

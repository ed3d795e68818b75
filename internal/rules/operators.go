// internal/rules/operators.go
package rules

import (
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * Operator semantics.
 *
 *   Equal, NotEqual   structural equality; never fail
 *   Greater..LessEqual both sides must be numbers, compared as float64
 *   Contains          data must be an array holding an element equal to value
 *
 * Type failures carry the JSON type of data as Lhs and of value as Rhs.
 */

// Compare applies op to the resolved document value and the predicate literal.
func Compare(op Operator, data, value any) (bool, error) {
	switch op {
	case OpEqual:
		return deepEqual(data, value), nil
	case OpNotEqual:
		return !deepEqual(data, value), nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return compareNumeric(op, data, value)
	case OpContains:
		elems, ok := asArray(data)
		if !ok {
			return false, mismatch(op, data, value)
		}
		for _, elem := range elems {
			if deepEqual(elem, value) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %d", types.ErrInvalidOperator, int(op))
	}
}

func compareNumeric(op Operator, data, value any) (bool, error) {
	lhs, lok := toFloat64(data)
	rhs, rok := toFloat64(value)
	if !lok || !rok {
		return false, mismatch(op, data, value)
	}

	switch op {
	case OpGreater:
		return lhs > rhs, nil
	case OpLess:
		return lhs < rhs, nil
	case OpGreaterEqual:
		return lhs >= rhs, nil
	default:
		return lhs <= rhs, nil
	}
}

func mismatch(op Operator, data, value any) error {
	return &TypeMismatchError{Lhs: TypeName(data), Rhs: TypeName(value), Operator: op}
}

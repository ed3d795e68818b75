// internal/rules/errors.go
package rules

import (
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

// NotAnObjectError reports path traversal through a non-object node.
// Field is the segment being read, Kind the JSON type of the node.
type NotAnObjectError struct {
	Field string
	Kind  string
}

func (e *NotAnObjectError) Error() string {
	return fmt.Sprintf("cannot read field `%s` of type %s", e.Field, e.Kind)
}

// Is matches types.ErrNotAnObject.
func (e *NotAnObjectError) Is(target error) bool {
	return target == types.ErrNotAnObject
}

// TypeMismatchError reports an operator applied to unsupported operands.
// Lhs always names the resolved document value, Rhs the predicate literal.
type TypeMismatchError struct {
	Lhs      string
	Rhs      string
	Operator Operator
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %s with %s using operator %s", e.Lhs, e.Rhs, e.Operator.GoString())
}

// Is matches types.ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == types.ErrTypeMismatch
}

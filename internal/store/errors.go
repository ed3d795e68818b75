package store

import (
	"errors"
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

// ErrUnknown is returned by every operation once the store is poisoned.
var ErrUnknown = fmt.Errorf("an unknown error occurred: %w", types.ErrStorePoisoned)

// NoSuchRuleError reports a lookup of an absent rule id.
type NoSuchRuleError struct {
	ID types.RuleName
}

func (e *NoSuchRuleError) Error() string {
	return fmt.Sprintf("a rule with id %s does not exist", e.ID)
}

// Is matches types.ErrNoSuchRule.
func (e *NoSuchRuleError) Is(target error) bool {
	return target == types.ErrNoSuchRule
}

// DuplicateError reports a create whose name is already stored.
type DuplicateError struct {
	ID types.RuleName
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a rule with id %s already exists", e.ID)
}

// Is matches types.ErrDuplicateRule.
func (e *DuplicateError) Is(target error) bool {
	return target == types.ErrDuplicateRule
}

// EvaluationFailureError reports a rule whose predicate failed to evaluate
// during a batch. Err is the evaluator error.
type EvaluationFailureError struct {
	ID  types.RuleName
	Err error
}

func (e *EvaluationFailureError) Error() string {
	return fmt.Sprintf("failed to evaluate rule %s: %v", e.ID, e.Err)
}

// Is matches types.ErrEvaluationFailed.
func (e *EvaluationFailureError) Is(target error) bool {
	return target == types.ErrEvaluationFailed
}

func (e *EvaluationFailureError) Unwrap() error {
	return e.Err
}

// IsUnknown reports whether err came from a poisoned store.
func IsUnknown(err error) bool {
	return errors.Is(err, types.ErrStorePoisoned)
}

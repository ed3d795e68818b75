package types

import "errors"

// Sentinel errors for rulekeeper operations.
// Structured error types in internal/rules and internal/store match these
// via errors.Is so transports can map outcomes without parsing messages.
var (
	// ErrNotAnObject indicates path traversal hit a value that is not an object.
	ErrNotAnObject = errors.New("value is not an object")

	// ErrTypeMismatch indicates an operator was applied to incompatible operand types.
	ErrTypeMismatch = errors.New("operand type mismatch")

	// ErrInvalidPredicate indicates a predicate document matched neither the raw
	// shape nor exactly one compound shape.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrInvalidOperator indicates an unknown operator token.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrNoSuchRule indicates a rule identifier is not present in the store.
	ErrNoSuchRule = errors.New("no such rule")

	// ErrDuplicateRule indicates a rule identifier is already present on create.
	ErrDuplicateRule = errors.New("duplicate rule")

	// ErrEvaluationFailed indicates a rule in a batch failed to evaluate.
	ErrEvaluationFailed = errors.New("rule evaluation failed")

	// ErrStorePoisoned indicates a prior panic left the store in an unknown state.
	ErrStorePoisoned = errors.New("rule store poisoned")

	// ErrBatchTooLarge indicates an evaluate request names more rules than MaxBatchSize allows.
	ErrBatchTooLarge = errors.New("too many rules in evaluation batch")

	// ErrEmptyRuleName indicates a rule without a name.
	ErrEmptyRuleName = errors.New("rule name is empty")
)

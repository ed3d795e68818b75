package store

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/rulekeeper/internal/types"
)

// Result is the outcome of one rule or of a whole batch.
type Result int

const (
	Pass Result = iota + 1
	Fail
)

// ResultOf maps a predicate outcome to a Result.
func ResultOf(ok bool) Result {
	if ok {
		return Pass
	}
	return Fail
}

func (r Result) String() string {
	switch r {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// MarshalJSON emits PASS or FAIL.
func (r Result) MarshalJSON() ([]byte, error) {
	if r != Pass && r != Fail {
		return nil, fmt.Errorf("invalid evaluation result %d", int(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts PASS or FAIL.
func (r *Result) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "PASS":
		*r = Pass
	case "FAIL":
		*r = Fail
	default:
		return fmt.Errorf("invalid evaluation result %q", s)
	}
	return nil
}

// Reason records the outcome of one rule in a batch.
type Reason struct {
	Rule        types.RuleName `json:"rule"`
	Requirement string         `json:"requirement"`
	Evaluation  Result         `json:"evaluation"`
}

// Evaluation is the outcome of a batch. Reasons follow request order.
type Evaluation struct {
	Result  Result   `json:"result"`
	Reasons []Reason `json:"reasons"`
}

// Passed reports whether every rule in the batch passed.
func (e Evaluation) Passed() bool {
	return e.Result == Pass
}

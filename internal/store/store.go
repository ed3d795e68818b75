// Package store holds the in-memory rule set and evaluates batches of rules
// against documents.
//
// A single sync.RWMutex guards the map. Reads (GetAll, Get, Evaluate) share
// the lock; writes (Create, Delete, Update) hold it exclusively. Rules are
// deep-copied on the way in and out so callers never alias stored state.
//
// A panic raised while the exclusive lock is held poisons the store: the
// panic propagates to the caller and every later operation returns
// ErrUnknown.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/types"
)

// Store is a concurrency-safe map of rule name to rule.
type Store struct {
	mu       sync.RWMutex
	rules    map[types.RuleName]rules.Rule
	poisoned atomic.Bool
}

// New builds a store holding initial. Duplicate names fail with
// *DuplicateError and no store is returned.
func New(initial ...rules.Rule) (*Store, error) {
	s := &Store{rules: make(map[types.RuleName]rules.Rule, len(initial))}
	for _, r := range initial {
		if _, exists := s.rules[r.Name]; exists {
			return nil, &DuplicateError{ID: r.Name}
		}
		s.rules[r.Name] = r.Clone()
	}
	return s, nil
}

// Len returns the number of stored rules, or 0 once poisoned.
func (s *Store) Len() int {
	n := 0
	_ = s.withRead(func(m map[types.RuleName]rules.Rule) error {
		n = len(m)
		return nil
	})
	return n
}

// GetAll returns copies of every rule sorted by name.
func (s *Store) GetAll() ([]rules.Rule, error) {
	var out []rules.Rule
	err := s.withRead(func(m map[types.RuleName]rules.Rule) error {
		out = make([]rules.Rule, 0, len(m))
		for _, r := range m {
			out = append(out, r.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a copy of the rule stored under id.
func (s *Store) Get(id types.RuleName) (rules.Rule, error) {
	var out rules.Rule
	err := s.withRead(func(m map[types.RuleName]rules.Rule) error {
		r, ok := m[id]
		if !ok {
			return &NoSuchRuleError{ID: id}
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

// Create stores rule under rule.Name. An existing rule with that name fails
// with *DuplicateError and leaves the store unchanged.
func (s *Store) Create(rule rules.Rule) error {
	stored := rule.Clone()
	return s.withWrite(func(m map[types.RuleName]rules.Rule) error {
		if _, exists := m[stored.Name]; exists {
			return &DuplicateError{ID: stored.Name}
		}
		m[stored.Name] = stored
		return nil
	})
}

// Delete removes id and returns the removed rule, or nil when id was absent.
func (s *Store) Delete(id types.RuleName) (*rules.Rule, error) {
	var removed *rules.Rule
	err := s.withWrite(func(m map[types.RuleName]rules.Rule) error {
		if r, ok := m[id]; ok {
			delete(m, id)
			removed = &r
		}
		return nil
	})
	return removed, err
}

// Update removes id and stores rule under rule.Name, returning the rule
// previously stored under id. When rule.Name differs from id the rule is
// renamed; an unrelated rule already stored under rule.Name is replaced.
func (s *Store) Update(id types.RuleName, rule rules.Rule) (*rules.Rule, error) {
	stored := rule.Clone()
	var previous *rules.Rule
	err := s.withWrite(func(m map[types.RuleName]rules.Rule) error {
		old, ok := m[id]
		if !ok {
			return &NoSuchRuleError{ID: id}
		}
		delete(m, id)
		m[stored.Name] = stored
		previous = &old
		return nil
	})
	return previous, err
}

// Evaluate runs the rules named by ids, in order, against doc under one read
// lock. The first missing id aborts with *NoSuchRuleError and the first
// evaluator error aborts with *EvaluationFailureError; no partial result is
// returned. The batch passes iff every rule passes, so an empty batch passes.
func (s *Store) Evaluate(ids []types.RuleName, doc types.Document) (Evaluation, error) {
	var out Evaluation
	err := s.withRead(func(m map[types.RuleName]rules.Rule) error {
		reasons := make([]Reason, 0, len(ids))
		passed := true
		for _, id := range ids {
			r, ok := m[id]
			if !ok {
				return &NoSuchRuleError{ID: id}
			}
			pass, err := r.Evaluate(doc)
			if err != nil {
				return &EvaluationFailureError{ID: id, Err: err}
			}
			reasons = append(reasons, Reason{
				Rule:        id,
				Requirement: r.Message,
				Evaluation:  ResultOf(pass),
			})
			passed = passed && pass
		}
		out = Evaluation{Result: ResultOf(passed), Reasons: reasons}
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	return out, nil
}

// Poisoned reports whether a prior panic under the write lock disabled the store.
func (s *Store) Poisoned() bool {
	return s.poisoned.Load()
}

func (s *Store) withRead(fn func(map[types.RuleName]rules.Rule) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poisoned.Load() {
		return ErrUnknown
	}
	return fn(s.rules)
}

func (s *Store) withWrite(fn func(map[types.RuleName]rules.Rule) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned.Load() {
		return ErrUnknown
	}

	completed := false
	defer func() {
		if !completed {
			s.poisoned.Store(true)
		}
	}()
	err := fn(s.rules)
	completed = true
	return err
}

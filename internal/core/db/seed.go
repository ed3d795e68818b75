package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solatis/rulekeeper/internal/rules"
)

// SeedRule is one row of the seed_rules table. Predicate holds the
// predicate's JSON wire form.
type SeedRule struct {
	Name      string `db:"name"`
	Predicate string `db:"predicate"`
	Message   string `db:"message"`
}

// Rule decodes the row into a rule.
func (s SeedRule) Rule() (rules.Rule, error) {
	var p rules.Predicate
	if err := json.Unmarshal([]byte(s.Predicate), &p); err != nil {
		return rules.Rule{}, fmt.Errorf("seed rule %q: %w", s.Name, err)
	}
	return rules.NewRule(s.Name, p, s.Message), nil
}

// SeedRuleFrom encodes a rule as a seed_rules row.
func SeedRuleFrom(r rules.Rule) (SeedRule, error) {
	predicate, err := json.Marshal(r.Predicate)
	if err != nil {
		return SeedRule{}, fmt.Errorf("seed rule %q: %w", r.Name, err)
	}
	return SeedRule{Name: r.Name, Predicate: string(predicate), Message: r.Message}, nil
}

// SeedRules loads every seed rule ordered by name. A row whose predicate
// does not decode fails the whole load.
func (q *Queries) SeedRules(ctx context.Context) ([]rules.Rule, error) {
	var rows []SeedRule
	if err := q.Select(ctx, "list-seed-rules", &rows); err != nil {
		return nil, fmt.Errorf("failed to list seed rules: %w", err)
	}

	out := make([]rules.Rule, 0, len(rows))
	for _, row := range rows {
		r, err := row.Rule()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CountSeedRules returns the number of stored seed rules.
func (q *Queries) CountSeedRules(ctx context.Context) (int, error) {
	var n int
	if err := q.Get(ctx, "count-seed-rules", &n); err != nil {
		return 0, fmt.Errorf("failed to count seed rules: %w", err)
	}
	return n, nil
}

// ReplaceSeedRules atomically replaces the seed table contents with rs.
func (q *Queries) ReplaceSeedRules(ctx context.Context, rs []rules.Rule) error {
	rows := make([]SeedRule, 0, len(rs))
	for _, r := range rs {
		row, err := SeedRuleFrom(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return q.Tx(ctx, func(exec func(string, ...any) error) error {
		if err := exec("delete-all-seed-rules"); err != nil {
			return err
		}
		for _, row := range rows {
			if err := exec("insert-seed-rule", row.Name, row.Predicate, row.Message); err != nil {
				return fmt.Errorf("seed rule %q: %w", row.Name, err)
			}
		}
		return nil
	})
}

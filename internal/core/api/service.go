// Package api exposes the rule store over HTTP (gin) and gRPC.
//
// Both transports go through Service, which enforces request limits, records
// metrics and logs store outcomes, so the two surfaces behave identically.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/core/config"
	"github.com/solatis/rulekeeper/internal/core/metrics"
	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/store"
	"github.com/solatis/rulekeeper/internal/types"
)

//go:generate mockgen -destination=mock_store_test.go -package=api . RuleStore

// RuleStore is the subset of *store.Store the transports need.
type RuleStore interface {
	GetAll() ([]rules.Rule, error)
	Get(id types.RuleName) (rules.Rule, error)
	Create(rule rules.Rule) error
	Delete(id types.RuleName) (*rules.Rule, error)
	Update(id types.RuleName, rule rules.Rule) (*rules.Rule, error)
	Evaluate(ids []types.RuleName, doc types.Document) (store.Evaluation, error)
	Len() int
	Poisoned() bool
}

// Operation names used in logs and metrics.
const (
	OpList     = "list"
	OpGet      = "get"
	OpCreate   = "create"
	OpDelete   = "delete"
	OpUpdate   = "update"
	OpEvaluate = "evaluate"
)

// Service is the transport-independent rule API.
type Service struct {
	store   RuleStore
	metrics *metrics.Collector
	logger  *zap.Logger
	cfg     *config.RuleAPIConfig
}

// NewService wires a store with metrics and logging. A nil collector
// disables metrics; a nil logger discards logs.
func NewService(s RuleStore, collector *metrics.Collector, logger *zap.Logger, cfg *config.RuleAPIConfig) (*Service, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &Service{store: s, metrics: collector, logger: logger, cfg: cfg}
	svc.metrics.SetRules(s.Len())
	return svc, nil
}

// Config returns the service limits.
func (s *Service) Config() *config.RuleAPIConfig {
	return s.cfg
}

// Healthy reports whether the store can still serve requests.
func (s *Service) Healthy() bool {
	return !s.store.Poisoned()
}

// ListRules returns every stored rule sorted by name.
func (s *Service) ListRules(ctx context.Context) (out []rules.Rule, err error) {
	defer s.observe(ctx, OpList, time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetAll()
}

// GetRule returns the rule stored under id.
func (s *Service) GetRule(ctx context.Context, id types.RuleName) (out rules.Rule, err error) {
	defer s.observe(ctx, OpGet, time.Now(), &err, zap.String("rule", id))
	if err := ctx.Err(); err != nil {
		return rules.Rule{}, err
	}
	return s.store.Get(id)
}

// CreateRule stores a new rule. Rules that fail Validate never reach the
// store.
func (s *Service) CreateRule(ctx context.Context, rule rules.Rule) (err error) {
	defer s.observe(ctx, OpCreate, time.Now(), &err, zap.String("rule", rule.Name))
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return badRequest(err)
	}
	if err := s.store.Create(rule); err != nil {
		return err
	}
	s.metrics.SetRules(s.store.Len())
	return nil
}

// DeleteRule removes id. Deleting an absent rule succeeds with nil.
func (s *Service) DeleteRule(ctx context.Context, id types.RuleName) (removed *rules.Rule, err error) {
	defer s.observe(ctx, OpDelete, time.Now(), &err, zap.String("rule", id))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	removed, err = s.store.Delete(id)
	if err != nil {
		return nil, err
	}
	s.metrics.SetRules(s.store.Len())
	return removed, nil
}

// UpdateRule replaces the rule stored under id, renaming it when
// rule.Name differs.
func (s *Service) UpdateRule(ctx context.Context, id types.RuleName, rule rules.Rule) (previous *rules.Rule, err error) {
	defer s.observe(ctx, OpUpdate, time.Now(), &err, zap.String("rule", id), zap.String("new_name", rule.Name))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, badRequest(err)
	}
	previous, err = s.store.Update(id, rule)
	if err != nil {
		return nil, err
	}
	if rule.Name != id {
		s.logger.Info("rule renamed", zap.String("from", id), zap.String("to", rule.Name))
	}
	s.metrics.SetRules(s.store.Len())
	return previous, nil
}

// Evaluate runs the named rules against doc.
func (s *Service) Evaluate(ctx context.Context, ids []types.RuleName, doc types.Document) (out store.Evaluation, err error) {
	defer s.observe(ctx, OpEvaluate, time.Now(), &err, zap.Int("rules", len(ids)))
	if len(ids) > s.cfg.MaxBatchSize {
		return store.Evaluation{}, fmt.Errorf("%w: %d rules, limit is %d", types.ErrBatchTooLarge, len(ids), s.cfg.MaxBatchSize)
	}
	if err := ctx.Err(); err != nil {
		return store.Evaluation{}, err
	}

	out, err = s.store.Evaluate(ids, doc)
	if err != nil {
		return store.Evaluation{}, err
	}
	for _, reason := range out.Reasons {
		s.metrics.ObserveRule(reason.Evaluation.String())
	}
	return out, nil
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error, fields ...zap.Field) {
	elapsed := time.Since(start)
	err := *errp
	outcome := outcomeOf(err)
	s.metrics.ObserveOperation(op, outcome, elapsed)

	fields = append(fields,
		zap.String("operation", op),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	)
	if id, ok := RequestIDFrom(ctx); ok {
		fields = append(fields, zap.String("request_id", string(id)))
	}

	switch {
	case err == nil:
		s.logger.Debug("rule operation", fields...)
	case outcome == metrics.OutcomeError:
		s.logger.Error("rule operation failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("rule operation rejected", append(fields, zap.Error(err))...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, types.ErrNoSuchRule):
		return metrics.OutcomeNotFound
	case errors.Is(err, types.ErrDuplicateRule),
		errors.Is(err, types.ErrEvaluationFailed),
		errors.Is(err, types.ErrBatchTooLarge),
		errors.Is(err, errBadRequest):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

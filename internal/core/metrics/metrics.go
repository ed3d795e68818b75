// Package metrics exposes Prometheus instrumentation for rule operations.
//
// Metrics:
//   - rulekeeper_operations_total: store operations by operation and outcome
//   - rulekeeper_operation_duration_seconds: store operation latency
//   - rulekeeper_rule_evaluations_total: rule outcomes inside batches by result;
//     rule names are client-chosen and are never used as labels
//   - rulekeeper_rules: number of stored rules
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Collector owns a registry and the rule service metrics registered on it.
type Collector struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	ruleEvaluations   *prometheus.CounterVec
	rules             prometheus.Gauge
}

// NewCollector registers rule service metrics on registry. A nil registry
// gets a fresh one with Go runtime and process collectors.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rulekeeper",
				Name:      "operations_total",
				Help:      "Total number of rule store operations",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rulekeeper",
				Name:      "operation_duration_seconds",
				Help:      "Duration of rule store operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs to ~4s
			},
			[]string{"operation"},
		),
		ruleEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rulekeeper",
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule evaluations by result",
			},
			[]string{"result"},
		),
		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rulekeeper",
				Name:      "rules",
				Help:      "Number of rules currently stored",
			},
		),
	}

	registry.MustRegister(c.operationsTotal, c.operationDuration, c.ruleEvaluations, c.rules)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation records one store operation.
func (c *Collector) ObserveOperation(operation, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.operationsTotal.WithLabelValues(operation, outcome).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRule records the result (PASS or FAIL) of one rule in a batch.
func (c *Collector) ObserveRule(result string) {
	if c == nil {
		return
	}
	c.ruleEvaluations.WithLabelValues(result).Inc()
}

// SetRules sets the stored rule gauge.
func (c *Collector) SetRules(n int) {
	if c == nil {
		return
	}
	c.rules.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Package metrics holds the Prometheus instruments of the evaluation
// engine and the controller. Every recording method is safe on a nil
// *Metrics so callers can run without instrumentation.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Evaluation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid_snapshot"
	OutcomeCalendar  = "calendar_unresolved"
	OutcomeCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics for plancheck.
type Metrics struct {
	// Engine metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	RuleDuration       *prometheus.HistogramVec
	RuleFailures       *prometheus.CounterVec
	Findings           *prometheus.CounterVec

	// Controller metrics
	CyclesDiscarded  prometheus.Counter
	ReportsPublished prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plancheck_evaluations_total",
				Help: "Total number of evaluation cycles by outcome",
			},
			[]string{"outcome"},
		),
		EvaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plancheck_evaluation_duration_seconds",
				Help:    "Evaluation cycle duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		RuleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plancheck_rule_duration_seconds",
				Help:    "Rule evaluation duration in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"rule_id"},
		),
		RuleFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plancheck_rule_failures_total",
				Help: "Total number of rule evaluations that failed or panicked",
			},
			[]string{"rule_id"},
		),
		Findings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plancheck_findings_total",
				Help: "Total number of findings reported by severity",
			},
			[]string{"severity"},
		),
		CyclesDiscarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "plancheck_cycles_discarded_total",
				Help: "Evaluation cycles cancelled by a newer plan change",
			},
		),
		ReportsPublished: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "plancheck_reports_published_total",
				Help: "Reports published by the controller",
			},
		),
	}
}

// NewRegistry creates a new Prometheus registry with metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// ObserveEvaluation records one finished evaluation cycle.
func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCancelled {
		m.EvaluationDuration.Observe(d.Seconds())
	}
}

// ObserveRule records one rule invocation.
func (m *Metrics) ObserveRule(ruleID string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.RuleDuration.WithLabelValues(ruleID).Observe(d.Seconds())
	if failed {
		m.RuleFailures.WithLabelValues(ruleID).Inc()
	}
}

// AddFindings counts n reported findings of a severity.
func (m *Metrics) AddFindings(severity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Findings.WithLabelValues(severity).Add(float64(n))
}

// CycleDiscarded counts a cancelled controller cycle.
func (m *Metrics) CycleDiscarded() {
	if m == nil {
		return
	}
	m.CyclesDiscarded.Inc()
}

// ReportPublished counts a published report.
func (m *Metrics) ReportPublished() {
	if m == nil {
		return
	}
	m.ReportsPublished.Inc()
}

// WriteText writes every gathered metric family in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

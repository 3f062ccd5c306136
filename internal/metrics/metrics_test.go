package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveEvaluation(OutcomeOK, time.Millisecond)
	m.ObserveRule("r", time.Millisecond, true)
	m.AddFindings("error", 3)
	m.CycleDiscarded()
	m.ReportPublished()
}

func TestEngineMetrics(t *testing.T) {
	_, m := NewRegistry()

	m.ObserveEvaluation(OutcomeOK, 2*time.Millisecond)
	m.ObserveEvaluation(OutcomeOK, 3*time.Millisecond)
	m.ObserveEvaluation(OutcomeCancelled, time.Millisecond)
	m.ObserveRule("room-capacity", time.Millisecond, false)
	m.ObserveRule("room-capacity", time.Millisecond, true)
	m.AddFindings("error", 2)
	m.AddFindings("warning", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFailures.WithLabelValues("room-capacity")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Findings.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Findings))
}

func TestControllerMetrics(t *testing.T) {
	_, m := NewRegistry()
	m.CycleDiscarded()
	m.ReportPublished()
	m.ReportPublished()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesDiscarded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportsPublished))
}

func TestWriteText(t *testing.T) {
	reg, m := NewRegistry()
	m.ReportPublished()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), "plancheck_reports_published_total 1")
	assert.Contains(t, buf.String(), "# HELP plancheck_reports_published_total")
}

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleReport() *engine.Report {
	day := plan.Day(2024, time.March, 4)
	return &engine.Report{
		Start:  plan.Day(2024, time.March, 1),
		End:    plan.Day(2024, time.March, 31),
		Digest: "abc123",
		Rules:  []string{rules.IDRoomCapacity, rules.IDEmptyPlan},
		Findings: []rules.Finding{
			{
				RuleID:   rules.IDRoomCapacity,
				Severity: rules.SeverityError,
				Scope:    rules.Scope{Date: day, Slot: "morning", Room: "A"},
				Key:      "capacity.exceeded",
				Payload:  map[string]any{"capacity": 2, "assigned": 3},
			},
			{
				RuleID:   rules.IDRoomCapacity,
				Severity: rules.SeverityInfo,
				Scope:    rules.Scope{Date: day},
				Key:      "config.fallback",
			},
		},
		Summary: engine.Summary{Errors: 1, Infos: 1},
	}
}

var t0 = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an existing database must not re-run migrations destructively.
	db, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	evals, err := db.ListEvaluations(0)
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestRecordReport_RoundTrip(t *testing.T) {
	db := openTest(t)
	want := sampleReport()

	id, err := db.RecordReport(want, t0)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := db.GetReport(id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.Start, got.Start)
	assert.Equal(t, want.End, got.End)
	assert.Equal(t, want.Digest, got.Digest)
	assert.Equal(t, want.Rules, got.Rules)
	assert.Equal(t, want.Summary, got.Summary)
	require.Len(t, got.Findings, 2)

	f := got.Findings[0]
	assert.Equal(t, want.Findings[0].DedupKey(), f.DedupKey())
	assert.Equal(t, rules.SeverityError, f.Severity)
	assert.Equal(t, 3.0, f.Payload["assigned"])
	assert.Nil(t, got.Findings[1].Payload)
}

func TestRecordReport_Nil(t *testing.T) {
	db := openTest(t)
	_, err := db.RecordReport(nil, t0)
	assert.Error(t, err)
}

func TestGetReport_Missing(t *testing.T) {
	db := openTest(t)
	r, err := db.GetReport("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestListEvaluations_NewestFirst(t *testing.T) {
	db := openTest(t)
	var ids []string
	for i := range 3 {
		id, err := db.RecordReport(sampleReport(), t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	evals, err := db.ListEvaluations(2)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, ids[2], evals[0].ID)
	assert.Equal(t, ids[1], evals[1].ID)
	assert.Equal(t, t0.Add(2*time.Minute), evals[0].EvaluatedAt)
	assert.Equal(t, 1, evals[0].Summary.Errors)

	all, err := db.ListEvaluations(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListEvaluations_SubsecondOrdering(t *testing.T) {
	db := openTest(t)
	early, err := db.RecordReport(sampleReport(), t0.Add(100*time.Millisecond))
	require.NoError(t, err)
	late, err := db.RecordReport(sampleReport(), t0.Add(150*time.Millisecond))
	require.NoError(t, err)

	evals, err := db.ListEvaluations(0)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, late, evals[0].ID)
	assert.Equal(t, early, evals[1].ID)
}

func TestRuleCounts(t *testing.T) {
	db := openTest(t)
	_, err := db.RecordReport(sampleReport(), t0)
	require.NoError(t, err)

	empty := &engine.Report{
		Start:    plan.Day(2024, time.March, 1),
		End:      plan.Day(2024, time.March, 31),
		Findings: []rules.Finding{{RuleID: rules.IDEmptyPlan, Severity: rules.SeverityError, Scope: rules.Scope{Date: plan.Day(2024, time.March, 1)}, Key: "plan.empty"}},
	}
	_, err = db.RecordReport(empty, t0.Add(time.Minute))
	require.NoError(t, err)

	counts, err := db.RuleCounts(0)
	require.NoError(t, err)
	assert.Equal(t, []RuleCount{
		{RuleID: rules.IDRoomCapacity, Count: 2},
		{RuleID: rules.IDEmptyPlan, Count: 1},
	}, counts)

	latest, err := db.RuleCounts(1)
	require.NoError(t, err)
	assert.Equal(t, []RuleCount{{RuleID: rules.IDEmptyPlan, Count: 1}}, latest)
}

func TestPrune_CascadesFindings(t *testing.T) {
	db := openTest(t)
	first, err := db.RecordReport(sampleReport(), t0)
	require.NoError(t, err)
	_, err = db.RecordReport(sampleReport(), t0.Add(time.Minute))
	require.NoError(t, err)

	n, err := db.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	findings, err := db.GetFindings(first)
	require.NoError(t, err)
	assert.Empty(t, findings)

	evals, err := db.ListEvaluations(0)
	require.NoError(t, err)
	assert.Len(t, evals, 1)
}

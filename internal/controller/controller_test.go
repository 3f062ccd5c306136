package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/metrics"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

const wait = 2 * time.Second

func emptyMarch() *plan.Snapshot {
	return plan.New(plan.Day(2024, time.March, 1), plan.Day(2024, time.March, 31), nil)
}

func busyMarch() *plan.Snapshot {
	return plan.New(plan.Day(2024, time.March, 1), plan.Day(2024, time.March, 31), []plan.Assignment{
		{Date: plan.Day(2024, time.March, 9), Slot: "morning", RoomID: "A", StaffID: "s1", Role: "assistant"},
	})
}

func builtinRegistry() *rules.Registry {
	reg := rules.NewRegistry()
	rules.RegisterBuiltin(reg)
	return reg
}

func withClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// harness runs a controller in the background and collects its reports.
type harness struct {
	ctrl    *Controller
	reports chan *engine.Report
	cancel  context.CancelFunc
	done    chan error
}

func startController(t *testing.T, src Source, opts ...Option) *harness {
	t.Helper()
	h := &harness{reports: make(chan *engine.Report, 16), done: make(chan error, 1)}
	opts = append([]Option{
		WithDebounce(5 * time.Millisecond),
		OnReport(func(r *engine.Report) { h.reports <- r }),
	}, opts...)
	h.ctrl = New(src, engine.New(), builtinRegistry(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(wait):
			t.Error("controller did not stop")
		}
	})
	return h
}

func (h *harness) next(t *testing.T) *engine.Report {
	t.Helper()
	select {
	case r := <-h.reports:
		return r
	case <-time.After(wait):
		t.Fatal("no report published")
		return nil
	}
}

// --- Run ---

func TestRun_PublishesInitialReport(t *testing.T) {
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		return emptyMarch(), nil
	}))

	r := h.next(t)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, rules.IDEmptyPlan, r.Findings[0].RuleID)
	assert.Same(t, r, h.ctrl.Report())
}

func TestRun_NotifyReevaluatesLatestSnapshot(t *testing.T) {
	var current atomic.Pointer[plan.Snapshot]
	current.Store(emptyMarch())
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		return current.Load(), nil
	}))

	first := h.next(t)
	assert.NotEmpty(t, first.ByRule(rules.IDEmptyPlan))

	current.Store(busyMarch())
	h.ctrl.Notify()

	second := h.next(t)
	assert.Empty(t, second.ByRule(rules.IDEmptyPlan))
	assert.NotEmpty(t, second.ByRule(rules.IDSaturdayCompensation))
	assert.Same(t, second, h.ctrl.Report())
}

func TestRun_UnchangedSnapshotSkipped(t *testing.T) {
	var loads atomic.Int32
	_, m := metrics.NewRegistry()
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		loads.Add(1)
		return emptyMarch(), nil
	}), WithMetrics(m))

	h.next(t)
	h.ctrl.Notify()

	assert.Eventually(t, func() bool { return loads.Load() >= 2 }, wait, time.Millisecond)
	assert.Never(t, func() bool { return len(h.reports) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsPublished))
}

func TestRun_NotifyCancelsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	var calls atomic.Int32
	_, m := metrics.NewRegistry()

	h := startController(t, SourceFunc(func(ctx context.Context) (*plan.Snapshot, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return busyMarch(), nil
	}), WithMetrics(m))

	select {
	case <-started:
	case <-time.After(wait):
		t.Fatal("first cycle never started")
	}
	h.ctrl.Notify()

	r := h.next(t)
	assert.NotEmpty(t, r.ByRule(rules.IDSaturdayCompensation))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesDiscarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsPublished))
}

func TestRun_SourceFailurePublishesReport(t *testing.T) {
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		return nil, errors.New("plan.yaml: permission denied")
	}), withClock(func() time.Time { return time.Date(2024, time.March, 4, 15, 30, 0, 0, time.UTC) }))

	r := h.next(t)
	require.Len(t, r.Findings, 1)
	f := r.Findings[0]
	assert.Equal(t, SourceRuleID, f.RuleID)
	assert.Equal(t, "source.unavailable", f.Key)
	assert.Equal(t, rules.SeverityError, f.Severity)
	assert.Contains(t, f.Payload["error"], "permission denied")
	assert.Equal(t, plan.Day(2024, time.March, 4), f.Scope.Date)
}

func TestRun_AlreadyRunning(t *testing.T) {
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		return emptyMarch(), nil
	}))
	h.next(t)

	err := h.ctrl.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunning)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := startController(t, SourceFunc(func(context.Context) (*plan.Snapshot, error) {
		return emptyMarch(), nil
	}))
	h.next(t)
	h.cancel()

	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
		h.done <- err
	case <-time.After(wait):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNotify_NeverBlocks(t *testing.T) {
	c := New(SourceFunc(func(context.Context) (*plan.Snapshot, error) { return emptyMarch(), nil }), engine.New(), builtinRegistry())
	for range 100 {
		c.Notify()
	}
	assert.Nil(t, c.Report())
}

// --- Task ---

func TestTask_RunsUntilCancelled(t *testing.T) {
	var n atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		Name:      "count",
		Interval:  2 * time.Millisecond,
		Immediate: true,
		Fn: func(context.Context) error {
			if n.Add(1) >= 3 {
				cancel()
			}
			return errors.New("ignored")
		},
	}
	err := task.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, n.Load(), int32(3))
}

func TestTask_RejectsZeroInterval(t *testing.T) {
	err := (&Task{Fn: func(context.Context) error { return nil }}).Run(context.Background())
	assert.Error(t, err)
}

// --- FileWatcher ---

func TestFileWatcher_NotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("start: 2024-03-01\n"), 0o644))

	var n int
	w := NewFileWatcher(path, func() { n++ })

	require.NoError(t, w.Check(context.Background()))
	assert.Equal(t, 0, n, "baseline check must not notify")

	require.NoError(t, w.Check(context.Background()))
	assert.Equal(t, 0, n)

	require.NoError(t, os.WriteFile(path, []byte("start: 2024-03-01\nend: 2024-03-31\n"), 0o644))
	require.NoError(t, w.Check(context.Background()))
	assert.Equal(t, 1, n)
}

func TestFileWatcher_MissingFile(t *testing.T) {
	w := NewFileWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, w.Check(context.Background()))

	task := w.Task(time.Second, nil)
	assert.True(t, task.Immediate)
	assert.Equal(t, time.Second, task.Interval)
}

// --- Diff ---

func TestDiff(t *testing.T) {
	day := plan.Day(2024, time.March, 4)
	a := rules.Finding{RuleID: "r", Severity: rules.SeverityError, Scope: rules.Scope{Date: day}, Key: "a"}
	b := rules.Finding{RuleID: "r", Severity: rules.SeverityWarning, Scope: rules.Scope{Date: day}, Key: "b"}
	c := rules.Finding{RuleID: "r", Severity: rules.SeverityInfo, Scope: rules.Scope{Date: day}, Key: "c"}

	prev := &engine.Report{Findings: []rules.Finding{a, b}}
	curr := &engine.Report{Findings: []rules.Finding{b, c}}

	changes := Diff(prev, curr)
	assert.Equal(t, []rules.Finding{c}, changes.Added)
	assert.Equal(t, []rules.Finding{a}, changes.Resolved)
	assert.False(t, changes.Empty())

	assert.True(t, Diff(curr, curr).Empty())
	assert.Len(t, Diff(nil, curr).Added, 2)

	alerts := Diff(nil, prev).Alerts(func(f rules.Finding) string { return f.Key })
	require.Len(t, alerts, 2)
	assert.Equal(t, "error", alerts[0].Level)
	assert.Equal(t, "r on Mon 2024-03-04", alerts[0].Title)
	// info findings never alert
	assert.Len(t, Diff(nil, curr).Alerts(func(rules.Finding) string { return "" }), 1)
}

// --- Notifier ---

// fakeNotifier returns a notifier for goos that records commands instead of
// running them.
func fakeNotifier(goos string, buf *bytes.Buffer, execErr error, haveNotifySend bool) (*Notifier, *[][]string) {
	var calls [][]string
	n := NewNotifier(buf)
	n.goos = goos
	n.lookPath = func(file string) (string, error) {
		if haveNotifySend {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
	n.exec = func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return execErr
	}
	return n, &calls
}

func TestNotifier_Send(t *testing.T) {
	alert := Alert{Level: "error", Title: "room-capacity", Message: "room A over capacity"}
	fallbackLine := "[error] room-capacity: room A over capacity\n"

	tests := []struct {
		name         string
		goos         string
		execErr      error
		notifySend   bool
		wantCommand  string
		wantFallback bool
	}{
		{name: "linux", goos: "linux", notifySend: true, wantCommand: "notify-send"},
		{name: "linux without notify-send", goos: "linux", wantFallback: true},
		{name: "linux command fails", goos: "linux", notifySend: true, execErr: errors.New("no display"), wantCommand: "notify-send", wantFallback: true},
		{name: "macOS", goos: "darwin", wantCommand: "osascript"},
		{name: "macOS command fails", goos: "darwin", execErr: errors.New("denied"), wantCommand: "osascript", wantFallback: true},
		{name: "other", goos: "windows", wantFallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, calls := fakeNotifier(tt.goos, &buf, tt.execErr, tt.notifySend)
			require.NoError(t, n.Send(alert))

			if tt.wantCommand != "" {
				require.Len(t, *calls, 1)
				assert.Equal(t, tt.wantCommand, (*calls)[0][0])
			} else {
				assert.Empty(t, *calls)
			}
			if tt.wantFallback {
				assert.Equal(t, fallbackLine, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNotifier_LinuxArguments(t *testing.T) {
	var buf bytes.Buffer
	n, calls := fakeNotifier("linux", &buf, nil, true)
	require.NoError(t, n.Send(Alert{Level: "warning", Title: "itn on Mon 2024-03-04", Message: "ITN needs 1 staff, has 0"}))
	assert.Equal(t, []string{"notify-send", "plancheck: itn on Mon 2024-03-04", "ITN needs 1 staff, has 0"}, (*calls)[0])
}

func TestNotifier_NilFallback(t *testing.T) {
	n := NewNotifier(nil)
	n.goos = "plan9"
	assert.NoError(t, n.Send(Alert{Level: "error", Title: "t", Message: "m"}))
}

// Package controller keeps a published Report in step with a changing plan:
// it debounces change notifications, serializes evaluation cycles, cancels
// cycles made stale by newer edits and publishes each completed Report
// atomically.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/logger"
	"github.com/blackwell-systems/plancheck/internal/metrics"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// DefaultDebounce is the quiet period after the last Notify before a cycle
// starts.
const DefaultDebounce = 250 * time.Millisecond

// SourceRuleID tags the finding published when the plan source fails.
const SourceRuleID = "source"

// ErrRunning is returned by Run when the controller is already running.
var ErrRunning = errors.New("controller already running")

// Source yields the current plan as one coherent snapshot.
type Source interface {
	Load(ctx context.Context) (*plan.Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*plan.Snapshot, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (*plan.Snapshot, error) {
	return f(ctx)
}

// Controller owns the evaluation loop for one plan source.
type Controller struct {
	source   Source
	engine   *engine.Engine
	registry *rules.Registry
	provider calendar.Provider
	debounce time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onReport func(*engine.Report)
	now      func() time.Time

	notify  chan struct{}
	report  atomic.Pointer[engine.Report]
	running atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithProvider sets the calendar provider passed to the engine.
func WithProvider(p calendar.Provider) Option {
	return func(c *Controller) { c.provider = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records controller metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// OnReport registers fn to be called after every publication, from the
// controller's loop goroutine.
func OnReport(fn func(*engine.Report)) Option {
	return func(c *Controller) { c.onReport = fn }
}

// New creates a Controller evaluating snapshots from src with eng and the
// rules of reg.
func New(src Source, eng *engine.Engine, reg *rules.Registry, opts ...Option) *Controller {
	c := &Controller{
		source:   src,
		engine:   eng,
		registry: reg,
		debounce: DefaultDebounce,
		now:      time.Now,
		notify:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = logger.OrDefault(c.logger)
	return c
}

// Notify records that the plan changed. It never blocks; notifications that
// arrive before the loop has seen the previous one are coalesced.
func (c *Controller) Notify() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Report returns the most recently published report, or nil before the
// first cycle completes.
func (c *Controller) Report() *engine.Report {
	return c.report.Load()
}

type result struct {
	gen     uint64
	digest  string
	report  *engine.Report
	skipped bool
	err     error
}

// Run evaluates the plan once immediately and again after every Notify,
// until ctx is cancelled. At most one cycle runs at a time. A Notify during
// a cycle cancels it; its result is discarded and a fresh cycle starts once
// the debounce delay has passed and the cancelled cycle has returned.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)

	var (
		gen        uint64
		lastDigest string
		inflight   context.CancelFunc
		pending    bool
		results    = make(chan result, 1)
	)

	start := func() {
		cctx, cancel := context.WithCancel(ctx)
		inflight = cancel
		g, digest := gen, lastDigest
		go func() { results <- c.cycle(cctx, g, digest) }()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if inflight != nil {
				inflight()
				<-results
			}
			return ctx.Err()

		case <-c.notify:
			gen++
			if inflight != nil {
				inflight()
			}
			pending = false
			timer.Reset(c.debounce)

		case <-timer.C:
			if inflight != nil {
				pending = true
				continue
			}
			start()

		case res := <-results:
			inflight()
			inflight = nil
			c.finish(ctx, res, gen, &lastDigest)
			if pending {
				pending = false
				start()
			}
		}
	}
}

// finish publishes res unless it is stale, failed or unchanged.
func (c *Controller) finish(ctx context.Context, res result, gen uint64, lastDigest *string) {
	ctx = logger.WithFields(ctx, logger.Fields{Cycle: res.gen + 1, Component: "controller"})

	switch {
	case res.err != nil || res.gen != gen:
		c.metrics.CycleDiscarded()
		c.logger.DebugContext(ctx, "cycle discarded", "error", res.err, "current", gen+1)
		return
	case res.skipped:
		c.logger.DebugContext(ctx, "snapshot unchanged, keeping report", "digest", res.digest)
		return
	}

	*lastDigest = res.digest
	c.report.Store(res.report)
	c.metrics.ReportPublished()
	c.logger.InfoContext(ctx, "report published",
		"findings", len(res.report.Findings),
		"errors", res.report.Summary.Errors,
		"warnings", res.report.Summary.Warnings)
	if c.onReport != nil {
		c.onReport(res.report)
	}
}

// cycle loads and evaluates one snapshot. It runs on its own goroutine and
// touches no controller state besides reading the published report.
func (c *Controller) cycle(ctx context.Context, gen uint64, lastDigest string) result {
	ctx = logger.WithFields(ctx, logger.Fields{Cycle: gen + 1, Component: "controller"})
	res := result{gen: gen}

	snap, err := c.source.Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.err = ctxErr
			return res
		}
		c.logger.WarnContext(ctx, "loading plan failed", "error", err)
		res.report = c.sourceFailure(err)
		return res
	}

	res.digest = snap.Digest()
	if res.digest != "" && res.digest == lastDigest && c.Report() != nil {
		res.skipped = true
		return res
	}

	ctx = logger.WithFields(ctx, logger.Fields{Digest: res.digest})
	report, err := c.engine.Evaluate(ctx, snap, c.provider, c.registry)
	if err != nil {
		res.err = err
		return res
	}
	res.report = report
	return res
}

func (c *Controller) sourceFailure(err error) *engine.Report {
	date := plan.Normalize(c.now())
	if prev := c.Report(); prev != nil && !prev.Start.IsZero() {
		date = prev.Start
	}
	return engine.FailureReport(date, date, rules.Finding{
		RuleID:   SourceRuleID,
		Severity: rules.SeverityError,
		Scope:    rules.Scope{Date: date},
		Key:      "source.unavailable",
		Payload:  map[string]any{"error": err.Error()},
	})
}

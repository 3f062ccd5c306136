// Package engine evaluates a plan snapshot against the enabled rules of a
// registry and merges their findings into one deterministic Report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/logger"
	"github.com/blackwell-systems/plancheck/internal/metrics"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// Synthetic rule IDs for findings that do not come from a registered rule.
const (
	SnapshotRuleID = "snapshot"
	CalendarRuleID = "calendar"
)

// Engine runs the enabled rules of a registry against a snapshot. It holds
// no per-cycle state and may be shared between goroutines.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The slog default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records evaluation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, o := range opts {
		o(e)
	}
	e.logger = logger.OrDefault(e.logger)
	return e
}

// Evaluate validates s, resolves calendar facts for its whole range through
// provider (nil means weekdays only) and runs every enabled rule of reg in
// registration order. It always returns a complete Report unless ctx is
// cancelled, in which case it returns ctx.Err() and no report.
func (e *Engine) Evaluate(ctx context.Context, s *plan.Snapshot, provider calendar.Provider, reg *rules.Registry) (*Report, error) {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		e.metrics.ObserveEvaluation(metrics.OutcomeCancelled, 0)
		return nil, err
	}

	if err := s.Validate(); err != nil {
		e.logger.WarnContext(ctx, "snapshot rejected", "error", err)
		e.metrics.ObserveEvaluation(metrics.OutcomeInvalid, time.Since(started))
		return e.single(s, invalidFinding(s, err)), nil
	}

	if provider == nil {
		provider = calendar.BasicProvider
	}
	table, err := calendar.Resolve(ctx, provider, s.Start, s.End)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.metrics.ObserveEvaluation(metrics.OutcomeCancelled, time.Since(started))
			return nil, ctxErr
		}
		e.logger.WarnContext(ctx, "calendar resolution failed", "error", err)
		e.metrics.ObserveEvaluation(metrics.OutcomeCalendar, time.Since(started))
		return e.single(s, calendarFinding(s, err)), nil
	}

	var (
		collected []ranked
		ran       []string
	)
	for _, d := range reg.List() {
		if !d.Config.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			e.metrics.ObserveEvaluation(metrics.OutcomeCancelled, time.Since(started))
			return nil, err
		}
		ran = append(ran, d.ID)
		for _, f := range e.runRule(ctx, d, s, table) {
			collected = append(collected, ranked{Finding: f, order: d.Config.Order, index: d.Index})
		}
	}

	findings := rank(dedupe(collected))
	report := &Report{
		Start:    s.Start,
		End:      s.End,
		Digest:   s.Digest(),
		Rules:    ran,
		Findings: findings,
		Summary:  summarize(findings),
	}
	for _, sev := range rules.Severities {
		e.metrics.AddFindings(string(sev), report.Summary.Count(sev))
	}
	e.metrics.ObserveEvaluation(metrics.OutcomeOK, time.Since(started))
	e.logger.DebugContext(ctx, "evaluation finished",
		"rules", len(ran),
		"findings", len(findings),
		"errors", report.Summary.Errors,
		"duration", time.Since(started))
	return report, nil
}

// runRule invokes one rule and returns its findings. A failing or panicking
// rule yields a single rule.failed finding instead.
func (e *Engine) runRule(ctx context.Context, d rules.Descriptor, s *plan.Snapshot, table calendar.Lookup) []rules.Finding {
	params := rules.NewParams(d.ID, d.Defaults, d.Config.Params)
	in := &rules.Input{Snapshot: s, Calendar: table, Params: params}

	started := time.Now()
	findings, err := invoke(d, in)
	e.metrics.ObserveRule(d.ID, time.Since(started), err != nil)

	if err != nil {
		e.logger.WarnContext(ctx, "rule failed", "rule_id", d.ID, "error", err)
		return []rules.Finding{{
			RuleID:   d.ID,
			Severity: rules.SeverityError,
			Scope:    rules.Scope{Date: s.Start},
			Key:      "rule.failed",
			Payload:  map[string]any{"error": err.Error()},
		}}
	}

	for i := range findings {
		findings[i].RuleID = d.ID
		if findings[i].Scope.Date.IsZero() {
			findings[i].Scope.Date = s.Start
		}
	}

	if errs := params.Errors(); len(errs) > 0 {
		fallbacks := make([]any, len(errs))
		for i, ce := range errs {
			e.logger.InfoContext(ctx, "rule parameter rejected",
				"rule_id", d.ID, "param", ce.Param, "value", ce.Value, "reason", ce.Reason)
			fallbacks[i] = map[string]any{
				"param":  ce.Param,
				"value":  ce.Value,
				"reason": ce.Reason,
			}
		}
		findings = append(findings, rules.Finding{
			RuleID:   d.ID,
			Severity: rules.SeverityInfo,
			Scope:    rules.Scope{Date: s.Start},
			Key:      "config.fallback",
			Payload:  map[string]any{"params": fallbacks},
		})
	}

	e.logger.DebugContext(ctx, "rule evaluated", "rule_id", d.ID, "findings", len(findings))
	return findings
}

// invoke calls the rule, converting errors, panics and malformed findings
// into a RuleExecutionError.
func invoke(d rules.Descriptor, in *rules.Input) (findings []rules.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = &rules.RuleExecutionError{RuleID: d.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	findings, err = d.Rule.Evaluate(in)
	if err != nil {
		return nil, &rules.RuleExecutionError{RuleID: d.ID, Err: err}
	}
	for _, f := range findings {
		if !f.Severity.Valid() {
			return nil, &rules.RuleExecutionError{RuleID: d.ID, Err: fmt.Errorf("finding %q has unknown severity %q", f.Key, f.Severity)}
		}
	}
	return slices.Clone(findings), nil
}

func (e *Engine) single(s *plan.Snapshot, f rules.Finding) *Report {
	var start, end time.Time
	if s != nil {
		start, end = s.Start, s.End
	}
	e.metrics.AddFindings(string(f.Severity), 1)
	return FailureReport(start, end, f)
}

// FailureReport builds a report that carries only f, for cycles that could
// not run the rules at all.
func FailureReport(start, end time.Time, f rules.Finding) *Report {
	return &Report{
		Start:    start,
		End:      end,
		Rules:    []string{f.RuleID},
		Findings: []rules.Finding{f},
		Summary:  summarize([]rules.Finding{f}),
	}
}

func invalidFinding(s *plan.Snapshot, err error) rules.Finding {
	reason := err.Error()
	var inv *plan.InvalidSnapshotError
	if errors.As(err, &inv) {
		reason = inv.Reason
	}
	f := rules.Finding{
		RuleID:   SnapshotRuleID,
		Severity: rules.SeverityError,
		Key:      "snapshot.invalid",
		Payload:  map[string]any{"reason": reason},
	}
	if s != nil {
		f.Scope.Date = s.Start
	}
	return f
}

func calendarFinding(s *plan.Snapshot, err error) rules.Finding {
	payload := map[string]any{"error": err.Error()}
	var re *calendar.ResolveError
	if errors.As(err, &re) {
		payload["date"] = plan.DateKey(re.Date)
		payload["error"] = re.Err.Error()
	}
	return rules.Finding{
		RuleID:   CalendarRuleID,
		Severity: rules.SeverityError,
		Scope:    rules.Scope{Date: s.Start},
		Key:      "calendar.unresolved",
		Payload:  payload,
	}
}

package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/metrics"
	"github.com/blackwell-systems/plancheck/internal/output"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

var (
	checkSeverity string
	checkFailOn   string
	checkRecord   bool
	checkMetrics  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <plan.yaml>",
	Short: "Evaluate a plan file once and print the findings",
	Long: `Load a plan file, run every enabled rule against it and print the
findings sorted by severity, date and rule.

Exit status is 2 when a finding at or above --fail-on is present.

Examples:
  plancheck check plan.yaml
  plancheck check plan.yaml --severity warning
  plancheck check plan.yaml --json --fail-on none
  plancheck check plan.yaml --record --metrics`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkSeverity, "severity", "", "Only show findings at or above this severity (error, warning, info, opportunity)")
	checkCmd.Flags().StringVar(&checkFailOn, "fail-on", "error", "Exit with status 2 when a finding at or above this severity exists (or none)")
	checkCmd.Flags().BoolVar(&checkRecord, "record", false, "Store the report in the history database")
	checkCmd.Flags().BoolVar(&checkMetrics, "metrics", false, "Print evaluation metrics in Prometheus text format to stderr")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	floor, err := parseSeverity(checkSeverity)
	if err != nil {
		return fmt.Errorf("--severity: %w", err)
	}
	failOn, err := parseSeverity(checkFailOn)
	if err != nil {
		return fmt.Errorf("--fail-on: %w", err)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	reg := newRegistry(cfg)
	promReg, m := metrics.NewRegistry()
	eng := engine.New(engine.WithMetrics(m))

	snap, err := plan.FileSource{Path: args[0]}.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading plan: %w", err)
	}

	report, err := eng.Evaluate(cmd.Context(), snap, provider, reg)
	if err != nil {
		return fmt.Errorf("evaluating plan: %w", err)
	}

	if checkRecord {
		if err := recordReport(report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if err := output.WriteJSON(out, report); err != nil {
			return err
		}
	} else if err := output.RenderReport(out, report, output.RenderOptions{Floor: floor, Width: cfg.Output.Width}); err != nil {
		return err
	}

	if checkMetrics {
		if err := metrics.WriteText(cmd.ErrOrStderr(), promReg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if failOn != "" && len(report.Filter(failOn)) > 0 {
		return &exitError{code: 2}
	}
	return nil
}

// recordReport stores report in the history database and prunes old runs.
func recordReport(report *engine.Report) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	id, err := db.RecordReport(report, time.Now())
	if err != nil {
		return fmt.Errorf("recording report: %w", err)
	}
	slog.Info("report recorded", "id", id, "findings", len(report.Findings))

	if cfg.Store.Keep > 0 {
		n, err := db.Prune(cfg.Store.Keep)
		if err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
		if n > 0 {
			slog.Debug("history pruned", "removed", n, "keep", cfg.Store.Keep)
		}
	}
	return nil
}

// parseSeverity accepts a severity name, or "" and "none" for no severity.
func parseSeverity(s string) (rules.Severity, error) {
	switch s {
	case "", "none":
		return "", nil
	}
	sev := rules.Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

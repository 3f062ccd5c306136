package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/plancheck/internal/controller"
	"github.com/blackwell-systems/plancheck/internal/output"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
	"github.com/blackwell-systems/plancheck/internal/store"
)

var (
	historyLimit int
	historyShow  string
	historyDiff  bool
	historyTop   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded evaluations and how findings changed",
	Long: `List reports stored by 'check --record' or 'watch --record', newest first,
with the change in error and warning counts against the previous run.

Examples:
  plancheck history                 # last 10 runs
  plancheck history --limit 50
  plancheck history --show <id>     # full report of one run
  plancheck history --diff          # findings added/resolved in the latest run
  plancheck history --top           # rules with the most findings`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list (0 = all)")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Render the report of one recorded run")
	historyCmd.Flags().BoolVar(&historyDiff, "diff", false, "Compare the latest run against the one before it")
	historyCmd.Flags().BoolVar(&historyTop, "top", false, "Count findings per rule over the listed runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	out := cmd.OutOrStdout()
	switch {
	case historyShow != "":
		return showRun(out, db, historyShow)
	case historyDiff:
		return diffLatest(out, db)
	case historyTop:
		return topRules(out, db, historyLimit)
	}

	evals, err := db.ListEvaluations(historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if flagJSON {
		return output.WriteJSON(out, evals)
	}
	if len(evals) == 0 {
		_, err := fmt.Fprintln(out, output.StyleMuted.Render("No recorded runs. Use 'plancheck check --record' to start a history."))
		return err
	}

	tbl := output.NewTable("Run", "Evaluated", "Plan", "Errors", "Warnings", "Infos", "Opps", "Trend")
	for i, e := range evals {
		trend := output.StyleMuted.Render("-")
		if i+1 < len(evals) {
			prev := evals[i+1].Summary
			trend = output.Trend(e.Summary.Errors + e.Summary.Warnings - prev.Errors - prev.Warnings)
		}
		tbl.AddRow(
			shortID(e.ID),
			e.EvaluatedAt.Local().Format("2006-01-02 15:04"),
			plan.DateKey(e.Start)+" – "+plan.DateKey(e.End),
			strconv.Itoa(e.Summary.Errors),
			strconv.Itoa(e.Summary.Warnings),
			strconv.Itoa(e.Summary.Infos),
			strconv.Itoa(e.Summary.Opportunities),
			trend,
		)
	}
	if _, err := fmt.Fprintln(out, output.Section("History", cfg.Output.Width-2)); err != nil {
		return err
	}
	return tbl.Fprint(out)
}

// showRun renders one recorded report. id may be a unique prefix.
func showRun(w io.Writer, db *store.DB, id string) error {
	full, err := resolveRunID(db, id)
	if err != nil {
		return err
	}
	report, err := db.GetReport(full)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	if flagJSON {
		return output.WriteJSON(w, report)
	}
	return output.RenderReport(w, report, output.RenderOptions{Width: cfg.Output.Width})
}

// diffLatest prints the findings that appeared or disappeared between the
// two most recent runs.
func diffLatest(w io.Writer, db *store.DB) error {
	evals, err := db.ListEvaluations(2)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if len(evals) < 2 {
		_, err := fmt.Fprintln(w, output.StyleMuted.Render("Need at least two recorded runs to compare."))
		return err
	}
	curr, err := db.GetReport(evals[0].ID)
	if err != nil {
		return err
	}
	prev, err := db.GetReport(evals[1].ID)
	if err != nil {
		return err
	}

	changes := controller.Diff(prev, curr)
	if flagJSON {
		return output.WriteJSON(w, changes)
	}
	if changes.Empty() {
		_, err := fmt.Fprintln(w, output.StyleSuccess.Render("No changes between the last two runs."))
		return err
	}

	title := fmt.Sprintf("Changes %s → %s", shortID(evals[1].ID), shortID(evals[0].ID))
	if _, err := fmt.Fprintln(w, output.Section(title, cfg.Output.Width-2)); err != nil {
		return err
	}
	tbl := output.NewTable("", "Severity", "Date", "Where", "Message")
	addRows := func(mark string, findings []rules.Finding) {
		for _, f := range findings {
			tbl.AddRow(mark, output.SeverityStyle(f.Severity).Render(string(f.Severity)),
				f.Scope.Date.Format("Mon 2006-01-02"), output.Where(f.Scope), output.Message(f))
		}
	}
	addRows(output.StyleError.Render("+"), changes.Added)
	addRows(output.StyleSuccess.Render("-"), changes.Resolved)
	return tbl.Fprint(w)
}

// topRules prints finding counts per rule over the last n runs.
func topRules(w io.Writer, db *store.DB, n int) error {
	counts, err := db.RuleCounts(n)
	if err != nil {
		return fmt.Errorf("counting findings: %w", err)
	}
	if flagJSON {
		return output.WriteJSON(w, counts)
	}
	tbl := output.NewTable("Rule", "Findings")
	for _, c := range counts {
		tbl.AddRow(c.RuleID, strconv.Itoa(c.Count))
	}
	return tbl.Fprint(w)
}

// resolveRunID expands a run ID prefix to the full ID.
func resolveRunID(db *store.DB, prefix string) (string, error) {
	if e, err := db.GetEvaluation(prefix); err != nil {
		return "", err
	} else if e != nil {
		return e.ID, nil
	}

	evals, err := db.ListEvaluations(0)
	if err != nil {
		return "", err
	}
	var match string
	for _, e := range evals {
		if len(prefix) <= len(e.ID) && e.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("run ID %q is ambiguous", prefix)
			}
			match = e.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no recorded run %q", prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

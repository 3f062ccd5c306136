package app

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/plancheck/internal/output"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered rules and their effective configuration",
	Long: `Show every built-in rule in registration order with its enabled state,
sort order and effective parameters after the config file is applied.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

// ruleView is the JSON shape of one listed rule.
type ruleView struct {
	ID      string         `json:"id"`
	Enabled bool           `json:"enabled"`
	Order   int            `json:"order"`
	Params  map[string]any `json:"params"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	reg := newRegistry(cfg)
	descs := reg.List()

	views := make([]ruleView, len(descs))
	for i, d := range descs {
		views[i] = ruleView{ID: d.ID, Enabled: d.Config.Enabled, Order: d.Config.Order, Params: d.Config.Params}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return output.WriteJSON(out, views)
	}

	tbl := output.NewTable("Rule", "Enabled", "Order", "Params")
	for _, v := range views {
		enabled := output.StyleSuccess.Render("yes")
		if !v.Enabled {
			enabled = output.StyleMuted.Render("no")
		}
		tbl.AddRow(v.ID, enabled, strconv.Itoa(v.Order), formatParams(v.Params))
	}
	if _, err := fmt.Fprintln(out, output.Section("Rules", cfg.Output.Width-2)); err != nil {
		return err
	}
	return tbl.Fprint(out)
}

// formatParams renders params as sorted key=value pairs.
func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return output.StyleMuted.Render("-")
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}

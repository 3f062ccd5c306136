// Package app contains the Cobra command tree for plancheck.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/plancheck/internal/config"
	"github.com/blackwell-systems/plancheck/internal/logger"
	"github.com/blackwell-systems/plancheck/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor  bool
	flagJSON     bool
	flagVerbose  bool
	flagConfig   string
	flagLogLevel string
)

// cfg is loaded once per invocation by the root pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "plancheck",
	Short: "Validate staff and room plans against practice rules",
	Long: `plancheck checks a dental practice's staff and room plan against a
configurable set of business rules: room capacity, coverage, assistants per
doctor, ITN, prophylaxis cadence, Saturday compensation, contract hours and
holidays. It reports every finding with its severity, date and scope.

Rules are enabled, ordered and tuned in ~/.config/plancheck/config.yaml.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// exitError carries a process exit code without an error message of its own.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/plancheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// setup loads the config and installs logging and color preferences.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if flagVerbose {
		level = "debug"
	}
	logger.Setup(cmd.ErrOrStderr(), level, cfg.Log.JSON)

	color := !flagNoColor && !flagJSON && output.ColorEnabled(os.Stdout, cfg.Output.Color)
	output.SetNoColor(!color)

	slog.Debug("config loaded", "config", flagConfig, "store", cfg.Store.Path, "rules", len(cfg.Rules))
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/plancheck/internal/config"
	"github.com/blackwell-systems/plancheck/internal/controller"
	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/logger"
	"github.com/blackwell-systems/plancheck/internal/metrics"
	"github.com/blackwell-systems/plancheck/internal/output"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/store"
)

var (
	watchInterval time.Duration
	watchDebounce time.Duration
	watchNotify   bool
	watchQuiet    bool
	watchRecord   bool
	watchDaemon   bool
	watchStop     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <plan.yaml>",
	Short: "Re-check a plan whenever the file changes",
	Long: `Poll a plan file and re-evaluate it after every change. Edits arriving
while a check runs cancel it; only the result for the latest plan is shown.
New error and warning findings can raise desktop notifications.

Examples:
  plancheck watch plan.yaml                  # run in foreground (ctrl-c to stop)
  plancheck watch plan.yaml --notify         # desktop notifications for new findings
  plancheck watch plan.yaml --interval 5s    # poll every 5 seconds
  plancheck watch plan.yaml --daemon         # write PID file, log to file
  plancheck watch --stop                     # stop the background daemon`,
	Args: func(cmd *cobra.Command, args []string) error {
		if watchStop {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default: controller.poll_interval)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period after a change before re-checking (default: controller.debounce)")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "Send desktop notifications for new errors and warnings")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output")
	watchCmd.Flags().BoolVar(&watchRecord, "record", false, "Store every published report in the history database")
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon()
	}

	interval := cfg.Controller.PollInterval
	if watchInterval != 0 {
		interval = watchInterval
	}
	if interval < 100*time.Millisecond {
		return fmt.Errorf("interval must be at least 100ms, got %s", interval)
	}
	debounce := cfg.Controller.Debounce
	if watchDebounce != 0 {
		debounce = watchDebounce
	}

	if watchDaemon {
		return runDaemon(args[0], interval, debounce)
	}
	return runForeground(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], interval, debounce)
}

// watchSession wires one plan file to a controller and its file poller.
type watchSession struct {
	path     string
	interval time.Duration
	debounce time.Duration
	out      io.Writer
	quiet    bool
	notifier *controller.Notifier
	db       *store.DB
	keep     int
	log      *slog.Logger

	prev *engine.Report
}

// run blocks until ctx is cancelled.
func (s *watchSession) run(ctx context.Context) error {
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	_, m := metrics.NewRegistry()
	eng := engine.New(engine.WithLogger(s.log), engine.WithMetrics(m))

	ctrl := controller.New(plan.FileSource{Path: s.path}, eng, newRegistry(cfg),
		controller.WithDebounce(s.debounce),
		controller.WithProvider(provider),
		controller.WithLogger(s.log),
		controller.WithMetrics(m),
		controller.OnReport(s.publish),
	)
	poll := controller.NewFileWatcher(s.path, ctrl.Notify).Task(s.interval, s.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return poll.Run(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// publish handles every report the controller publishes. It runs on the
// controller's loop goroutine.
func (s *watchSession) publish(r *engine.Report) {
	changes := controller.Diff(s.prev, r)
	first := s.prev == nil
	s.prev = r

	if s.db != nil {
		s.record(r)
	}

	if !s.quiet {
		if first {
			_ = output.RenderReport(s.out, r, output.RenderOptions{Width: cfg.Output.Width})
		} else {
			printChanges(s.out, r, changes)
		}
	}

	if first || s.notifier == nil {
		return
	}
	for _, a := range changes.Alerts(output.Message) {
		if err := s.notifier.Send(a); err != nil {
			s.log.Warn("notification failed", "error", err)
		}
	}
}

// record stores r and prunes the history down to s.keep runs.
func (s *watchSession) record(r *engine.Report) {
	id, err := s.db.RecordReport(r, time.Now())
	if err != nil {
		s.log.Warn("recording report failed", "error", err)
		return
	}
	s.log.Debug("report recorded", "id", id)

	if s.keep <= 0 {
		return
	}
	n, err := s.db.Prune(s.keep)
	if err != nil {
		s.log.Warn("pruning history failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Debug("history pruned", "removed", n, "keep", s.keep)
	}
}

// runForeground runs the watch loop with live terminal output.
func runForeground(out, errOut io.Writer, path string, interval, debounce time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	go func() {
		<-sigCh
		cancel()
	}()

	s := &watchSession{
		path:     path,
		interval: interval,
		debounce: debounce,
		out:      out,
		quiet:    watchQuiet,
		keep:     cfg.Store.Keep,
		log:      slog.Default(),
	}
	if watchNotify {
		s.notifier = controller.NewNotifier(errOut)
	}
	if watchRecord {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		s.db = db
	}

	if !watchQuiet {
		fmt.Fprintf(out, "plancheck watching %s... (polling every %s)\n", path, interval)
	}
	if err := s.run(ctx); err != nil {
		return err
	}
	if !watchQuiet {
		fmt.Fprintln(out, "\nStopped.")
	}
	return nil
}

// runDaemon sets up PID and log files, then runs the watch loop with
// notifications on. The actual backgrounding should be done by the caller
// (nohup, &, etc.) since Go cannot reliably fork.
func runDaemon(path string, interval, debounce time.Duration) error {
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file, remove it.
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	log := logger.Setup(logFile, cfg.Log.Level, cfg.Log.JSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	go func() {
		<-sigCh
		cancel()
	}()

	s := &watchSession{
		path:     path,
		interval: interval,
		debounce: debounce,
		out:      io.Discard,
		quiet:    true,
		notifier: controller.NewNotifier(logFile),
		keep:     cfg.Store.Keep,
		log:      log,
	}
	if watchRecord {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		s.db = db
	}

	log.Info("daemon started", "pid", pid, "plan", path, "interval", interval)
	err = s.run(ctx)
	log.Info("daemon stopped", "error", err)
	return err
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// printChanges prints a one-line status followed by the added and resolved
// findings.
func printChanges(w io.Writer, r *engine.Report, c controller.Changes) {
	timestamp := time.Now().Format("15:04:05")
	if c.Empty() {
		fmt.Fprintf(w, "[%s] %s no changes (%s)\n", timestamp, checkMark(), output.SeverityBar(r.Summary, 0))
		return
	}
	fmt.Fprintf(w, "[%s] %s %d new, %d resolved (%s)\n", timestamp, output.Trend(len(c.Added)-len(c.Resolved)),
		len(c.Added), len(c.Resolved), output.SeverityBar(r.Summary, 0))
	for _, f := range c.Added {
		fmt.Fprintf(w, "         %s %s %s: %s\n", output.SeverityStyle(f.Severity).Render("+"),
			f.Scope.Date.Format("Mon 2006-01-02"), output.Where(f.Scope), output.Message(f))
	}
	for _, f := range c.Resolved {
		fmt.Fprintf(w, "         %s %s %s: %s\n", output.StyleSuccess.Render("-"),
			f.Scope.Date.Format("Mon 2006-01-02"), output.Where(f.Scope), output.Message(f))
	}
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return output.StyleSuccess.Render("\xe2\x9c\x93")
}

package controller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/blackwell-systems/plancheck/internal/logger"
)

// Task runs Fn every Interval until its context is cancelled. Errors from
// Fn are logged and do not stop the task.
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
	Logger   *slog.Logger

	// Immediate runs Fn once before the first tick.
	Immediate bool
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (t *Task) Run(ctx context.Context) error {
	if t.Interval <= 0 {
		return errors.New("task interval must be positive")
	}
	log := logger.OrDefault(t.Logger)

	if t.Immediate {
		t.tick(ctx, log)
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.tick(ctx, log)
		}
	}
}

func (t *Task) tick(ctx context.Context, log *slog.Logger) {
	if err := t.Fn(ctx); err != nil && ctx.Err() == nil {
		log.WarnContext(ctx, "scheduled task failed", "task", t.Name, "error", err)
	}
}

// FileWatcher polls a file's modification time and size and calls notify
// when either changes. The first check records a baseline without
// notifying.
type FileWatcher struct {
	path    string
	notify  func()
	seen    bool
	modTime time.Time
	size    int64
}

// NewFileWatcher creates a FileWatcher for path.
func NewFileWatcher(path string, notify func()) *FileWatcher {
	return &FileWatcher{path: path, notify: notify}
}

// Check stats the file once. A missing file is reported as an error and
// does not reset the baseline.
func (w *FileWatcher) Check(_ context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	changed := w.seen && (!info.ModTime().Equal(w.modTime) || info.Size() != w.size)
	w.seen = true
	w.modTime = info.ModTime()
	w.size = info.Size()
	if changed && w.notify != nil {
		w.notify()
	}
	return nil
}

// Task returns a Task polling the file every interval.
func (w *FileWatcher) Task(interval time.Duration, log *slog.Logger) *Task {
	return &Task{
		Name:      "poll " + w.path,
		Interval:  interval,
		Fn:        w.Check,
		Logger:    log,
		Immediate: true,
	}
}

package controller

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Alert is a desktop notification about a new finding.
type Alert struct {
	Level   string
	Title   string
	Message string
}

var errNoDesktop = errors.New("no desktop notifier")

// Notifier delivers alerts as desktop notifications: osascript on macOS,
// notify-send on Linux. Alerts it cannot deliver that way are written as
// one line to the fallback writer.
type Notifier struct {
	fallback io.Writer
	goos     string
	lookPath func(file string) (string, error)
	exec     func(name string, args ...string) error
}

// NewNotifier returns a Notifier for the current platform. A nil fallback
// discards undeliverable alerts.
func NewNotifier(fallback io.Writer) *Notifier {
	if fallback == nil {
		fallback = io.Discard
	}
	return &Notifier{
		fallback: fallback,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		exec: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send delivers one alert.
func (n *Notifier) Send(alert Alert) error {
	if err := n.desktop(alert); err != nil {
		_, werr := fmt.Fprintf(n.fallback, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
		return werr
	}
	return nil
}

func (n *Notifier) desktop(alert Alert) error {
	switch n.goos {
	case "darwin":
		script := fmt.Sprintf(
			`display notification %q with title "plancheck" subtitle %q`,
			alert.Message, alert.Title,
		)
		return n.exec("osascript", "-e", script)
	case "linux":
		if _, err := n.lookPath("notify-send"); err != nil {
			return err
		}
		return n.exec("notify-send", "plancheck: "+alert.Title, alert.Message)
	default:
		return errNoDesktop
	}
}

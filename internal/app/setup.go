package app

import (
	"fmt"
	"log/slog"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/config"
	"github.com/blackwell-systems/plancheck/internal/rules"
	"github.com/blackwell-systems/plancheck/internal/store"
)

// newRegistry registers the built-in rules and applies the configured
// overrides. Overrides naming unknown rules are logged, not fatal.
func newRegistry(c *config.Config) *rules.Registry {
	reg := rules.NewRegistry()
	rules.RegisterBuiltin(reg)
	if err := c.ApplyRules(reg); err != nil {
		slog.Warn("ignoring rule overrides", "error", err)
	}
	return reg
}

// newProvider builds the calendar provider from the configured holidays.
func newProvider(c *config.Config) (calendar.Provider, error) {
	p, err := c.CalendarProvider()
	if err != nil {
		return nil, fmt.Errorf("building calendar: %w", err)
	}
	return p, nil
}

// openStore opens the history database at the configured path.
func openStore(c *config.Config) (*store.DB, error) {
	db, err := store.Open(c.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

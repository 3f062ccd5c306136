// Package calendar resolves dates to the calendar facts the rules depend on
// (public and school holidays, weekday, ISO week). Providers are read-only;
// the engine resolves a whole range up front and hands rules a complete
// Table.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// Fact describes one calendar date.
type Fact struct {
	Date            time.Time    `json:"date"`
	Weekday         time.Weekday `json:"weekday"`
	ISOYear         int          `json:"iso_year"`
	ISOWeek         int          `json:"iso_week"`
	IsPublicHoliday bool         `json:"is_public_holiday"`
	IsSchoolHoliday bool         `json:"is_school_holiday"`
	HolidayName     string       `json:"holiday_name,omitempty"`
}

// IsSaturday reports whether the fact falls on a Saturday.
func (f Fact) IsSaturday() bool {
	return f.Weekday == time.Saturday
}

// IsWeekday reports whether the fact falls on Monday through Friday.
func (f Fact) IsWeekday() bool {
	return f.Weekday != time.Saturday && f.Weekday != time.Sunday
}

// Basic returns the fact for date with weekday and ISO week filled in and
// no holiday information.
func Basic(date time.Time) Fact {
	date = plan.Normalize(date)
	year, week := date.ISOWeek()
	return Fact{
		Date:    date,
		Weekday: date.Weekday(),
		ISOYear: year,
		ISOWeek: week,
	}
}

// Provider resolves a date to its calendar fact.
type Provider interface {
	Resolve(ctx context.Context, date time.Time) (Fact, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, date time.Time) (Fact, error)

// Resolve calls f.
func (f ProviderFunc) Resolve(ctx context.Context, date time.Time) (Fact, error) {
	return f(ctx, date)
}

// BasicProvider resolves every date to its Basic fact, without holidays.
var BasicProvider Provider = ProviderFunc(func(_ context.Context, date time.Time) (Fact, error) {
	return Basic(date), nil
})

// Lookup is the synchronous view of a resolved range handed to rules.
type Lookup interface {
	Fact(date time.Time) (Fact, bool)
}

// ResolveError reports a date the provider could not resolve.
type ResolveError struct {
	Date time.Time
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s: %v", plan.DateKey(e.Date), e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

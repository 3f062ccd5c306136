package calendar

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// maxConcurrentResolves bounds in-flight provider calls during Resolve.
const maxConcurrentResolves = 8

// Table holds the resolved facts of a contiguous date range.
type Table struct {
	start time.Time
	end   time.Time
	facts map[string]Fact
}

// Resolve asks p for every date in [start, end] and returns the complete
// table. Dates are fetched concurrently; any failure discards the partial
// result so that no rule ever sees an incomplete range.
func Resolve(ctx context.Context, p Provider, start, end time.Time) (*Table, error) {
	start, end = plan.Normalize(start), plan.Normalize(end)

	var dates []time.Time
	plan.EachDay(start, end, func(d time.Time) { dates = append(dates, d) })

	var mu sync.Mutex
	facts := make(map[string]Fact, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)
	for _, d := range dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ResolveError{Date: d, Err: err}
			}
			f, err := p.Resolve(gctx, d)
			if err != nil {
				return &ResolveError{Date: d, Err: err}
			}
			f.Date = d
			mu.Lock()
			facts[plan.DateKey(d)] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Table{start: start, end: end, facts: facts}, nil
}

// Fact returns the resolved fact for date. Dates outside the table report
// false.
func (t *Table) Fact(date time.Time) (Fact, bool) {
	f, ok := t.facts[plan.DateKey(plan.Normalize(date))]
	return f, ok
}

// Len returns the number of resolved dates.
func (t *Table) Len() int {
	return len(t.facts)
}

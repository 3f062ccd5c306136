package calendar

import (
	"context"
	"time"

	"github.com/blackwell-systems/plancheck/internal/plan"
)

// Period is an inclusive, named date range such as a school holiday.
type Period struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether date lies in the period.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(plan.Normalize(p.Start)) && !date.After(plan.Normalize(p.End))
}

// Static is an in-memory provider backed by fixed holiday tables.
type Static struct {
	public map[string]string
	school []Period
}

// NewStatic builds a provider from public holidays (date key -> name) and
// school holiday periods.
func NewStatic(public map[string]string, school []Period) *Static {
	p := &Static{
		public: make(map[string]string, len(public)),
		school: append([]Period(nil), school...),
	}
	for k, v := range public {
		p.public[k] = v
	}
	return p
}

// Resolve implements Provider.
func (s *Static) Resolve(_ context.Context, date time.Time) (Fact, error) {
	f := Basic(date)
	if name, ok := s.public[plan.DateKey(f.Date)]; ok {
		f.IsPublicHoliday = true
		f.HolidayName = name
	}
	for _, p := range s.school {
		if p.Contains(f.Date) {
			f.IsSchoolHoliday = true
			if f.HolidayName == "" {
				f.HolidayName = p.Name
			}
			break
		}
	}
	return f, nil
}

package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// InvalidSnapshotError reports a structural defect that makes a snapshot
// unfit for evaluation.
type InvalidSnapshotError struct {
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	return "invalid snapshot: " + e.Reason
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of s: a well-formed range,
// assignments inside the range, well-formed table entries and at most one
// active contract per staff member and date. Capacity overruns are not
// structural and are left to the rules.
func (s *Snapshot) Validate() error {
	if s == nil {
		return &InvalidSnapshotError{Reason: "snapshot is nil"}
	}
	if s.Start.IsZero() || s.End.IsZero() {
		return &InvalidSnapshotError{Reason: "date range is not set"}
	}
	if s.End.Before(s.Start) {
		return &InvalidSnapshotError{Reason: fmt.Sprintf("range end %s is before start %s", DateKey(s.End), DateKey(s.Start))}
	}

	if err := validate.Struct(s); err != nil {
		return &InvalidSnapshotError{Reason: describeValidation(err)}
	}

	for i, a := range s.Assignments {
		if a.Date.IsZero() {
			return &InvalidSnapshotError{Reason: fmt.Sprintf("assignment %d has no date", i)}
		}
		if !s.Contains(a.Date) {
			return &InvalidSnapshotError{Reason: fmt.Sprintf("assignment %d (%s, %s) lies outside %s..%s",
				i, a.StaffID, DateKey(a.Date), DateKey(s.Start), DateKey(s.End))}
		}
	}

	return checkContracts(s.Contracts)
}

// checkContracts rejects inverted validity ranges and overlapping contracts
// of the same staff member.
func checkContracts(contracts []StaffContract) error {
	byStaff := make(map[string][]StaffContract)
	for _, c := range contracts {
		if !c.ValidTo.IsZero() && c.ValidTo.Before(c.ValidFrom) {
			return &InvalidSnapshotError{Reason: fmt.Sprintf("contract of %s ends before it starts", c.StaffID)}
		}
		byStaff[c.StaffID] = append(byStaff[c.StaffID], c)
	}

	staff := make([]string, 0, len(byStaff))
	for id := range byStaff {
		staff = append(staff, id)
	}
	sort.Strings(staff)

	for _, id := range staff {
		cs := byStaff[id]
		sort.Slice(cs, func(i, j int) bool { return cs[i].ValidFrom.Before(cs[j].ValidFrom) })
		for i := 1; i < len(cs); i++ {
			prev := cs[i-1]
			if prev.ValidTo.IsZero() || !cs[i].ValidFrom.After(prev.ValidTo) {
				return &InvalidSnapshotError{Reason: fmt.Sprintf("contracts of %s overlap", id)}
			}
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %q constraint", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}

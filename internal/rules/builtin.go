package rules

// Built-in rule IDs.
const (
	IDContractHours         = "contract-hours"
	IDRoomCapacity          = "room-capacity"
	IDFrontdeskCoverage     = "frontdesk-coverage"
	IDJVACoverage           = "jva-coverage"
	IDAssistPerDoctor       = "assist-per-doctor"
	IDITN                   = "itn"
	IDProphylaxeMissing     = "prophylaxe-missing"
	IDProphylaxeOpportunity = "prophylaxe-opportunity"
	IDSaturdayCompensation  = "saturday-compensation"
	IDSchoolHoliday         = "schoolholiday"
	IDEmptyPlan             = "emptyPlan"
	IDPublicHoliday         = "public-holiday"
	IDStaffDoubleBooking    = "staff-double-booking"
	IDContractCoverage      = "contract-coverage"
)

// Registration pairs a rule with its default configuration.
type Registration struct {
	Rule   Rule
	Config Config
}

func defaultOffRoles() []string {
	return []string{"comp", "vacation", "sick"}
}

// Builtin returns every built-in rule with its default configuration, in
// registration order. Each call returns fresh values.
func Builtin() []Registration {
	return []Registration{
		{ContractHours{}, Config{Enabled: true, Order: 10, Params: map[string]any{
			"tolerance_hours":   2.0,
			"slot_hours":        4.0,
			"workdays_per_week": 5,
			"off_roles":         defaultOffRoles(),
		}}},
		{RoomCapacity{}, Config{Enabled: true, Order: 20, Params: map[string]any{
			"default_max": 1,
		}}},
		{Coverage{RuleID: IDFrontdeskCoverage}, Config{Enabled: true, Order: 30, Params: map[string]any{
			"requirements": []string{"frontdesk"},
		}}},
		{Coverage{RuleID: IDJVACoverage}, Config{Enabled: true, Order: 40, Params: map[string]any{
			"requirements": []string{"jva"},
		}}},
		{AssistPerDoctor{}, Config{Enabled: true, Order: 50, Params: map[string]any{
			"doctor_role":    "doctor",
			"assistant_role": "assistant",
			"ratio":          1,
		}}},
		{ITN{}, Config{Enabled: true, Order: 60, Params: map[string]any{
			"role":            "itn",
			"min_per_day":     1,
			"days":            "",
			"qualified_staff": []string{},
		}}},
		{ProphylaxeMissing{}, Config{Enabled: true, Order: 70, Params: map[string]any{
			"role":         "prophylaxis",
			"min_per_week": 2,
			"severity":     string(SeverityWarning),
		}}},
		{ProphylaxeOpportunity{}, Config{Enabled: true, Order: 80, Params: map[string]any{
			"role":     "prophylaxis",
			"min_free": 1,
		}}},
		{SaturdayCompensation{}, Config{Enabled: true, Order: 90, Params: map[string]any{
			"window_days":       14,
			"compensation_role": "comp",
		}}},
		{SchoolHoliday{}, Config{Enabled: true, Order: 100, Params: map[string]any{
			"reduction":     0.25,
			"max_headcount": 0,
			"off_roles":     defaultOffRoles(),
		}}},
		{EmptyPlan{}, Config{Enabled: true, Order: 110}},
		{PublicHoliday{}, Config{Enabled: true, Order: 120, Params: map[string]any{
			"off_roles": defaultOffRoles(),
		}}},
		{StaffDoubleBooking{}, Config{Enabled: true, Order: 130}},
		{ContractCoverage{}, Config{Enabled: true, Order: 140, Params: map[string]any{
			"off_roles": defaultOffRoles(),
		}}},
	}
}

// RegisterBuiltin registers every built-in rule on reg.
func RegisterBuiltin(reg *Registry) {
	for _, r := range Builtin() {
		reg.Register(r.Rule, r.Config)
	}
}

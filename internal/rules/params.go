package rules

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cast"
)

// Params gives a rule typed access to its resolved parameters. A value that
// cannot be coerced or fails its check is replaced by the registered
// default and recorded as a ConfigurationError.
type Params struct {
	ruleID   string
	values   map[string]any
	defaults map[string]any
	errs     []*ConfigurationError
	seen     map[string]bool
}

// NewParams builds the parameter view for one rule invocation. Values
// without a registered default are recorded as unknown parameters and
// ignored.
func NewParams(ruleID string, defaults, values map[string]any) *Params {
	p := &Params{
		ruleID:   ruleID,
		values:   maps.Clone(defaults),
		defaults: maps.Clone(defaults),
		seen:     make(map[string]bool),
	}
	if p.values == nil {
		p.values = make(map[string]any)
	}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if _, ok := defaults[name]; !ok {
			p.fail(name, values[name], "unknown parameter")
			continue
		}
		p.values[name] = values[name]
	}
	return p
}

// Errors returns the configuration errors recorded so far, in access order.
func (p *Params) Errors() []*ConfigurationError {
	return slices.Clone(p.errs)
}

func (p *Params) fail(name string, value any, reason string) {
	if p.seen[name] {
		return
	}
	p.seen[name] = true
	p.errs = append(p.errs, &ConfigurationError{
		RuleID: p.ruleID,
		Param:  name,
		Value:  fmt.Sprint(value),
		Reason: reason,
	})
}

// Float returns the named parameter as a float64. valid may be nil.
func (p *Params) Float(name string, valid func(float64) bool) float64 {
	def := cast.ToFloat64(p.defaults[name])
	raw, ok := p.values[name]
	if !ok {
		return def
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		p.fail(name, raw, "not a number")
		return def
	}
	if valid != nil && !valid(v) {
		p.fail(name, raw, "out of range")
		return def
	}
	return v
}

// Int returns the named parameter as an int. valid may be nil.
func (p *Params) Int(name string, valid func(int) bool) int {
	def := cast.ToInt(p.defaults[name])
	raw, ok := p.values[name]
	if !ok {
		return def
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		p.fail(name, raw, "not an integer")
		return def
	}
	if valid != nil && !valid(v) {
		p.fail(name, raw, "out of range")
		return def
	}
	return v
}

// String returns the named parameter as a string. valid may be nil.
func (p *Params) String(name string, valid func(string) bool) string {
	def := cast.ToString(p.defaults[name])
	raw, ok := p.values[name]
	if !ok {
		return def
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		p.fail(name, raw, "not a string")
		return def
	}
	if valid != nil && !valid(v) {
		p.fail(name, raw, "not an accepted value")
		return def
	}
	return v
}

// Strings returns the named parameter as a string list.
func (p *Params) Strings(name string) []string {
	def := cast.ToStringSlice(p.defaults[name])
	raw, ok := p.values[name]
	if !ok || raw == nil {
		return def
	}
	v, err := cast.ToStringSliceE(raw)
	if err != nil {
		p.fail(name, raw, "not a list")
		return def
	}
	return v
}

// Range checks.
func atLeast(floor float64) func(float64) bool {
	return func(v float64) bool { return v >= floor }
}

func between(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi }
}

func intAtLeast(floor int) func(int) bool {
	return func(v int) bool { return v >= floor }
}

func intBetween(lo, hi int) func(int) bool {
	return func(v int) bool { return v >= lo && v <= hi }
}

func nonEmpty(s string) bool { return s != "" }

package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRule(id string) Rule {
	return Func{RuleID: id, Fn: func(*Input) ([]Finding, error) { return nil, nil }}
}

// --- Registry ---

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRule("b"), Config{Enabled: true})
	reg.Register(stubRule("a"), Config{Enabled: true})
	reg.Register(stubRule("c"), Config{Enabled: false})

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "c", list[2].ID)
	assert.Equal(t, 2, list[2].Index)
	assert.False(t, list[2].Config.Enabled)
}

func TestRegistry_ReRegisterReplacesInPlace(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRule("a"), Config{Enabled: true, Params: map[string]any{"x": 1}})
	reg.Register(stubRule("b"), Config{Enabled: true})
	reg.Register(stubRule("a"), Config{Enabled: false, Params: map[string]any{"x": 2}})

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.False(t, list[0].Config.Enabled)
	assert.Equal(t, 2, list[0].Config.Params["x"])
}

func TestRegistry_ConfigureOverlaysDefaults(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRule("a"), Config{Enabled: true, Params: map[string]any{"x": 1, "y": "keep"}})

	require.NoError(t, reg.Configure("a", map[string]any{"x": 5}))
	require.NoError(t, reg.Configure("a", map[string]any{"z": true}))

	cfg, ok := reg.Resolved("a")
	require.True(t, ok)
	assert.Equal(t, 5, cfg.Params["x"])
	assert.Equal(t, "keep", cfg.Params["y"])
	assert.Equal(t, true, cfg.Params["z"])

	// defaults stay untouched
	assert.Equal(t, 1, reg.List()[0].Defaults["x"])
}

func TestRegistry_UnknownRule(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRule("a"), Config{Enabled: true})

	tests := []struct {
		name string
		op   func() error
	}{
		{"enable", func() error { return reg.SetEnabled("nope", true) }},
		{"order", func() error { return reg.SetOrder("nope", 3) }},
		{"configure", func() error { return reg.Configure("nope", nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownRule))
			assert.Contains(t, err.Error(), "nope")
		})
	}

	_, ok := reg.Resolved("nope")
	assert.False(t, ok)
}

func TestRegistry_SetEnabledAndOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRule("a"), Config{Enabled: true, Order: 10})

	require.NoError(t, reg.SetEnabled("a", false))
	require.NoError(t, reg.SetOrder("a", 99))

	cfg, _ := reg.Resolved("a")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 99, cfg.Order)
}

// --- Builtin ---

func TestBuiltin_UniqueIDsAndOrders(t *testing.T) {
	ids := make(map[string]bool)
	orders := make(map[int]bool)
	for _, r := range Builtin() {
		id := r.Rule.ID()
		assert.False(t, ids[id], "duplicate id %s", id)
		assert.False(t, orders[r.Config.Order], "duplicate order %d", r.Config.Order)
		ids[id] = true
		orders[r.Config.Order] = true
		assert.True(t, r.Config.Enabled, "%s should be enabled by default", id)
	}
	assert.Len(t, ids, 14)

	reg := NewRegistry()
	RegisterBuiltin(reg)
	assert.Equal(t, 14, reg.Len())
	assert.Equal(t, IDContractHours, reg.List()[0].ID)
}

func TestBuiltin_FreshValuesPerCall(t *testing.T) {
	a := Builtin()
	a[0].Config.Params["tolerance_hours"] = 99.0
	b := Builtin()
	assert.Equal(t, 2.0, b[0].Config.Params["tolerance_hours"])
}

// --- Params ---

func TestParams_FallbackRecordsError(t *testing.T) {
	p := NewParams("r", map[string]any{"n": 14, "f": 0.5, "s": "warning"}, map[string]any{
		"n": "lots",
		"f": 7.0,
		"s": "loud",
	})

	assert.Equal(t, 14, p.Int("n", intBetween(1, 90)))
	assert.Equal(t, 0.5, p.Float("f", between(0, 1)))
	assert.Equal(t, "warning", p.String("s", validSeverity))

	// a second read of the same param does not record twice
	p.Int("n", intBetween(1, 90))

	errs := p.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, "n", errs[0].Param)
	assert.Equal(t, "lots", errs[0].Value)
	assert.Equal(t, "r", errs[0].RuleID)
	assert.Contains(t, errs[0].Error(), "using default")
}

func TestParams_CoercesCompatibleValues(t *testing.T) {
	p := NewParams("r", map[string]any{"n": 1, "list": []string{"a"}}, map[string]any{
		"n":    "7",
		"list": []any{"x", "y"},
	})
	assert.Equal(t, 7, p.Int("n", nil))
	assert.Equal(t, []string{"x", "y"}, p.Strings("list"))
	assert.Empty(t, p.Errors())
}

func TestParams_UnknownNameRecorded(t *testing.T) {
	p := NewParams("r", map[string]any{"tolerance_hours": 2.0}, map[string]any{
		"tolerence_hours": 3.0,
		"another":         true,
	})
	assert.Equal(t, 2.0, p.Float("tolerance_hours", nil))

	errs := p.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "another", errs[0].Param)
	assert.Equal(t, "tolerence_hours", errs[1].Param)
	assert.Equal(t, "unknown parameter", errs[1].Reason)
	assert.Equal(t, "3", errs[1].Value)
}

func TestParams_MissingUsesDefault(t *testing.T) {
	p := NewParams("r", map[string]any{"n": 3}, nil)
	assert.Equal(t, 3, p.Int("n", nil))
	assert.Equal(t, "", p.String("absent", nil))
	assert.Empty(t, p.Errors())
}

package rules

import (
	"fmt"
	"maps"
	"sync"
)

// Config is the per-rule configuration: whether the rule runs, its sort
// order relative to other rules, and its parameters.
type Config struct {
	Enabled bool           `json:"enabled"`
	Order   int            `json:"order"`
	Params  map[string]any `json:"params,omitempty"`
}

// Descriptor is a registered rule together with its resolved config.
type Descriptor struct {
	ID       string
	Rule     Rule
	Index    int
	Config   Config
	Defaults map[string]any
}

type entry struct {
	rule      Rule
	defaults  Config
	enabled   bool
	order     int
	overrides map[string]any
}

// Registry is an ordered collection of rules with per-rule configuration.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds rule with its default config. Registering an ID that is
// already present replaces the rule and its config in place, keeping its
// original position.
func (r *Registry) Register(rule Rule, defaults Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{
		rule:     rule,
		defaults: Config{Enabled: defaults.Enabled, Order: defaults.Order, Params: maps.Clone(defaults.Params)},
		enabled:  defaults.Enabled,
		order:    defaults.Order,
	}
	if i, ok := r.index[rule.ID()]; ok {
		r.entries[i] = e
		return
	}
	r.index[rule.ID()] = len(r.entries)
	r.entries = append(r.entries, e)
}

func (r *Registry) lookup(id string) (*entry, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}
	return r.entries[i], nil
}

// SetEnabled turns a rule on or off.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.enabled = enabled
	return nil
}

// SetOrder changes the sort order of a rule's findings relative to other
// rules. Equal orders fall back to registration order.
func (r *Registry) SetOrder(id string, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.order = order
	return nil
}

// Configure overlays params on the rule's registered defaults. Later calls
// overlay earlier ones.
func (r *Registry) Configure(id string, params map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	if e.overrides == nil {
		e.overrides = make(map[string]any, len(params))
	}
	maps.Copy(e.overrides, params)
	return nil
}

// List returns every registered rule in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.describe(i)
	}
	return out
}

// Resolved returns the effective config of one rule.
func (r *Registry) Resolved(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Config{}, false
	}
	return r.entries[i].describe(i).Config, true
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) describe(i int) Descriptor {
	params := maps.Clone(e.defaults.Params)
	if params == nil {
		params = make(map[string]any)
	}
	maps.Copy(params, e.overrides)
	return Descriptor{
		ID:       e.rule.ID(),
		Rule:     e.rule,
		Index:    i,
		Config:   Config{Enabled: e.enabled, Order: e.order, Params: params},
		Defaults: maps.Clone(e.defaults.Params),
	}
}

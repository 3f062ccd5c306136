package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/plancheck/internal/calendar"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// Config is the top-level plancheck configuration.
type Config struct {
	Rules      map[string]Rule `mapstructure:"rules" validate:"dive"`
	Calendar   Calendar        `mapstructure:"calendar"`
	Controller Controller      `mapstructure:"controller"`
	Store      Store           `mapstructure:"store"`
	Output     Output          `mapstructure:"output"`
	Log        Log             `mapstructure:"log"`
}

// Rule overrides the registered defaults of one rule. Unset fields keep
// the defaults.
type Rule struct {
	Enabled *bool          `mapstructure:"enabled"`
	Order   *int           `mapstructure:"order"`
	Params  map[string]any `mapstructure:"params"`
}

// Calendar holds the holiday tables served by the static calendar
// provider. Public holidays map YYYY-MM-DD to a name.
type Calendar struct {
	PublicHolidays map[string]string `mapstructure:"public_holidays"`
	SchoolHolidays []Period          `mapstructure:"school_holidays" validate:"dive"`
}

// Period is a named, inclusive school holiday range.
type Period struct {
	Name  string `mapstructure:"name"`
	Start string `mapstructure:"start" validate:"required,datetime=2006-01-02"`
	End   string `mapstructure:"end" validate:"required,datetime=2006-01-02"`
}

// Controller defines the watch loop timings.
type Controller struct {
	Debounce     time.Duration `mapstructure:"debounce" validate:"gte=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// Store defines where evaluation history is kept and how much of it.
type Store struct {
	Path string `mapstructure:"path"`
	Keep int    `mapstructure:"keep" validate:"gte=0"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width" validate:"gte=40,lte=400"`
}

// Log defines logging preferences.
type Log struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a validated Config with all defaults applied. Environment
// variables prefixed with PLANCHECK_ override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("controller.debounce", DefaultController.Debounce)
	v.SetDefault("controller.poll_interval", DefaultController.PollInterval)
	v.SetDefault("store.path", DefaultStore.Path)
	v.SetDefault("store.keep", DefaultStore.Keep)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log.level", DefaultLog.Level)
	v.SetDefault("log.json", DefaultLog.JSON)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	read := true
	if cfgFile != "" {
		path := expandPath(cfgFile)
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
			read = false
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if read {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Store.Path = expandPath(cfg.Store.Path)
	if cfg.Store.Path == "" {
		cfg.Store.Path = DBPath()
	}
	return &cfg, nil
}

// Validate checks field constraints and the calendar tables.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q constraint", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.CalendarProvider(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CalendarProvider builds the static calendar provider from the configured
// holiday tables.
func (c *Config) CalendarProvider() (*calendar.Static, error) {
	public := make(map[string]string, len(c.Calendar.PublicHolidays))
	for key, name := range c.Calendar.PublicHolidays {
		date, err := plan.ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("public holiday %q: %w", key, err)
		}
		public[plan.DateKey(date)] = name
	}

	school := make([]calendar.Period, 0, len(c.Calendar.SchoolHolidays))
	for _, p := range c.Calendar.SchoolHolidays {
		start, err := plan.ParseDate(p.Start)
		if err != nil {
			return nil, fmt.Errorf("school holiday %q start: %w", p.Name, err)
		}
		end, err := plan.ParseDate(p.End)
		if err != nil {
			return nil, fmt.Errorf("school holiday %q end: %w", p.Name, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("school holiday %q ends before it starts", p.Name)
		}
		school = append(school, calendar.Period{Name: p.Name, Start: start, End: end})
	}
	return calendar.NewStatic(public, school), nil
}

// ApplyRules overlays the configured rule overrides on reg. Rule IDs match
// case-insensitively because config keys are case-insensitive. Overrides
// for unknown rules are reported together after the known ones are applied.
func (c *Config) ApplyRules(reg *rules.Registry) error {
	ids := make(map[string]string, reg.Len())
	for _, d := range reg.List() {
		ids[strings.ToLower(d.ID)] = d.ID
	}

	var errs []error
	for key, rc := range c.Rules {
		id, ok := ids[strings.ToLower(key)]
		if !ok {
			errs = append(errs, fmt.Errorf("config rules.%s: %w", key, rules.ErrUnknownRule))
			continue
		}
		if rc.Enabled != nil {
			if err := reg.SetEnabled(id, *rc.Enabled); err != nil {
				errs = append(errs, err)
			}
		}
		if rc.Order != nil {
			if err := reg.SetOrder(id, *rc.Order); err != nil {
				errs = append(errs, err)
			}
		}
		if len(rc.Params) > 0 {
			if err := reg.Configure(id, rc.Params); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DBPath returns the default path to the SQLite history database.
func DBPath() string {
	return filepath.Join(ConfigDir(), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

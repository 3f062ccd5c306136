// Package config provides configuration loading and defaults for plancheck.
package config

import "time"

// DefaultConfigDir is the default location for plancheck configuration.
const DefaultConfigDir = "~/.config/plancheck"

// DefaultDBName is the filename for the SQLite history database.
const DefaultDBName = "plancheck.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultEnvPrefix prefixes environment overrides, e.g. PLANCHECK_LOG_LEVEL.
const DefaultEnvPrefix = "PLANCHECK"

// DefaultController holds the default watch loop timings.
var DefaultController = Controller{
	Debounce:     250 * time.Millisecond,
	PollInterval: 2 * time.Second,
}

// DefaultStore holds the default history settings. An empty path means
// DefaultDBName inside the config directory.
var DefaultStore = Store{
	Keep: 200,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 100,
}

// DefaultLog holds the default logging settings.
var DefaultLog = Log{
	Level: "info",
}

package rules

import (
	"errors"
	"fmt"
)

// ErrUnknownRule is returned for operations on a rule ID that is not
// registered.
var ErrUnknownRule = errors.New("unknown rule")

// RuleExecutionError wraps a failure raised while a rule evaluated.
type RuleExecutionError struct {
	RuleID string
	Err    error
}

func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

func (e *RuleExecutionError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a rule parameter that failed validation. The
// rule keeps running with the parameter's default.
type ConfigurationError struct {
	RuleID string
	Param  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rule %s: parameter %s=%q %s, using default", e.RuleID, e.Param, e.Value, e.Reason)
}

// Package store persists evaluation reports in SQLite so that findings can
// be compared across runs.
package store

import (
	"time"

	"github.com/blackwell-systems/plancheck/internal/engine"
)

// Evaluation is one recorded report, without its findings.
type Evaluation struct {
	ID          string         `json:"id"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Digest      string         `json:"digest,omitempty"`
	Rules       []string       `json:"rules"`
	Summary     engine.Summary `json:"summary"`
}

// RuleCount is the number of findings a rule produced across recorded
// evaluations.
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int    `json:"count"`
}

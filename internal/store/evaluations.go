package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/plancheck/internal/engine"
	"github.com/blackwell-systems/plancheck/internal/plan"
	"github.com/blackwell-systems/plancheck/internal/rules"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const evaluationColumns = `id, evaluated_at, plan_start, plan_end, digest, rules,
	errors, warnings, infos, opportunities`

// RecordReport stores r and its findings in one transaction and returns the
// new evaluation ID.
func (db *DB) RecordReport(r *engine.Report, at time.Time) (string, error) {
	if r == nil {
		return "", fmt.Errorf("record report: nil report")
	}
	id := uuid.NewString()

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO evaluations (`+evaluationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, at.UTC().Format(timeLayout), plan.DateKey(r.Start), plan.DateKey(r.End),
		r.Digest, strings.Join(r.Rules, ","),
		r.Summary.Errors, r.Summary.Warnings, r.Summary.Infos, r.Summary.Opportunities,
	); err != nil {
		return "", fmt.Errorf("inserting evaluation: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO findings
		(evaluation_id, position, rule_id, severity, date, slot, room, staff, key, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() { _ = stmt.Close() }()

	for i, f := range r.Findings {
		var payload sql.NullString
		if len(f.Payload) > 0 {
			data, err := json.Marshal(f.Payload)
			if err != nil {
				return "", fmt.Errorf("encoding payload of %s: %w", f.Key, err)
			}
			payload = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.Exec(id, i, f.RuleID, string(f.Severity), plan.DateKey(f.Scope.Date),
			f.Scope.Slot, f.Scope.Room, f.Scope.Staff, f.Key, payload); err != nil {
			return "", fmt.Errorf("inserting finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListEvaluations returns the most recent evaluations, newest first. A
// limit of zero or less returns all of them.
func (db *DB) ListEvaluations(limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT `+evaluationColumns+` FROM evaluations
		ORDER BY evaluated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var evals []Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *e)
	}
	return evals, rows.Err()
}

// GetEvaluation returns an evaluation by ID, or nil if it does not exist.
func (db *DB) GetEvaluation(id string) (*Evaluation, error) {
	row := db.conn.QueryRow(`SELECT `+evaluationColumns+` FROM evaluations WHERE id = ?`, id)
	e, err := scanEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetFindings returns the findings of one evaluation in report order.
func (db *DB) GetFindings(evaluationID string) ([]rules.Finding, error) {
	rows, err := db.conn.Query(
		`SELECT rule_id, severity, date, slot, room, staff, key, payload
		FROM findings WHERE evaluation_id = ? ORDER BY position`, evaluationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var findings []rules.Finding
	for rows.Next() {
		var (
			f       rules.Finding
			sev     string
			date    string
			payload sql.NullString
		)
		if err := rows.Scan(&f.RuleID, &sev, &date, &f.Scope.Slot, &f.Scope.Room,
			&f.Scope.Staff, &f.Key, &payload); err != nil {
			return nil, err
		}
		f.Severity = rules.Severity(sev)
		if f.Scope.Date, err = plan.ParseDate(date); err != nil {
			return nil, fmt.Errorf("finding %s: %w", f.Key, err)
		}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &f.Payload); err != nil {
				return nil, fmt.Errorf("decoding payload of %s: %w", f.Key, err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// GetReport rebuilds the report recorded under id, or returns nil if it does
// not exist. Payload numbers come back as float64.
func (db *DB) GetReport(id string) (*engine.Report, error) {
	e, err := db.GetEvaluation(id)
	if err != nil || e == nil {
		return nil, err
	}
	findings, err := db.GetFindings(id)
	if err != nil {
		return nil, err
	}
	return &engine.Report{
		Start:    e.Start,
		End:      e.End,
		Digest:   e.Digest,
		Rules:    e.Rules,
		Findings: findings,
		Summary:  e.Summary,
	}, nil
}

// RuleCounts returns how many findings each rule produced over the last n
// evaluations, most frequent first.
func (db *DB) RuleCounts(n int) ([]RuleCount, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := db.conn.Query(`
		SELECT f.rule_id, COUNT(*) AS n FROM findings f
		WHERE f.evaluation_id IN (
			SELECT id FROM evaluations ORDER BY evaluated_at DESC, rowid DESC LIMIT ?
		)
		GROUP BY f.rule_id ORDER BY n DESC, f.rule_id`, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []RuleCount
	for rows.Next() {
		var c RuleCount
		if err := rows.Scan(&c.RuleID, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Prune deletes all but the keep most recent evaluations and returns how
// many were removed.
func (db *DB) Prune(keep int) (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM evaluations WHERE id NOT IN (
			SELECT id FROM evaluations ORDER BY evaluated_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (*Evaluation, error) {
	var (
		e                       Evaluation
		at, start, end, ruleIDs string
	)
	err := row.Scan(&e.ID, &at, &start, &end, &e.Digest, &ruleIDs,
		&e.Summary.Errors, &e.Summary.Warnings, &e.Summary.Infos, &e.Summary.Opportunities)
	if err != nil {
		return nil, err
	}
	e.EvaluatedAt, _ = time.Parse(timeLayout, at)
	e.Start, _ = plan.ParseDate(start)
	e.End, _ = plan.ParseDate(end)
	if ruleIDs != "" {
		e.Rules = strings.Split(ruleIDs, ",")
	}
	return &e, nil
}

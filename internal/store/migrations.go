package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means a fresh database.
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the evaluation history tables.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id            TEXT PRIMARY KEY,
			evaluated_at  TEXT NOT NULL,
			plan_start    TEXT NOT NULL,
			plan_end      TEXT NOT NULL,
			digest        TEXT NOT NULL DEFAULT '',
			rules         TEXT NOT NULL DEFAULT '',
			errors        INTEGER NOT NULL,
			warnings      INTEGER NOT NULL,
			infos         INTEGER NOT NULL,
			opportunities INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS findings (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			rule_id       TEXT NOT NULL,
			severity      TEXT NOT NULL,
			date          TEXT NOT NULL,
			slot          TEXT NOT NULL DEFAULT '',
			room          TEXT NOT NULL DEFAULT '',
			staff         TEXT NOT NULL DEFAULT '',
			key           TEXT NOT NULL,
			payload       TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_evaluations_at ON evaluations(evaluated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_evaluation ON findings(evaluation_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

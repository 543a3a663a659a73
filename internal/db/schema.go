package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 2

// CurrentSchemaVersion returns the schema version this build writes.
func CurrentSchemaVersion() int { return currentSchemaVersion }

// schemaDDL contains the CREATE TABLE statements for the full schema.
const schemaDDL = v1DDL + v2DDL

// v1DDL holds the core tracking tables. mr_records has no foreign key to
// issue_records; retention cleanup removes children first.
const v1DDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS project_mappings (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	analysis_project_key TEXT NOT NULL UNIQUE,
	ticket_project_key   TEXT NOT NULL,
	created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_records (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	finding_key          TEXT NOT NULL UNIQUE,
	ticket_key           TEXT,
	ticket_project_key   TEXT,
	analysis_project_key TEXT,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mr_records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	finding_key      TEXT NOT NULL,
	mr_url           TEXT NOT NULL,
	mr_external_id   TEXT,
	project_id       TEXT,
	title            TEXT,
	description      TEXT,
	branch_name      TEXT,
	source_branch    TEXT,
	target_branch    TEXT,
	status           TEXT NOT NULL DEFAULT 'created',
	rejection_reason TEXT,
	submitted_at     TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	is_latest        INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_project_mappings_analysis_key ON project_mappings(analysis_project_key);
CREATE INDEX IF NOT EXISTS idx_issue_records_finding_key ON issue_records(finding_key);
CREATE INDEX IF NOT EXISTS idx_issue_records_analysis_key ON issue_records(analysis_project_key);
CREATE INDEX IF NOT EXISTS idx_mr_records_finding_key ON mr_records(finding_key);
CREATE INDEX IF NOT EXISTS idx_mr_records_mr_url ON mr_records(mr_url);
CREATE INDEX IF NOT EXISTS idx_mr_records_status ON mr_records(status);
CREATE INDEX IF NOT EXISTS idx_mr_records_latest ON mr_records(is_latest);
CREATE INDEX IF NOT EXISTS idx_mr_records_submitted_at ON mr_records(submitted_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_mr_records_one_latest ON mr_records(finding_key) WHERE is_latest = 1;
`

// v2DDL adds the MR activity log and reconciliation run history.
const v2DDL = `
CREATE TABLE IF NOT EXISTS mr_activity (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	mr_id         INTEGER NOT NULL REFERENCES mr_records(id) ON DELETE CASCADE,
	field_changed TEXT NOT NULL,
	old_value     TEXT,
	new_value     TEXT,
	changed_by    TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mr_activity_mr_id ON mr_activity(mr_id);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id            TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	success       INTEGER NOT NULL,
	total_checked INTEGER NOT NULL DEFAULT 0,
	updated       INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	error         TEXT
);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_started_at ON reconcile_runs(started_at);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they migrate TO.
// For example, migrations[2] migrates from version 1 to version 2.
var migrations = map[int]func(tx *sql.Tx) error{
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(v2DDL)
		return err
	},
}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

const mrColumns = `m.id, m.finding_key, m.mr_url, m.mr_external_id, m.project_id, m.title, m.description,
	m.branch_name, m.source_branch, m.target_branch, m.status, m.rejection_reason,
	m.submitted_at, m.updated_at, m.is_latest`

// CreateMrRecord inserts a new submission for in.FindingKey and makes it the
// latest one. The previous latest record, if any, is demoted in the same
// transaction. Returns the new record's ID.
func CreateMrRecord(db *sql.DB, in model.MrInput, changedBy string) (int64, error) {
	status := in.Status
	if status == "" {
		status = model.MrStatusCreated
	}
	if err := model.ValidateMrStatus(status); err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(Now())

	if _, err := tx.Exec(
		`UPDATE mr_records SET is_latest = 0, updated_at = ?
		 WHERE finding_key = ? AND is_latest = 1`,
		now, in.FindingKey,
	); err != nil {
		return 0, fmt.Errorf("demoting latest mr record: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO mr_records (finding_key, mr_url, mr_external_id, project_id, title, description,
			branch_name, source_branch, target_branch, status, submitted_at, updated_at, is_latest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		in.FindingKey, in.MrURL, in.MrExternalID, in.ProjectID, in.Title, in.Description,
		in.BranchName, in.SourceBranch, in.TargetBranch, string(status), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting mr record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	if err := RecordMrActivity(tx, id, "created", "", string(status), changedBy); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return id, nil
}

// UpdateMrStatusByURL sets the status of every record carrying mrURL, latest
// or not. A nil reason keeps the stored rejection reason. Status changes are
// written to mr_activity in the same transaction. Returns the number of rows
// matched; zero means no record has that URL.
func UpdateMrStatusByURL(db *sql.DB, mrURL string, status model.MrStatus, reason *string, changedBy string) (int, error) {
	if err := model.ValidateMrStatus(status); err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	type current struct {
		id     int64
		status string
		reason sql.NullString
	}

	rows, err := tx.Query(`SELECT id, status, rejection_reason FROM mr_records WHERE mr_url = ?`, mrURL)
	if err != nil {
		return 0, fmt.Errorf("querying mr records by url: %w", err)
	}
	var matched []current
	for rows.Next() {
		var c current
		if err := rows.Scan(&c.id, &c.status, &c.reason); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning mr record: %w", err)
		}
		matched = append(matched, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating mr records: %w", err)
	}
	rows.Close()

	if len(matched) == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(
		`UPDATE mr_records
		 SET status = ?, rejection_reason = COALESCE(?, rejection_reason), updated_at = ?
		 WHERE mr_url = ?`,
		string(status), reason, formatTime(Now()), mrURL,
	); err != nil {
		return 0, fmt.Errorf("updating mr status: %w", err)
	}

	for _, c := range matched {
		if c.status != string(status) {
			if err := RecordMrActivity(tx, c.id, "status", c.status, string(status), changedBy); err != nil {
				return 0, err
			}
		}
		if reason != nil && (!c.reason.Valid || c.reason.String != *reason) {
			if err := RecordMrActivity(tx, c.id, "rejection_reason", c.reason.String, *reason, changedBy); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return len(matched), nil
}

// GetLatestMrRecord returns the record flagged latest for findingKey or
// ErrNotFound.
func GetLatestMrRecord(q queryer, findingKey string) (*model.MrRecord, error) {
	row := q.QueryRow(
		`SELECT `+mrColumns+` FROM mr_records m
		 WHERE m.finding_key = ? AND m.is_latest = 1`, findingKey,
	)
	m, err := scanMrRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning mr record: %w", err)
	}
	return m, nil
}

// GetMrRecords returns every submission for findingKey, newest first.
func GetMrRecords(q queryer, findingKey string) ([]model.MrRecord, error) {
	rows, err := q.Query(
		`SELECT `+mrColumns+` FROM mr_records m
		 WHERE m.finding_key = ?
		 ORDER BY m.submitted_at DESC, m.id DESC`, findingKey,
	)
	if err != nil {
		return nil, fmt.Errorf("querying mr records: %w", err)
	}
	return collectMrRecords(rows, scanMrRecord)
}

// GetRejectedMrRecords returns all rejected submissions joined with their
// issue record, most recently updated first. Submissions whose issue record
// is gone are still returned, without ticket context.
func GetRejectedMrRecords(q queryer) ([]model.MrRecord, error) {
	rows, err := q.Query(
		`SELECT `+mrColumns+`, i.ticket_key, i.analysis_project_key
		 FROM mr_records m
		 LEFT JOIN issue_records i ON i.finding_key = m.finding_key
		 WHERE m.status = ?
		 ORDER BY m.updated_at DESC, m.id DESC`, string(model.MrStatusRejected),
	)
	if err != nil {
		return nil, fmt.Errorf("querying rejected mr records: %w", err)
	}
	return collectMrRecords(rows, scanJoinedMrRecord)
}

// GetPendingMrRecords returns records whose status is not in terminal and
// that were submitted at or after since, oldest first.
func GetPendingMrRecords(q queryer, terminal []model.MrStatus, since time.Time) ([]model.MrRecord, error) {
	query := `SELECT ` + mrColumns + ` FROM mr_records m WHERE m.submitted_at >= ?`
	args := []any{formatTime(since)}

	if len(terminal) > 0 {
		query += ` AND m.status NOT IN (` + makePlaceholders(len(terminal)) + `)`
		for _, s := range terminal {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY m.submitted_at ASC, m.id ASC`

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pending mr records: %w", err)
	}
	return collectMrRecords(rows, scanMrRecord)
}

func collectMrRecords(rows *sql.Rows, scan func(scanner) (*model.MrRecord, error)) ([]model.MrRecord, error) {
	defer rows.Close()

	var records []model.MrRecord
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mr record row: %w", err)
		}
		records = append(records, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mr record rows: %w", err)
	}
	return records, nil
}

// mrDest holds the nullable scan targets shared by both MR row shapes.
type mrDest struct {
	m                                         model.MrRecord
	externalID, projectID, title, description sql.NullString
	branch, source, target, reason            sql.NullString
	status, submittedAt, updatedAt            string
	isLatest                                  int
}

func (d *mrDest) fields() []any {
	return []any{
		&d.m.ID, &d.m.FindingKey, &d.m.MrURL, &d.externalID, &d.projectID, &d.title, &d.description,
		&d.branch, &d.source, &d.target, &d.status, &d.reason,
		&d.submittedAt, &d.updatedAt, &d.isLatest,
	}
}

func (d *mrDest) record() (*model.MrRecord, error) {
	m := d.m
	m.MrExternalID = d.externalID.String
	m.ProjectID = d.projectID.String
	m.Title = d.title.String
	m.Description = d.description.String
	m.BranchName = d.branch.String
	m.SourceBranch = d.source.String
	m.TargetBranch = d.target.String
	m.Status = model.MrStatus(d.status)
	m.RejectionReason = nullString(d.reason)
	m.IsLatest = d.isLatest != 0

	t, err := parseTime("submitted_at", d.submittedAt)
	if err != nil {
		return nil, err
	}
	m.SubmittedAt = t

	t, err = parseTime("updated_at", d.updatedAt)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = t

	return &m, nil
}

func scanMrRecord(s scanner) (*model.MrRecord, error) {
	var d mrDest
	if err := s.Scan(d.fields()...); err != nil {
		return nil, err
	}
	return d.record()
}

func scanJoinedMrRecord(s scanner) (*model.MrRecord, error) {
	var d mrDest
	var ticketKey, analysisKey sql.NullString
	if err := s.Scan(append(d.fields(), &ticketKey, &analysisKey)...); err != nil {
		return nil, err
	}
	m, err := d.record()
	if err != nil {
		return nil, err
	}
	m.TicketKey = nullString(ticketKey)
	m.AnalysisProjectKey = nullString(analysisKey)
	return m, nil
}

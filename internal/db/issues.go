package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

const issueColumns = `id, finding_key, ticket_key, ticket_project_key, analysis_project_key, created_at, updated_at`

// InsertIssue inserts an issue record unless one already exists for the same
// finding key. Nil ticket fields produce a placeholder. Returns true if a row
// was inserted; an existing record is never modified.
func InsertIssue(q queryer, findingKey string, ticketKey, ticketProjectKey, analysisProjectKey *string) (bool, error) {
	now := formatTime(Now())
	res, err := q.Exec(
		`INSERT INTO issue_records (finding_key, ticket_key, ticket_project_key, analysis_project_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(finding_key) DO NOTHING`,
		findingKey, ticketKey, ticketProjectKey, analysisProjectKey, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("inserting issue record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// GetIssue retrieves the issue record for a finding key.
func GetIssue(q queryer, findingKey string) (*model.IssueRecord, error) {
	row := q.QueryRow(`SELECT `+issueColumns+` FROM issue_records WHERE finding_key = ?`, findingKey)
	issue, err := scanIssueFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning issue record: %w", err)
	}
	return issue, nil
}

// IssueHasTicket reports whether a record exists for findingKey with both
// ticket fields populated.
func IssueHasTicket(q queryer, findingKey string) (bool, error) {
	var found bool
	err := q.QueryRow(
		`SELECT EXISTS(
			SELECT 1 FROM issue_records
			WHERE finding_key = ? AND ticket_key IS NOT NULL AND ticket_project_key IS NOT NULL
		)`, findingKey,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("checking issue ticket: %w", err)
	}
	return found, nil
}

// BackfillTicket fills the empty ticket fields of a record. A field that is
// already set keeps its value, so a partially populated record only gains
// the missing half. The analysis project key is filled the same way.
// Returns true if a row was updated.
func BackfillTicket(q queryer, findingKey, ticketKey, ticketProjectKey string, analysisProjectKey *string) (bool, error) {
	res, err := q.Exec(
		`UPDATE issue_records
		 SET ticket_key = COALESCE(ticket_key, ?),
		     ticket_project_key = COALESCE(ticket_project_key, ?),
		     analysis_project_key = COALESCE(analysis_project_key, ?),
		     updated_at = ?
		 WHERE finding_key = ? AND (ticket_key IS NULL OR ticket_project_key IS NULL)`,
		ticketKey, ticketProjectKey, analysisProjectKey, formatTime(Now()), findingKey,
	)
	if err != nil {
		return false, fmt.Errorf("backfilling issue ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// ListIssuesByProject returns the records tracked for one analysis project,
// most recently updated first.
func ListIssuesByProject(q queryer, analysisProjectKey string) ([]model.IssueRecord, error) {
	rows, err := q.Query(
		`SELECT `+issueColumns+` FROM issue_records
		 WHERE analysis_project_key = ?
		 ORDER BY updated_at DESC, id DESC`, analysisProjectKey,
	)
	if err != nil {
		return nil, fmt.Errorf("querying issues by project: %w", err)
	}
	defer rows.Close()

	var issues []model.IssueRecord
	for rows.Next() {
		issue, err := scanIssueFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue rows: %w", err)
	}
	return issues, nil
}

// scanIssueFrom scans a single issue record from any scanner (*sql.Row or *sql.Rows).
func scanIssueFrom(s scanner) (*model.IssueRecord, error) {
	var i model.IssueRecord
	var ticketKey, ticketProject, analysisProject sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&i.ID, &i.FindingKey, &ticketKey, &ticketProject, &analysisProject, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	i.TicketKey = nullString(ticketKey)
	i.TicketProjectKey = nullString(ticketProject)
	i.AnalysisProjectKey = nullString(analysisProject)

	t, err := parseTime("created_at", createdAt)
	if err != nil {
		return nil, err
	}
	i.CreatedAt = t

	t, err = parseTime("updated_at", updatedAt)
	if err != nil {
		return nil, err
	}
	i.UpdatedAt = t

	return &i, nil
}

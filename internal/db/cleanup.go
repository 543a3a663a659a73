package db

import (
	"database/sql"
	"fmt"
	"time"
)

// CleanupCounts reports how many rows a retention pass removed per table.
type CleanupCounts struct {
	MrRecords       int64 `json:"mr_records"`
	IssueRecords    int64 `json:"issue_records"`
	ProjectMappings int64 `json:"project_mappings"`
}

// Total returns the number of rows removed across all tables.
func (c CleanupCounts) Total() int64 {
	return c.MrRecords + c.IssueRecords + c.ProjectMappings
}

// DeleteOlderThan removes rows created before cutoff in one transaction.
// Merge request records go first: those submitted before the cutoff plus any
// belonging to an issue record that is about to expire. Issue records follow,
// then project mappings.
func DeleteOlderThan(db *sql.DB, cutoff time.Time) (CleanupCounts, error) {
	var counts CleanupCounts
	c := formatTime(cutoff)

	tx, err := db.Begin()
	if err != nil {
		return counts, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM mr_records
		 WHERE submitted_at < ?
		    OR finding_key IN (SELECT finding_key FROM issue_records WHERE created_at < ?)`,
		c, c,
	)
	if err != nil {
		return counts, fmt.Errorf("deleting mr records: %w", err)
	}
	if counts.MrRecords, err = res.RowsAffected(); err != nil {
		return counts, fmt.Errorf("checking rows affected: %w", err)
	}

	res, err = tx.Exec(`DELETE FROM issue_records WHERE created_at < ?`, c)
	if err != nil {
		return counts, fmt.Errorf("deleting issue records: %w", err)
	}
	if counts.IssueRecords, err = res.RowsAffected(); err != nil {
		return counts, fmt.Errorf("checking rows affected: %w", err)
	}

	res, err = tx.Exec(`DELETE FROM project_mappings WHERE created_at < ?`, c)
	if err != nil {
		return counts, fmt.Errorf("deleting project mappings: %w", err)
	}
	if counts.ProjectMappings, err = res.RowsAffected(); err != nil {
		return counts, fmt.Errorf("checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CleanupCounts{}, fmt.Errorf("committing transaction: %w", err)
	}
	return counts, nil
}

package db

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// GetStatistics aggregates counts across all tables.
func GetStatistics(q queryer) (model.Statistics, error) {
	var s model.Statistics

	if err := q.QueryRow(`SELECT COUNT(*) FROM project_mappings`).Scan(&s.ProjectCount); err != nil {
		return s, fmt.Errorf("counting project mappings: %w", err)
	}

	if err := q.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN ticket_key IS NOT NULL AND ticket_project_key IS NOT NULL THEN 1 ELSE 0 END), 0)
		 FROM issue_records`,
	).Scan(&s.IssueCount, &s.TicketedIssueCount); err != nil {
		return s, fmt.Errorf("counting issue records: %w", err)
	}

	rows, err := q.Query(`SELECT status, COUNT(*) FROM mr_records GROUP BY status`)
	if err != nil {
		return s, fmt.Errorf("counting mr records by status: %w", err)
	}
	s.MrCountByStatus = make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return s, fmt.Errorf("scanning mr status count: %w", err)
		}
		s.MrCountByStatus[status] = n
		s.MrCount += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return s, fmt.Errorf("iterating mr status counts: %w", err)
	}
	rows.Close()
	s.RejectedCount = s.MrCountByStatus[string(model.MrStatusRejected)]

	rows, err = q.Query(
		`SELECT analysis_project_key, COUNT(*) AS n FROM issue_records
		 WHERE analysis_project_key IS NOT NULL
		 GROUP BY analysis_project_key
		 ORDER BY n DESC, analysis_project_key ASC`,
	)
	if err != nil {
		return s, fmt.Errorf("counting issues by project: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc model.ProjectIssueCount
		if err := rows.Scan(&pc.AnalysisProjectKey, &pc.Count); err != nil {
			return s, fmt.Errorf("scanning project issue count: %w", err)
		}
		s.IssuesByProject = append(s.IssuesByProject, pc)
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("iterating project issue counts: %w", err)
	}

	return s, nil
}

// GetDatabaseInfo describes the database file at path. A missing file is
// reported through Exists rather than as an error.
func GetDatabaseInfo(conn *sql.DB, path string) (model.DatabaseInfo, error) {
	info := model.DatabaseInfo{Path: path}

	fi, err := os.Stat(path)
	switch {
	case err == nil:
		info.Exists = true
		info.SizeBytes = fi.Size()
	case !os.IsNotExist(err):
		return info, fmt.Errorf("stat database file: %w", err)
	}

	if conn != nil {
		v, err := SchemaVersion(conn)
		if err != nil {
			return info, err
		}
		info.SchemaVersion = v
	}

	return info, nil
}

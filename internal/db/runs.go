package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// InsertReconcileRun persists the outcome of one reconciliation cycle.
func InsertReconcileRun(ex execer, run model.ReconcileRun) error {
	var errText any
	if run.Error != "" {
		errText = run.Error
	}
	_, err := ex.Exec(
		`INSERT INTO reconcile_runs (id, started_at, finished_at, success, total_checked, updated, failed, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), boolToInt(run.Success),
		run.TotalChecked, run.Updated, run.Failed, errText,
	)
	if err != nil {
		return fmt.Errorf("inserting reconcile run: %w", err)
	}
	return nil
}

// ListReconcileRuns returns the most recent runs first. A limit of zero or
// less returns everything.
func ListReconcileRuns(q queryer, limit int) ([]model.ReconcileRun, error) {
	query := `SELECT id, started_at, finished_at, success, total_checked, updated, failed, error
	          FROM reconcile_runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reconcile runs: %w", err)
	}
	defer rows.Close()

	var runs []model.ReconcileRun
	for rows.Next() {
		var r model.ReconcileRun
		var startedAt, finishedAt string
		var success int
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &startedAt, &finishedAt, &success, &r.TotalChecked, &r.Updated, &r.Failed, &errText); err != nil {
			return nil, fmt.Errorf("scanning reconcile run row: %w", err)
		}
		r.Success = success != 0
		r.Error = errText.String
		if r.StartedAt, err = parseTime("started_at", startedAt); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime("finished_at", finishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reconcile run rows: %w", err)
	}
	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package db

import (
	"database/sql"
	"fmt"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// execer abstracts *sql.DB and *sql.Tx for executing statements.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// RecordMrActivity logs a field change on a merge request record.
func RecordMrActivity(ex execer, mrID int64, field, oldVal, newVal, changedBy string) error {
	_, err := ex.Exec(
		`INSERT INTO mr_activity (mr_id, field_changed, old_value, new_value, changed_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		mrID, field, oldVal, newVal, changedBy, formatTime(Now()),
	)
	if err != nil {
		return fmt.Errorf("recording mr activity: %w", err)
	}
	return nil
}

// GetMrActivity retrieves the activity of every record sharing mrURL, most
// recent first. A limit of zero or less returns everything.
func GetMrActivity(q queryer, mrURL string, limit int) ([]model.MrActivity, error) {
	query := `SELECT a.id, a.mr_id, a.field_changed, a.old_value, a.new_value, a.changed_by, a.created_at
	          FROM mr_activity a
	          JOIN mr_records m ON m.id = a.mr_id
	          WHERE m.mr_url = ?
	          ORDER BY a.created_at DESC, a.id DESC`
	args := []any{mrURL}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mr activity: %w", err)
	}
	defer rows.Close()

	var activities []model.MrActivity
	for rows.Next() {
		var a model.MrActivity
		var oldVal, newVal, changedBy sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.MrID, &a.FieldChanged, &oldVal, &newVal, &changedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning mr activity row: %w", err)
		}
		a.OldValue = oldVal.String
		a.NewValue = newVal.String
		a.ChangedBy = changedBy.String

		t, err := parseTime("activity created_at", createdAt)
		if err != nil {
			return nil, err
		}
		a.CreatedAt = t

		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mr activity rows: %w", err)
	}

	return activities, nil
}

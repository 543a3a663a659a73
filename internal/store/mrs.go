package store

import (
	"errors"

	"github.com/ALT-F4-LLC/fixtrack/internal/db"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// CreateMrRecord records a new submission and makes it the latest for its
// finding. The previous latest is demoted atomically.
func (s *Store) CreateMrRecord(in model.MrInput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := db.CreateMrRecord(s.conn, in, "fixtrack")
	if err != nil {
		s.fail("create_mr_record", err, "finding", in.FindingKey, "mr_url", in.MrURL)
		return false
	}
	s.logger.Info("mr record created", "finding", in.FindingKey, "mr_url", in.MrURL, "id", id)
	return true
}

// UpdateMrStatusByURL sets the status of the record(s) carrying mrURL. A nil
// reason keeps the stored rejection reason. Returns false when nothing
// matched or the write failed.
func (s *Store) UpdateMrStatusByURL(mrURL string, status model.MrStatus, reason *string, changedBy string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateMrStatusLocked(mrURL, status, reason, changedBy)
}

func (s *Store) updateMrStatusLocked(mrURL string, status model.MrStatus, reason *string, changedBy string) bool {
	n, err := db.UpdateMrStatusByURL(s.conn, mrURL, status, reason, changedBy)
	if err != nil {
		s.fail("update_mr_status_by_url", err, "mr_url", mrURL, "status", status)
		return false
	}
	if n == 0 {
		s.logger.Warn("no mr record matched", "mr_url", mrURL)
		return false
	}
	s.logger.Info("mr status updated", "mr_url", mrURL, "status", status, "changed_by", changedBy)
	return true
}

// BatchUpdateMrStatus applies each update in its own transaction and returns
// how many succeeded. A failed row does not stop the batch.
func (s *Store) BatchUpdateMrStatus(updates []model.MrStatusUpdate, changedBy string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, u := range updates {
		if s.updateMrStatusLocked(u.MrURL, u.Status, u.RejectionReason, changedBy) {
			updated++
		}
	}
	return updated
}

// GetLatestMrRecord returns the latest submission for findingKey, or nil.
func (s *Store) GetLatestMrRecord(findingKey string) *model.MrRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := db.GetLatestMrRecord(s.conn, findingKey)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.fail("get_latest_mr_record", err, "finding", findingKey)
		}
		return nil
	}
	return m
}

// GetMrRecords returns every submission for findingKey, newest first.
func (s *Store) GetMrRecords(findingKey string) []model.MrRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := db.GetMrRecords(s.conn, findingKey)
	if err != nil {
		s.fail("get_mr_records", err, "finding", findingKey)
		return nil
	}
	return records
}

// GetMrActivity returns the change history of the record(s) carrying mrURL.
func (s *Store) GetMrActivity(mrURL string) []model.MrActivity {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, err := db.GetMrActivity(s.conn, mrURL, 0)
	if err != nil {
		s.fail("get_mr_activity", err, "mr_url", mrURL)
		return nil
	}
	return activity
}

// GetRejectedMrRecords returns rejected submissions with their issue context.
func (s *Store) GetRejectedMrRecords() []model.MrRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := db.GetRejectedMrRecords(s.conn)
	if err != nil {
		s.fail("get_rejected_mr_records", err)
		return nil
	}
	return records
}

// GetPendingMrRecords returns non-terminal submissions made within the last
// lookbackDays days.
func (s *Store) GetPendingMrRecords(lookbackDays int) []model.MrRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := db.Now().AddDate(0, 0, -lookbackDays)
	records, err := db.GetPendingMrRecords(s.conn, s.terminal, since)
	if err != nil {
		s.fail("get_pending_mr_records", err, "lookback_days", lookbackDays)
		return nil
	}
	return records
}

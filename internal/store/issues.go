package store

import (
	"errors"

	"github.com/ALT-F4-LLC/fixtrack/internal/db"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// BackfillResult is the outcome of BackfillIfEmpty.
type BackfillResult int

const (
	// Created means no record existed and a fully populated one was inserted.
	Created BackfillResult = iota + 1
	// Backfilled means a placeholder received its ticket fields.
	Backfilled
	// AlreadySatisfied means the record already carried a ticket and was
	// left untouched.
	AlreadySatisfied
)

func (r BackfillResult) String() string {
	switch r {
	case Created:
		return "created"
	case Backfilled:
		return "backfilled"
	case AlreadySatisfied:
		return "already_satisfied"
	default:
		return "unknown"
	}
}

// GetOrCreatePlaceholder returns the record for findingKey, inserting a
// placeholder with empty ticket fields when none exists. created reports
// whether the placeholder was inserted by this call.
func (s *Store) GetOrCreatePlaceholder(findingKey string) (issue *model.IssueRecord, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "get_or_create_placeholder"

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, false, &StorageError{Op: op, Err: err}
	}
	defer tx.Rollback()

	created, err = db.InsertIssue(tx, findingKey, nil, nil, nil)
	if err != nil {
		return nil, false, &StorageError{Op: op, Err: err}
	}
	issue, err = db.GetIssue(tx, findingKey)
	if err != nil {
		return nil, false, &StorageError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, &StorageError{Op: op, Err: err}
	}

	if created {
		s.logger.Debug("placeholder created", "finding", findingKey)
	}
	return issue, created, nil
}

// BackfillIfEmpty attaches a ticket to findingKey. A missing record is
// created fully populated, a placeholder is backfilled, and a record that
// already has a ticket is never overwritten. The analysis project key only
// fills an empty column.
func (s *Store) BackfillIfEmpty(findingKey, ticketKey, ticketProjectKey string, analysisProjectKey *string) (BackfillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "backfill_if_empty"

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, &StorageError{Op: op, Err: err}
	}
	defer tx.Rollback()

	var result BackfillResult
	existing, err := db.GetIssue(tx, findingKey)
	switch {
	case errors.Is(err, db.ErrNotFound):
		if _, err := db.InsertIssue(tx, findingKey, &ticketKey, &ticketProjectKey, analysisProjectKey); err != nil {
			return 0, &StorageError{Op: op, Err: err}
		}
		result = Created
	case err != nil:
		return 0, &StorageError{Op: op, Err: err}
	case existing.HasTicket():
		result = AlreadySatisfied
	default:
		updated, err := db.BackfillTicket(tx, findingKey, ticketKey, ticketProjectKey, analysisProjectKey)
		if err != nil {
			return 0, &StorageError{Op: op, Err: err}
		}
		result = Backfilled
		if !updated {
			result = AlreadySatisfied
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Op: op, Err: err}
	}

	s.logger.Debug("ticket attached", "finding", findingKey, "ticket", ticketKey, "result", result.String())
	return result, nil
}

// Package store is the process-wide tracking store for findings, their
// tickets and their merge requests.
//
// A Store serializes every operation behind one mutex and pins the SQLite
// pool to a single connection. It is safe for concurrent use within one
// process. Sharing the database file between processes is not supported.
//
// Most methods follow a report-and-continue contract: faults are logged at
// error level and the zero result (false, nil, 0) is returned, so callers on
// timer threads never crash on a storage hiccup. GetOrCreatePlaceholder and
// BackfillIfEmpty instead return a *StorageError.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ALT-F4-LLC/fixtrack/internal/db"
	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// StorageError is an unexpected fault in the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Config holds the store's tunables.
type Config struct {
	// TerminalStatuses are excluded from pending lookups. Empty means
	// model.DefaultTerminalStatuses.
	TerminalStatuses []model.MrStatus
	// Path is reported by DatabaseInfo.
	Path string
}

// Store is the SQLite-backed tracking store.
type Store struct {
	mu       sync.Mutex
	conn     *sql.DB
	terminal []model.MrStatus
	path     string
	logger   *slog.Logger
}

// Open opens the database at path, creating and migrating the schema as
// needed.
func Open(path string, cfg Config, logger *slog.Logger) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = path
	}
	return New(conn, cfg, logger), nil
}

// New wraps an already initialized connection.
func New(conn *sql.DB, cfg Config, logger *slog.Logger) *Store {
	terminal := cfg.TerminalStatuses
	if len(terminal) == 0 {
		terminal = model.DefaultTerminalStatuses
	}
	// Drop duplicates while keeping the configured order.
	seen := mapset.NewThreadUnsafeSet[model.MrStatus]()
	uniq := make([]model.MrStatus, 0, len(terminal))
	for _, s := range terminal {
		if seen.Add(s) {
			uniq = append(uniq, s)
		}
	}
	return &Store{
		conn:     conn,
		terminal: uniq,
		path:     cfg.Path,
		logger:   logging.OrDiscard(logger).With("component", "store"),
	}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// TerminalStatuses returns the statuses excluded from pending lookups.
func (s *Store) TerminalStatuses() []model.MrStatus {
	out := make([]model.MrStatus, len(s.terminal))
	copy(out, s.terminal)
	return out
}

func (s *Store) fail(op string, err error, args ...any) {
	s.logger.Error("store operation failed", append([]any{"op", op, "err", err}, args...)...)
}

// IsProjectMapped returns the ticket project mapped to analysisProjectKey.
func (s *Store) IsProjectMapped(analysisProjectKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := db.GetProjectMapping(s.conn, analysisProjectKey)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.fail("is_project_mapped", err, "analysis_project", analysisProjectKey)
		}
		return "", false
	}
	return p.TicketProjectKey, true
}

// RecordProjectMapping upserts a mapping; the last write wins.
func (s *Store) RecordProjectMapping(analysisProjectKey, ticketProjectKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := db.UpsertProjectMapping(s.conn, analysisProjectKey, ticketProjectKey); err != nil {
		s.fail("record_project_mapping", err, "analysis_project", analysisProjectKey)
		return false
	}
	s.logger.Debug("project mapping recorded", "analysis_project", analysisProjectKey, "ticket_project", ticketProjectKey)
	return true
}

// ListProjectMappings returns every mapping, newest first.
func (s *Store) ListProjectMappings() []model.ProjectMapping {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings, err := db.ListProjectMappings(s.conn)
	if err != nil {
		s.fail("list_project_mappings", err)
		return nil
	}
	return mappings
}

// IsIssueResolved reports whether findingKey has a record with both ticket
// fields populated. Placeholders report false.
func (s *Store) IsIssueResolved(findingKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := db.IssueHasTicket(s.conn, findingKey)
	if err != nil {
		s.fail("is_issue_resolved", err, "finding", findingKey)
		return false
	}
	return ok
}

// RecordIssue inserts a record for findingKey if none exists. Nil ticket
// fields create a placeholder. An existing record is left untouched and
// true is returned.
func (s *Store) RecordIssue(findingKey string, ticketKey, ticketProjectKey, analysisProjectKey *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := db.InsertIssue(s.conn, findingKey, ticketKey, ticketProjectKey, analysisProjectKey); err != nil {
		s.fail("record_issue", err, "finding", findingKey)
		return false
	}
	return true
}

// GetIssueBasicInfo returns the record for findingKey, or nil.
func (s *Store) GetIssueBasicInfo(findingKey string) *model.IssueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := db.GetIssue(s.conn, findingKey)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.fail("get_issue_basic_info", err, "finding", findingKey)
		}
		return nil
	}
	return issue
}

// ListIssuesByProject returns the records tracked for one analysis project.
func (s *Store) ListIssuesByProject(analysisProjectKey string) []model.IssueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	issues, err := db.ListIssuesByProject(s.conn, analysisProjectKey)
	if err != nil {
		s.fail("list_issues_by_project", err, "analysis_project", analysisProjectKey)
		return nil
	}
	return issues
}

// DatabaseInfo describes the database file backing the store.
func (s *Store) DatabaseInfo() model.DatabaseInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := db.GetDatabaseInfo(s.conn, s.path)
	if err != nil {
		s.fail("database_info", err)
	}
	return info
}

// GetStatistics aggregates counts across the store.
func (s *Store) GetStatistics() (model.Statistics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := db.GetStatistics(s.conn)
	if err != nil {
		s.fail("get_statistics", err)
		return model.Statistics{}, false
	}
	return stats, true
}

// CleanupResult reports a retention pass.
type CleanupResult struct {
	Cutoff time.Time `json:"cutoff"`
	db.CleanupCounts
}

// CleanupOlderThan removes rows older than days. Merge request records are
// removed no later than the issue record that owns them.
func (s *Store) CleanupOlderThan(days int) (CleanupResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := db.Now().AddDate(0, 0, -days)
	counts, err := db.DeleteOlderThan(s.conn, cutoff)
	if err != nil {
		s.fail("cleanup_older_than", err, "days", days)
		return CleanupResult{}, false
	}
	if counts.Total() > 0 {
		s.logger.Info("retention cleanup",
			"cutoff", cutoff,
			"mr_records", counts.MrRecords,
			"issue_records", counts.IssueRecords,
			"project_mappings", counts.ProjectMappings,
		)
	}
	return CleanupResult{Cutoff: cutoff, CleanupCounts: counts}, true
}

// RecordReconcileRun persists the outcome of a reconciliation cycle.
func (s *Store) RecordReconcileRun(run model.ReconcileRun) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := db.InsertReconcileRun(s.conn, run); err != nil {
		s.fail("record_reconcile_run", err, "run_id", run.ID)
		return false
	}
	return true
}

// RecentReconcileRuns returns up to limit runs, newest first.
func (s *Store) RecentReconcileRuns(limit int) []model.ReconcileRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := db.ListReconcileRuns(s.conn, limit)
	if err != nil {
		s.fail("recent_reconcile_runs", err)
		return nil
	}
	return runs
}

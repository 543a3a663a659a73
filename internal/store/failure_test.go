package store

import (
	"bytes"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

var errDisk = errors.New("disk I/O error")

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var buf bytes.Buffer
	return New(conn, Config{}, logging.New(&buf, 0)), mock, &buf
}

func TestGetOrCreatePlaceholderStorageError(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issue_records").WillReturnError(errDisk)
	mock.ExpectRollback()

	issue, created, err := s.GetOrCreatePlaceholder("F1")
	assert.Nil(t, issue)
	assert.False(t, created)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get_or_create_placeholder", se.Op)
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillIfEmptyBeginFailure(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errDisk)

	_, err := s.BackfillIfEmpty("F1", "JIRA-1", "PROJ", nil)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "backfill_if_empty", se.Op)
	assert.Contains(t, se.Error(), "disk I/O error")
}

func TestBackfillIfEmptyLookupFailureRollsBack(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM issue_records WHERE finding_key").WillReturnError(errDisk)
	mock.ExpectRollback()

	_, err := s.BackfillIfEmpty("F1", "JIRA-1", "PROJ", nil)
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadFailuresReturnZeroValues(t *testing.T) {
	s, mock, buf := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM project_mappings").WillReturnError(errDisk)
	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errDisk)
	mock.ExpectQuery("FROM mr_records m").WillReturnError(errDisk)
	mock.ExpectQuery("FROM mr_records m").WillReturnError(errDisk)

	key, ok := s.IsProjectMapped("sonar-a")
	assert.False(t, ok)
	assert.Empty(t, key)
	assert.False(t, s.IsIssueResolved("F1"))
	assert.Nil(t, s.GetLatestMrRecord("F1"))
	assert.Nil(t, s.GetPendingMrRecords(7))

	assert.Contains(t, buf.String(), "[error] store operation failed")
	assert.Contains(t, buf.String(), "op=get_pending_mr_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMrRecordRollsBackOnInsertFailure(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE mr_records SET is_latest = 0").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO mr_records").WillReturnError(errDisk)
	mock.ExpectRollback()

	assert.False(t, s.CreateMrRecord(model.MrInput{FindingKey: "F1", MrURL: "u1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupFailureReturnsFalse(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM mr_records").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM issue_records").WillReturnError(errDisk)
	mock.ExpectRollback()

	res, ok := s.CleanupOlderThan(365)
	assert.False(t, ok)
	assert.Zero(t, res.Total())
	assert.NoError(t, mock.ExpectationsWereMet())
}

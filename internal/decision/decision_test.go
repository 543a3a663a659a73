package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/reconcile"
	"github.com/ALT-F4-LLC/fixtrack/internal/rules"
	"github.com/ALT-F4-LLC/fixtrack/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", store.Config{}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

// countingTracker wraps a store and counts write calls.
type countingTracker struct {
	*store.Store
	writes int
}

func (c *countingTracker) GetOrCreatePlaceholder(key string) (*model.IssueRecord, bool, error) {
	c.writes++
	return c.Store.GetOrCreatePlaceholder(key)
}

func (c *countingTracker) BackfillIfEmpty(key, ticket, project string, analysis *string) (store.BackfillResult, error) {
	c.writes++
	return c.Store.BackfillIfEmpty(key, ticket, project, analysis)
}

// failingTracker reports a storage fault on every two-step call.
type failingTracker struct {
	*store.Store
}

func (failingTracker) GetOrCreatePlaceholder(string) (*model.IssueRecord, bool, error) {
	return nil, false, &store.StorageError{Op: "get_or_create_placeholder", Err: errors.New("disk full")}
}

func (failingTracker) BackfillIfEmpty(string, string, string, *string) (store.BackfillResult, error) {
	return 0, &store.StorageError{Op: "backfill_if_empty", Err: errors.New("disk full")}
}

func TestEvaluateDecisionTable(t *testing.T) {
	s := openStore(t)

	// tracked, no MR
	require.True(t, s.RecordIssue("tracked", strPtr("JIRA-1"), strPtr("PROJ"), nil))
	// rejected without reason
	require.True(t, s.RecordIssue("rejected", strPtr("JIRA-2"), strPtr("PROJ"), nil))
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "rejected", MrURL: "u-rej"}))
	require.True(t, s.UpdateMrStatusByURL("u-rej", model.MrStatusRejected, nil, "test"))
	// pending
	require.True(t, s.RecordIssue("pending", nil, nil, nil))
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "pending", MrURL: "u-pend"}))
	// merged and closed
	for _, st := range []model.MrStatus{model.MrStatusMerged, model.MrStatusClosed} {
		key := string(st)
		require.True(t, s.RecordIssue(key, nil, nil, nil))
		require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: key, MrURL: "u-" + key}))
		require.True(t, s.UpdateMrStatusByURL("u-"+key, st, nil, "test"))
	}

	e := New(s, rules.Static("java:S1118"), nil)

	tests := []struct {
		finding, rule string
		needFix       bool
		outcome       Outcome
		action        string
		reason        string
	}{
		{"anything", "java:S1118", false, OutcomeExcluded, ActionNone, "rule excluded: java:S1118"},
		{"fresh", "java:S2000", true, OutcomeUnseen, ActionStart, "no existing record"},
		{"tracked", "", true, OutcomeNoMr, ActionRemedy, "no mr"},
		{"rejected", "", true, OutcomeRejected, ActionResubmit, "unknown reason"},
		{"pending", "", false, OutcomePending, ActionAwait, "created"},
		{"merged", "", false, OutcomeDone, ActionNone, "merged"},
		{"closed", "", false, OutcomeDone, ActionNone, "closed"},
	}
	for _, tt := range tests {
		t.Run(tt.finding, func(t *testing.T) {
			r := e.Evaluate(tt.finding, tt.rule)
			assert.Equal(t, tt.needFix, r.NeedFix)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.action, r.ActionRequired)
			assert.Contains(t, r.Reason, tt.reason)
			if tt.outcome == OutcomeRejected || tt.outcome == OutcomePending || tt.outcome == OutcomeDone {
				assert.NotNil(t, r.LatestMr)
			} else {
				assert.Nil(t, r.LatestMr)
			}
		})
	}
}

func TestEvaluateExcludedCreatesNoRecord(t *testing.T) {
	s := openStore(t)
	tr := &countingTracker{Store: s}
	e := New(tr, rules.Static("java:S1118"), nil)

	r := e.Evaluate("F1", "java:S1118")

	assert.False(t, r.NeedFix)
	assert.Zero(t, tr.writes)
	assert.Nil(t, s.GetIssueBasicInfo("F1"))
}

func TestEvaluateOnlyWritesForUnseenFindings(t *testing.T) {
	s := openStore(t)
	tr := &countingTracker{Store: s}
	e := New(tr, nil, nil)

	first := e.Evaluate("F1", "")
	assert.Equal(t, OutcomeUnseen, first.Outcome)
	assert.Equal(t, 1, tr.writes)

	// Repeated evaluation without intervening writes is stable and read-only.
	for i := 0; i < 3; i++ {
		r := e.Evaluate("F1", "")
		assert.Equal(t, OutcomeNoMr, r.Outcome)
	}
	assert.Equal(t, 1, tr.writes)
}

func TestEvaluateIgnoresPlaceholderFault(t *testing.T) {
	s := openStore(t)
	e := New(failingTracker{Store: s}, nil, nil)

	r := e.Evaluate("F1", "")

	assert.True(t, r.NeedFix)
	assert.Equal(t, OutcomeUnseen, r.Outcome)
}

func TestEnsureIssueTicket(t *testing.T) {
	s := openStore(t)
	e := New(s, nil, nil)
	f := Finding{Key: "F1", RuleID: "java:S1118", AnalysisProjectKey: "sonar-a"}

	assert.True(t, e.EnsureIssueTicket(f, "JIRA-9", "PROJ"))
	assert.True(t, e.EnsureIssueTicket(f, "JIRA-10", "OTHER"), "already satisfied still succeeds")

	issue := s.GetIssueBasicInfo("F1")
	require.NotNil(t, issue)
	assert.Equal(t, "JIRA-9", model.Deref(issue.TicketKey))
	assert.Equal(t, "sonar-a", model.Deref(issue.AnalysisProjectKey))

	assert.False(t, New(failingTracker{Store: s}, nil, nil).EnsureIssueTicket(f, "JIRA-1", "PROJ"))
}

func TestIssuesNeedingRefix(t *testing.T) {
	s := openStore(t)
	e := New(s, nil, nil)

	require.True(t, s.RecordIssue("F1", strPtr("JIRA-1"), strPtr("PROJ"), strPtr("sonar-a")))
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "F1", MrURL: "u1"}))
	require.True(t, s.UpdateMrStatusByURL("u1", model.MrStatusRejected, strPtr("style violations"), "test"))

	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "F2", MrURL: "u2"}))
	require.True(t, s.UpdateMrStatusByURL("u2", model.MrStatusRejected, nil, "test"))
	// F2 was resubmitted, so its rejection is history.
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "F2", MrURL: "u3"}))

	got := e.IssuesNeedingRefix()
	require.Len(t, got, 1)
	assert.Equal(t, "F1", got[0].FindingKey)
	assert.Equal(t, "style violations", got[0].Reason)
	assert.Equal(t, "JIRA-1", model.Deref(got[0].TicketKey))
}

type mergedSource struct{}

func (mergedSource) QueryMergeRequests(_ context.Context, refs []reconcile.MergeRequestRef) (map[string]reconcile.MergeRequestState, error) {
	out := map[string]reconcile.MergeRequestState{}
	for _, r := range refs {
		if r.MrURL == "https://host/mr/2" {
			out[r.MrURL] = reconcile.MergeRequestState{State: "merged"}
		}
	}
	return out, nil
}

func TestFindingLifecycle(t *testing.T) {
	s := openStore(t)
	e := New(s, nil, nil)

	// 1. First sighting creates a placeholder.
	r := e.Evaluate("F1", "")
	assert.True(t, r.NeedFix)
	assert.Contains(t, r.Reason, "no existing record")
	issue := s.GetIssueBasicInfo("F1")
	require.NotNil(t, issue)
	assert.Nil(t, issue.TicketKey)
	assert.Nil(t, issue.TicketProjectKey)

	// 2. Ticket attached.
	require.True(t, e.EnsureIssueTicket(Finding{Key: "F1"}, "JIRA-9", "PROJ"))
	assert.True(t, s.IsIssueResolved("F1"))
	r = e.Evaluate("F1", "")
	assert.True(t, r.NeedFix)
	assert.Contains(t, r.Reason, "no mr")

	// 3. MR submitted.
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "F1", MrURL: "https://host/mr/1", Status: model.MrStatusCreated}))
	r = e.Evaluate("F1", "")
	assert.False(t, r.NeedFix)
	assert.Contains(t, r.Reason, "created")

	// 4. MR rejected.
	require.True(t, s.UpdateMrStatusByURL("https://host/mr/1", model.MrStatusRejected, strPtr("style violations"), "reviewer"))
	r = e.Evaluate("F1", "")
	assert.True(t, r.NeedFix)
	assert.Contains(t, r.Reason, "style violations")

	// 5. Resubmission becomes latest; the rejected attempt is kept.
	require.True(t, s.CreateMrRecord(model.MrInput{FindingKey: "F1", MrURL: "https://host/mr/2", Status: model.MrStatusCreated}))
	assert.Equal(t, "https://host/mr/2", s.GetLatestMrRecord("F1").MrURL)
	var first *model.MrRecord
	for _, m := range s.GetMrRecords("F1") {
		if m.MrURL == "https://host/mr/1" {
			m := m
			first = &m
		}
	}
	require.NotNil(t, first)
	assert.False(t, first.IsLatest)
	assert.Equal(t, model.MrStatusRejected, first.Status)

	// 6. Reconciliation picks up the merge.
	res := reconcile.New(s, mergedSource{}, reconcile.Config{}, nil).Reconcile(context.Background(), 7)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, model.MrStatusMerged, s.GetLatestMrRecord("F1").Status)
	r = e.Evaluate("F1", "")
	assert.False(t, r.NeedFix)
}

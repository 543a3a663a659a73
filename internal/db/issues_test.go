package db

import (
	"errors"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

func strPtr(s string) *string { return &s }

func TestUpsertProjectMappingLastWriteWins(t *testing.T) {
	db := mustInit(t)

	if err := UpsertProjectMapping(db, "sonar-a", "JIRA1"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := UpsertProjectMapping(db, "sonar-a", "JIRA2"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	p, err := GetProjectMapping(db, "sonar-a")
	if err != nil {
		t.Fatalf("GetProjectMapping: %v", err)
	}
	if p.TicketProjectKey != "JIRA2" {
		t.Errorf("TicketProjectKey = %q, want JIRA2", p.TicketProjectKey)
	}

	all, err := ListProjectMappings(db)
	if err != nil {
		t.Fatalf("ListProjectMappings: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(mappings) = %d, want 1", len(all))
	}
}

func TestGetProjectMappingNotFound(t *testing.T) {
	db := mustInit(t)

	_, err := GetProjectMapping(db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertIssueDoesNotOverwrite(t *testing.T) {
	db := mustInit(t)

	inserted, err := InsertIssue(db, "F1", strPtr("JIRA-1"), strPtr("PROJ"), strPtr("sonar-a"))
	if err != nil || !inserted {
		t.Fatalf("first InsertIssue = %v, %v; want true, nil", inserted, err)
	}

	inserted, err = InsertIssue(db, "F1", strPtr("JIRA-2"), strPtr("OTHER"), nil)
	if err != nil {
		t.Fatalf("second InsertIssue: %v", err)
	}
	if inserted {
		t.Error("second InsertIssue reported an insert")
	}

	issue, err := GetIssue(db, "F1")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if model.Deref(issue.TicketKey) != "JIRA-1" {
		t.Errorf("TicketKey = %q, want JIRA-1", model.Deref(issue.TicketKey))
	}
}

func TestIssueHasTicket(t *testing.T) {
	db := mustInit(t)

	if _, err := InsertIssue(db, "placeholder", nil, nil, nil); err != nil {
		t.Fatalf("InsertIssue: %v", err)
	}
	if _, err := InsertIssue(db, "half", strPtr("JIRA-1"), nil, nil); err != nil {
		t.Fatalf("InsertIssue: %v", err)
	}
	if _, err := InsertIssue(db, "full", strPtr("JIRA-2"), strPtr("PROJ"), nil); err != nil {
		t.Fatalf("InsertIssue: %v", err)
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"placeholder", false},
		{"half", false},
		{"full", true},
		{"missing", false},
	}
	for _, tt := range tests {
		got, err := IssueHasTicket(db, tt.key)
		if err != nil {
			t.Fatalf("IssueHasTicket(%q): %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("IssueHasTicket(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestBackfillTicketFirstWriterWins(t *testing.T) {
	db := mustInit(t)

	if _, err := InsertIssue(db, "F1", nil, nil, strPtr("sonar-a")); err != nil {
		t.Fatalf("InsertIssue: %v", err)
	}

	updated, err := BackfillTicket(db, "F1", "JIRA-9", "PROJ", strPtr("sonar-b"))
	if err != nil || !updated {
		t.Fatalf("first BackfillTicket = %v, %v; want true, nil", updated, err)
	}

	updated, err = BackfillTicket(db, "F1", "JIRA-10", "OTHER", nil)
	if err != nil {
		t.Fatalf("second BackfillTicket: %v", err)
	}
	if updated {
		t.Error("second BackfillTicket should not update a populated record")
	}

	issue, err := GetIssue(db, "F1")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if model.Deref(issue.TicketKey) != "JIRA-9" || model.Deref(issue.TicketProjectKey) != "PROJ" {
		t.Errorf("ticket = %q/%q, want JIRA-9/PROJ", model.Deref(issue.TicketKey), model.Deref(issue.TicketProjectKey))
	}
	if model.Deref(issue.AnalysisProjectKey) != "sonar-a" {
		t.Errorf("AnalysisProjectKey = %q, want existing sonar-a kept", model.Deref(issue.AnalysisProjectKey))
	}
}

func TestBackfillTicketKeepsPartialTicket(t *testing.T) {
	db := mustInit(t)

	if _, err := InsertIssue(db, "F1", strPtr("FIRST-1"), nil, nil); err != nil {
		t.Fatalf("InsertIssue: %v", err)
	}

	updated, err := BackfillTicket(db, "F1", "SECOND-2", "PROJ", nil)
	if err != nil || !updated {
		t.Fatalf("BackfillTicket = %v, %v; want true, nil", updated, err)
	}

	issue, err := GetIssue(db, "F1")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got := model.Deref(issue.TicketKey); got != "FIRST-1" {
		t.Errorf("TicketKey = %q, want first writer FIRST-1", got)
	}
	if got := model.Deref(issue.TicketProjectKey); got != "PROJ" {
		t.Errorf("TicketProjectKey = %q, want PROJ filled in", got)
	}
}

func TestBackfillTicketMissingRecord(t *testing.T) {
	db := mustInit(t)

	updated, err := BackfillTicket(db, "nope", "JIRA-1", "PROJ", nil)
	if err != nil {
		t.Fatalf("BackfillTicket: %v", err)
	}
	if updated {
		t.Error("BackfillTicket reported an update for a missing record")
	}
}

func TestListIssuesByProject(t *testing.T) {
	db := mustInit(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"F1", "F2", "F3"} {
		setNow(t, base.Add(time.Duration(i)*time.Hour))
		project := "sonar-a"
		if key == "F3" {
			project = "sonar-b"
		}
		if _, err := InsertIssue(db, key, nil, nil, &project); err != nil {
			t.Fatalf("InsertIssue(%s): %v", key, err)
		}
	}

	issues, err := ListIssuesByProject(db, "sonar-a")
	if err != nil {
		t.Fatalf("ListIssuesByProject: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2", len(issues))
	}
	if issues[0].FindingKey != "F2" {
		t.Errorf("issues[0] = %q, want F2 (most recent first)", issues[0].FindingKey)
	}
}

package render

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

func plain(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
}

func sampleMrs() []model.MrRecord {
	reason := "fails lint"
	now := time.Now().UTC()
	return []model.MrRecord{
		{ID: 2, FindingKey: "F1", MrURL: "https://git.example.com/g/p/-/merge_requests/2", Status: model.MrStatusRejected, RejectionReason: &reason, SubmittedAt: now, UpdatedAt: now, IsLatest: true},
		{ID: 1, FindingKey: "F1", MrURL: "https://git.example.com/g/p/-/merge_requests/1", Status: model.MrStatusCreated, SubmittedAt: now.Add(-time.Hour), UpdatedAt: now},
	}
}

func TestRenderMrTablePlain(t *testing.T) {
	plain(t)
	out := RenderMrTable(sampleMrs(), false)

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header, rule and 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "Submitted") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "✘ rejected") || !strings.Contains(lines[2], "fails lint") {
		t.Errorf("rejected row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "○ created") || !strings.Contains(lines[3], " - ") {
		t.Errorf("created row = %q", lines[3])
	}
}

func TestRenderMrTableEmpty(t *testing.T) {
	plain(t)
	out := RenderMrTable(nil, false)
	if !strings.Contains(out, "No merge requests found.") || !strings.Contains(out, "fixtrack mr create") {
		t.Errorf("out = %q", out)
	}
	if quiet := RenderMrTable(nil, true); strings.Contains(quiet, "fixtrack") {
		t.Errorf("quiet output kept hint: %q", quiet)
	}
}

func TestRenderTablesColorPathExecutes(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		t.Skip("NO_COLOR set in environment")
	}
	if out := RenderMrTable(sampleMrs(), false); !strings.Contains(out, "F1") {
		t.Errorf("color table missing content:\n%s", out)
	}
	runs := []model.ReconcileRun{{ID: "r", StartedAt: time.Now(), FinishedAt: time.Now(), Success: true}}
	if out := RenderRunTable(runs); !strings.Contains(out, "ok") {
		t.Errorf("run table missing result:\n%s", out)
	}
}

func TestRenderIssueTablePlaceholder(t *testing.T) {
	plain(t)
	ticket, project := "JIRA-1", "JIRA"
	out := RenderIssueTable([]model.IssueRecord{
		{FindingKey: "F1", TicketKey: &ticket, TicketProjectKey: &project},
		{FindingKey: "F2"},
	}, false)

	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[2], "JIRA-1") {
		t.Errorf("ticketed row = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "F2") || !strings.Contains(lines[3], "-") {
		t.Errorf("placeholder row = %q", lines[3])
	}
}

func TestRenderMrDetail(t *testing.T) {
	plain(t)
	mr := sampleMrs()[0]
	mr.Title = "Fix SQL injection"
	mr.Description = "Escapes the **query**."
	mr.SourceBranch = "fix/F1"
	mr.TargetBranch = "main"

	out := RenderMrDetail(mr, []model.MrActivity{
		{FieldChanged: "status", OldValue: "created", NewValue: "rejected", ChangedBy: "reconcile", CreatedAt: time.Now()},
		{FieldChanged: "created", NewValue: "created", ChangedBy: "fixtrack", CreatedAt: time.Now()},
	})

	for _, want := range []string{
		"#2  Fix SQL injection",
		"✘ rejected",
		"latest",
		"Branch: fix/F1 -> main",
		"Reason: fails lint",
		"Escapes the **query**.",
		"reconcile changed status: created -> rejected",
		"fixtrack recorded submission",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestRenderIssueDetailPlaceholder(t *testing.T) {
	plain(t)
	out := RenderIssueDetail(model.IssueRecord{FindingKey: "F9"}, nil, nil)
	if !strings.Contains(out, "Ticket: none (placeholder)") {
		t.Errorf("out = %s", out)
	}
	if !strings.Contains(out, "No merge requests found.") {
		t.Errorf("missing empty MR state: %s", out)
	}
}

func TestRenderStats(t *testing.T) {
	plain(t)
	out := RenderStats(model.Statistics{
		ProjectCount:    1,
		IssueCount:      1200,
		MrCount:         3,
		MrCountByStatus: map[string]int{"created": 2, "rejected": 1},
		RejectedCount:   1,
		IssuesByProject: []model.ProjectIssueCount{{AnalysisProjectKey: "svc", Count: 1200}},
	}, []model.ReconcileRun{{StartedAt: time.Now(), FinishedAt: time.Now(), Success: false, Error: "timeout"}})

	for _, want := range []string{"1,200", "○ created:", "By Analysis Project", "svc", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	plain(t)
	got, err := RenderMarkdown("# Title")
	if err != nil || got != "# Title" {
		t.Errorf("RenderMarkdown = %q, %v", got, err)
	}
}

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidateMrStatus(t *testing.T) {
	for _, s := range MrStatuses() {
		if err := ValidateMrStatus(s); err != nil {
			t.Errorf("ValidateMrStatus(%q) = %v, want nil", s, err)
		}
	}
	for _, s := range []MrStatus{"", "opened", "MERGED", "pending"} {
		if err := ValidateMrStatus(s); err == nil {
			t.Errorf("ValidateMrStatus(%q) = nil, want error", s)
		}
	}
}

func TestMrStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status MrStatus
		want   bool
	}{
		{MrStatusCreated, false},
		{MrStatusMerged, true},
		{MrStatusClosed, true},
		{MrStatusRejected, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%q.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestIssueRecordHasTicket(t *testing.T) {
	ticket := "JIRA-9"
	project := "PROJ"

	tests := []struct {
		name   string
		record IssueRecord
		want   bool
	}{
		{"placeholder", IssueRecord{FindingKey: "F1"}, false},
		{"ticket key only", IssueRecord{FindingKey: "F1", TicketKey: &ticket}, false},
		{"project only", IssueRecord{FindingKey: "F1", TicketProjectKey: &project}, false},
		{"both", IssueRecord{FindingKey: "F1", TicketKey: &ticket, TicketProjectKey: &project}, true},
	}
	for _, tt := range tests {
		if got := tt.record.HasTicket(); got != tt.want {
			t.Errorf("%s: HasTicket() = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.record.IsPlaceholder(); got == tt.want {
			t.Errorf("%s: IsPlaceholder() = %v, want %v", tt.name, got, !tt.want)
		}
	}
}

func TestMrRecordRejection(t *testing.T) {
	if got := (MrRecord{}).Rejection(); got != "unknown reason" {
		t.Errorf("Rejection() = %q, want %q", got, "unknown reason")
	}
	reason := "style violations"
	if got := (MrRecord{RejectionReason: &reason}).Rejection(); got != reason {
		t.Errorf("Rejection() = %q, want %q", got, reason)
	}
}

func TestMrRecordMarshalJSON(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := MrRecord{
		ID:          3,
		FindingKey:  "F1",
		MrURL:       "https://host/mr/1",
		Status:      MrStatusCreated,
		SubmittedAt: ts,
		UpdatedAt:   ts,
		IsLatest:    true,
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["status"] != "created" {
		t.Errorf("status = %v, want created", got["status"])
	}
	if got["submitted_at"] != "2025-03-01T12:00:00Z" {
		t.Errorf("submitted_at = %v", got["submitted_at"])
	}
	if got["is_latest"] != true {
		t.Errorf("is_latest = %v, want true", got["is_latest"])
	}
	if _, ok := got["ticket_key"]; ok {
		t.Error("ticket_key should be omitted for unjoined records")
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	if p := StringPtr("x"); p == nil || *p != "x" {
		t.Errorf("StringPtr(\"x\") = %v", p)
	}
	if Deref(nil) != "" {
		t.Error("Deref(nil) should be empty")
	}
}

package model

import (
	"encoding/json"
	"time"
)

// IssueRecord is the tracking state of one finding. A record whose ticket
// fields are nil is a placeholder: the finding has been seen but no ticket
// exists for it yet.
type IssueRecord struct {
	ID                 int
	FindingKey         string
	TicketKey          *string
	TicketProjectKey   *string
	AnalysisProjectKey *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasTicket reports whether both ticket fields are populated.
func (i IssueRecord) HasTicket() bool {
	return i.TicketKey != nil && i.TicketProjectKey != nil
}

// IsPlaceholder reports whether the record only marks the finding as seen.
func (i IssueRecord) IsPlaceholder() bool {
	return !i.HasTicket()
}

// issueRecordJSON is the JSON wire format for IssueRecord.
type issueRecordJSON struct {
	ID                 int     `json:"id"`
	FindingKey         string  `json:"finding_key"`
	TicketKey          *string `json:"ticket_key"`
	TicketProjectKey   *string `json:"ticket_project_key"`
	AnalysisProjectKey *string `json:"analysis_project_key"`
	HasTicket          bool    `json:"has_ticket"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// MarshalJSON implements custom JSON serialization for IssueRecord.
func (i IssueRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(issueRecordJSON{
		ID:                 i.ID,
		FindingKey:         i.FindingKey,
		TicketKey:          i.TicketKey,
		TicketProjectKey:   i.TicketProjectKey,
		AnalysisProjectKey: i.AnalysisProjectKey,
		HasTicket:          i.HasTicket(),
		CreatedAt:          i.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          i.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// StringPtr returns nil for the empty string and &s otherwise. It is the
// conversion used wherever an optional column is filled from user input.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

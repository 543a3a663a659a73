package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MrStatus represents the lifecycle state of a merge request submission.
type MrStatus string

const (
	MrStatusCreated  MrStatus = "created"
	MrStatusMerged   MrStatus = "merged"
	MrStatusClosed   MrStatus = "closed"
	MrStatusRejected MrStatus = "rejected"
)

var validMrStatuses = []MrStatus{
	MrStatusCreated,
	MrStatusMerged,
	MrStatusClosed,
	MrStatusRejected,
}

// DefaultTerminalStatuses are the statuses for which no further remediation
// or reconciliation is expected.
var DefaultTerminalStatuses = []MrStatus{MrStatusMerged, MrStatusClosed}

// ValidateMrStatus returns an error if s is not a recognized MR status.
func ValidateMrStatus(s MrStatus) error {
	for _, v := range validMrStatuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid mr status %q: must be one of %v", s, validMrStatuses)
}

// MrStatuses returns every recognized status in display order.
func MrStatuses() []MrStatus {
	out := make([]MrStatus, len(validMrStatuses))
	copy(out, validMrStatuses)
	return out
}

// IsTerminal reports whether s is merged or closed.
func (s MrStatus) IsTerminal() bool {
	return s == MrStatusMerged || s == MrStatusClosed
}

// Color returns a color name string suitable for terminal rendering.
func (s MrStatus) Color() string {
	switch s {
	case MrStatusCreated:
		return "yellow"
	case MrStatusMerged:
		return "green"
	case MrStatusClosed:
		return "gray"
	case MrStatusRejected:
		return "red"
	default:
		return "white"
	}
}

// MrRecord is one remediation submission attempt for a finding. A finding
// accumulates a new record per resubmission; exactly one of them carries
// IsLatest.
type MrRecord struct {
	ID              int
	FindingKey      string
	MrURL           string
	MrExternalID    string
	ProjectID       string
	Title           string
	Description     string
	BranchName      string
	SourceBranch    string
	TargetBranch    string
	Status          MrStatus
	RejectionReason *string
	SubmittedAt     time.Time
	UpdatedAt       time.Time
	IsLatest        bool

	// Populated only by reads joined with issue_records.
	TicketKey          *string
	AnalysisProjectKey *string
}

// Rejection returns the rejection reason or a fallback when none was recorded.
func (m MrRecord) Rejection() string {
	if m.RejectionReason == nil || *m.RejectionReason == "" {
		return "unknown reason"
	}
	return *m.RejectionReason
}

// mrRecordJSON is the JSON wire format for MrRecord.
type mrRecordJSON struct {
	ID                 int     `json:"id"`
	FindingKey         string  `json:"finding_key"`
	MrURL              string  `json:"mr_url"`
	MrExternalID       string  `json:"mr_external_id,omitempty"`
	ProjectID          string  `json:"project_id,omitempty"`
	Title              string  `json:"title,omitempty"`
	Description        string  `json:"description,omitempty"`
	BranchName         string  `json:"branch_name,omitempty"`
	SourceBranch       string  `json:"source_branch,omitempty"`
	TargetBranch       string  `json:"target_branch,omitempty"`
	Status             string  `json:"status"`
	RejectionReason    *string `json:"rejection_reason"`
	SubmittedAt        string  `json:"submitted_at"`
	UpdatedAt          string  `json:"updated_at"`
	IsLatest           bool    `json:"is_latest"`
	TicketKey          *string `json:"ticket_key,omitempty"`
	AnalysisProjectKey *string `json:"analysis_project_key,omitempty"`
}

// MarshalJSON implements custom JSON serialization for MrRecord.
func (m MrRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(mrRecordJSON{
		ID:                 m.ID,
		FindingKey:         m.FindingKey,
		MrURL:              m.MrURL,
		MrExternalID:       m.MrExternalID,
		ProjectID:          m.ProjectID,
		Title:              m.Title,
		Description:        m.Description,
		BranchName:         m.BranchName,
		SourceBranch:       m.SourceBranch,
		TargetBranch:       m.TargetBranch,
		Status:             string(m.Status),
		RejectionReason:    m.RejectionReason,
		SubmittedAt:        m.SubmittedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          m.UpdatedAt.UTC().Format(time.RFC3339),
		IsLatest:           m.IsLatest,
		TicketKey:          m.TicketKey,
		AnalysisProjectKey: m.AnalysisProjectKey,
	})
}

// MrInput holds the fields supplied when recording a new MR submission.
// An empty Status defaults to created.
type MrInput struct {
	FindingKey   string
	MrURL        string
	MrExternalID string
	ProjectID    string
	Title        string
	Description  string
	BranchName   string
	SourceBranch string
	TargetBranch string
	Status       MrStatus
}

// MrStatusUpdate is one staged status change addressed by MR URL.
type MrStatusUpdate struct {
	MrURL           string   `json:"mr_url"`
	Status          MrStatus `json:"status"`
	RejectionReason *string  `json:"rejection_reason,omitempty"`
}

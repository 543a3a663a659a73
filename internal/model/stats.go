package model

import "time"

// ProjectIssueCount is the number of tracked findings for one analysis project.
type ProjectIssueCount struct {
	AnalysisProjectKey string `json:"analysis_project_key"`
	Count              int    `json:"count"`
}

// Statistics summarizes the contents of the tracking store.
type Statistics struct {
	ProjectCount       int                 `json:"project_count"`
	IssueCount         int                 `json:"issue_count"`
	TicketedIssueCount int                 `json:"ticketed_issue_count"`
	MrCount            int                 `json:"mr_count"`
	MrCountByStatus    map[string]int      `json:"mr_count_by_status"`
	RejectedCount      int                 `json:"rejected_count"`
	IssuesByProject    []ProjectIssueCount `json:"issues_by_project"`
}

// ReconcileRun is the persisted outcome of one reconciliation cycle.
type ReconcileRun struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Success      bool      `json:"success"`
	TotalChecked int       `json:"total_checked"`
	Updated      int       `json:"updated"`
	Failed       int       `json:"failed"`
	Error        string    `json:"error,omitempty"`
}

// DatabaseInfo describes the on-disk store.
type DatabaseInfo struct {
	Path          string `json:"path"`
	Exists        bool   `json:"exists"`
	SizeBytes     int64  `json:"size_bytes"`
	SchemaVersion int    `json:"schema_version"`
}

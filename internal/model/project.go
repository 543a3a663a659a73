package model

import (
	"encoding/json"
	"time"
)

// ProjectMapping pairs an analysis-service project with the ticketing
// project its findings are filed under.
type ProjectMapping struct {
	AnalysisProjectKey string
	TicketProjectKey   string
	CreatedAt          time.Time
}

// MarshalJSON implements custom JSON serialization for ProjectMapping.
func (p ProjectMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AnalysisProjectKey string `json:"analysis_project_key"`
		TicketProjectKey   string `json:"ticket_project_key"`
		CreatedAt          string `json:"created_at"`
	}{
		AnalysisProjectKey: p.AnalysisProjectKey,
		TicketProjectKey:   p.TicketProjectKey,
		CreatedAt:          p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

package render

import (
	"strings"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// RenderStats renders store statistics followed by recent reconcile runs.
func RenderStats(s model.Statistics, runs []model.ReconcileRun) string {
	var sections []string

	sections = append(sections, strings.Join([]string{
		StyledText("Overview", sectionStyle),
		countLine("Project mappings", s.ProjectCount),
		countLine("Tracked findings", s.IssueCount),
		countLine("With ticket", s.TicketedIssueCount),
		countLine("Merge requests", s.MrCount),
		countLine("Rejected", s.RejectedCount),
	}, "\n"))

	status := []string{StyledText("By Status", sectionStyle)}
	for _, st := range model.MrStatuses() {
		status = append(status, countLine(statusLabel(st), s.MrCountByStatus[string(st)]))
	}
	sections = append(sections, strings.Join(status, "\n"))

	if len(s.IssuesByProject) > 0 {
		projects := []string{StyledText("By Analysis Project", sectionStyle)}
		for _, p := range s.IssuesByProject {
			projects = append(projects, countLine(orDash(p.AnalysisProjectKey), p.Count))
		}
		sections = append(sections, strings.Join(projects, "\n"))
	}

	if len(runs) > 0 {
		sections = append(sections, StyledText("Recent Reconciliation", sectionStyle)+"\n"+RenderRunTable(runs))
	}

	return strings.Join(sections, "\n\n")
}

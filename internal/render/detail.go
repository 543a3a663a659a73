package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// RenderMrDetail renders one MR submission with its description and
// activity log.
func RenderMrDetail(mr model.MrRecord, activity []model.MrActivity) string {
	sections := []string{mrHeader(mr), mrMetadata(mr)}

	if mr.Description != "" {
		rendered, err := RenderMarkdown(mr.Description)
		if err != nil {
			rendered = mr.Description
		}
		sections = append(sections, StyledText("Description", sectionStyle)+"\n"+rendered)
	}
	if len(activity) > 0 {
		sections = append(sections, renderActivity(activity))
	}

	return strings.Join(sections, "\n\n")
}

// RenderIssueDetail renders a tracked finding and its submission history.
func RenderIssueDetail(issue model.IssueRecord, mrs []model.MrRecord, activity []model.MrActivity) string {
	var lines []string
	lines = append(lines, StyledText(issue.FindingKey, sectionStyle))

	ticket := "none (placeholder)"
	if issue.HasTicket() {
		ticket = fmt.Sprintf("%s in %s", *issue.TicketKey, *issue.TicketProjectKey)
	}
	lines = append(lines,
		field("Ticket", ticket),
		field("Analysis project", orDash(model.Deref(issue.AnalysisProjectKey))),
		field("Tracked", humanize.Time(issue.CreatedAt)),
		field("Updated", humanize.Time(issue.UpdatedAt)),
	)

	sections := []string{strings.Join(lines, "\n")}
	sections = append(sections, StyledText("Merge requests", sectionStyle)+"\n"+RenderMrTable(mrs, true))
	if len(activity) > 0 {
		sections = append(sections, renderActivity(activity))
	}
	return strings.Join(sections, "\n\n")
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", StyledText(label+":", labelStyle), value)
}

func mrHeader(mr model.MrRecord) string {
	title := mr.Title
	if title == "" {
		title = mr.MrURL
	}
	latest := ""
	if mr.IsLatest {
		latest = "  " + StyledText("latest", dimStyle)
	}
	return fmt.Sprintf("%s  %s\n%s%s",
		StyledText(fmt.Sprintf("#%d", mr.ID), valueStyle),
		StyledText(title, valueStyle),
		StyledText(statusLabel(mr.Status), statusStyle(mr.Status).Bold(true)),
		latest,
	)
}

func mrMetadata(mr model.MrRecord) string {
	lines := []string{
		field("Finding", mr.FindingKey),
		field("URL", mr.MrURL),
	}
	if mr.ProjectID != "" {
		lines = append(lines, field("Project", mr.ProjectID))
	}
	if mr.SourceBranch != "" || mr.TargetBranch != "" {
		lines = append(lines, field("Branch", fmt.Sprintf("%s -> %s", orDash(mr.SourceBranch), orDash(mr.TargetBranch))))
	}
	if mr.Status == model.MrStatusRejected || mr.RejectionReason != nil {
		lines = append(lines, field("Reason", mr.Rejection()))
	}
	lines = append(lines,
		field("Submitted", humanize.Time(mr.SubmittedAt)),
		field("Updated", humanize.Time(mr.UpdatedAt)),
	)
	return strings.Join(lines, "\n")
}

func renderActivity(activity []model.MrActivity) string {
	lines := []string{StyledText("Activity", sectionStyle)}
	for _, a := range activity {
		actor := a.ChangedBy
		if actor == "" {
			actor = "system"
		}
		when := StyledText(humanize.Time(a.CreatedAt), dimStyle)

		var line string
		switch {
		case a.FieldChanged == "created":
			line = fmt.Sprintf("  ✨ %s recorded submission  %s", actor, when)
		case a.OldValue != "" && a.NewValue != "":
			line = fmt.Sprintf("  ✎ %s changed %s: %s -> %s  %s", actor, StyledText(a.FieldChanged, valueStyle), a.OldValue, a.NewValue, when)
		default:
			line = fmt.Sprintf("  ✎ %s set %s: %s  %s", actor, StyledText(a.FieldChanged, valueStyle), orDash(a.NewValue), when)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

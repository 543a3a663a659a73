package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

const (
	maxTitleWidth = 40
	maxURLWidth   = 60
)

// cellStyler colors one body cell; row indexes rows as passed to grid.
type cellStyler func(row, col int) lipgloss.Style

// grid renders rows under headers: a bordered lipgloss table when colors are
// enabled, space-aligned columns otherwise.
func grid(headers []string, rows [][]string, style cellStyler) string {
	if !ColorsEnabled() {
		return plainGrid(headers, rows)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return base.Inherit(sectionStyle)
			}
			if style == nil || row < 0 || row >= len(rows) {
				return base
			}
			return base.Inherit(style(row, col))
		})
	return t.Render()
}

func plainGrid(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(c)
				continue
			}
			b.WriteString(c + strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	b.WriteString(strings.Repeat("-", total-2) + "\n")
	for _, r := range rows {
		writeRow(r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderMrTable renders MR records newest first as given.
func RenderMrTable(mrs []model.MrRecord, quiet bool) string {
	if len(mrs) == 0 {
		return EmptyState("No merge requests found.", "Record one with: fixtrack mr create <finding> <url>", quiet)
	}

	headers := []string{"ID", "Finding", "Status", "MR", "Reason", "Submitted"}
	rows := make([][]string, len(mrs))
	for i, m := range mrs {
		reason := ""
		if m.Status == model.MrStatusRejected || m.RejectionReason != nil {
			reason = truncate(m.Rejection(), maxTitleWidth)
		}
		rows[i] = []string{
			strconv.Itoa(m.ID),
			m.FindingKey,
			statusLabel(m.Status),
			truncate(m.MrURL, maxURLWidth),
			orDash(reason),
			humanize.Time(m.SubmittedAt),
		}
	}

	return grid(headers, rows, func(row, col int) lipgloss.Style {
		switch col {
		case 2:
			return statusStyle(mrs[row].Status)
		case 4, 5:
			return dimStyle
		default:
			return lipgloss.NewStyle()
		}
	})
}

// RenderIssueTable renders tracked findings. Placeholders show a dash for
// the ticket columns.
func RenderIssueTable(issues []model.IssueRecord, quiet bool) string {
	if len(issues) == 0 {
		return EmptyState("No tracked findings.", "Findings are recorded by: fixtrack evaluate <finding>", quiet)
	}

	headers := []string{"Finding", "Ticket", "Ticket Project", "Analysis Project", "Updated"}
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{
			is.FindingKey,
			orDash(model.Deref(is.TicketKey)),
			orDash(model.Deref(is.TicketProjectKey)),
			orDash(model.Deref(is.AnalysisProjectKey)),
			humanize.Time(is.UpdatedAt),
		}
	}

	return grid(headers, rows, func(row, col int) lipgloss.Style {
		if col == 1 && issues[row].IsPlaceholder() {
			return dimStyle
		}
		if col == 0 {
			return valueStyle
		}
		return lipgloss.NewStyle()
	})
}

// RenderProjectTable renders analysis-to-ticket project mappings.
func RenderProjectTable(mappings []model.ProjectMapping, quiet bool) string {
	if len(mappings) == 0 {
		return EmptyState("No project mappings.", "Add one with: fixtrack project map <analysis> <ticket>", quiet)
	}

	rows := make([][]string, len(mappings))
	for i, p := range mappings {
		rows[i] = []string{p.AnalysisProjectKey, p.TicketProjectKey, humanize.Time(p.CreatedAt)}
	}
	return grid([]string{"Analysis Project", "Ticket Project", "Created"}, rows, nil)
}

// RenderRunTable renders reconciliation run history.
func RenderRunTable(runs []model.ReconcileRun) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		rows[i] = []string{
			humanize.Time(r.StartedAt),
			result,
			strconv.Itoa(r.TotalChecked),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Failed),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		}
	}

	return grid([]string{"Started", "Result", "Checked", "Updated", "Failed", "Took"}, rows, func(row, col int) lipgloss.Style {
		if col != 1 {
			return lipgloss.NewStyle()
		}
		if runs[row].Success {
			return lipgloss.NewStyle().Foreground(ColorFromName("green"))
		}
		return lipgloss.NewStyle().Foreground(ColorFromName("red"))
	})
}

func countLine(label string, n int) string {
	return fmt.Sprintf("  %s %s", StyledText(fmt.Sprintf("%-18s", label+":"), labelStyle), StyledText(humanize.Comma(int64(n)), valueStyle))
}

package render

import (
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
)

// StyledText applies style when colors are enabled.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// ColorFromName maps model color names to terminal colors.
func ColorFromName(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("9")
	case "yellow":
		return lipgloss.Color("11")
	case "blue":
		return lipgloss.Color("12")
	case "green":
		return lipgloss.Color("10")
	case "gray":
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("15")
	}
}

// StatusIcon returns the glyph shown next to an MR status.
func StatusIcon(s model.MrStatus) string {
	switch s {
	case model.MrStatusCreated:
		return "○"
	case model.MrStatusMerged:
		return "✔"
	case model.MrStatusClosed:
		return "⊘"
	case model.MrStatusRejected:
		return "✘"
	default:
		return "?"
	}
}

func statusLabel(s model.MrStatus) string {
	return StatusIcon(s) + " " + string(s)
}

func statusStyle(s model.MrStatus) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorFromName(s.Color()))
}

// truncate shortens s to maxLen runes, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// EmptyState renders a dim message followed by an italic hint. quiet drops
// the hint.
func EmptyState(message, hint string, quiet bool) string {
	if quiet || hint == "" {
		return StyledText(message, dimStyle)
	}
	return StyledText(message, dimStyle) + "\n" + StyledText(hint, dimStyle.Italic(true))
}

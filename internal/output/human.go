package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

var (
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// writeHumanSuccess prints message. Multi-line content (tables, detail
// views) is printed untouched; a single line gets a check mark.
func writeHumanSuccess(w io.Writer, message string) {
	if message == "" {
		return
	}
	if strings.Contains(message, "\n") || !render.ColorsEnabled() {
		fmt.Fprintln(w, message)
		return
	}
	fmt.Fprintf(w, "%s %s\n", okStyle.Render("✔"), message)
}

func writeHumanError(w io.Writer, err error) {
	if !render.ColorsEnabled() {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", errStyle.Render("✘"), errStyle.Render("Error:"), err)
}

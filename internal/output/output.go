package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

// Writer handles output for a command, dispatching between the JSON
// envelope and human-readable text based on mode flags.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// New creates a Writer bound to os.Stdout and os.Stderr.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success renders a successful result. JSON mode wraps data in a success
// envelope; human mode prints message.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	writeHumanSuccess(w.Stdout, message)
}

// Error renders err and returns the exit code for code. In JSON mode the
// envelope goes to Stdout so scripted callers read a single stream.
func (w *Writer) Error(err error, code ErrorCode) int {
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code)
	} else {
		writeHumanError(w.Stderr, err)
	}
	return ExitCodeForError(code)
}

// Info writes a dim informational line to Stderr. Suppressed in quiet and
// JSON modes.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	w.notice(infoStyle, "ℹ", "", fmt.Sprintf(format, args...))
}

// Warn writes a warning to Stderr. Quiet mode does not suppress warnings;
// JSON mode does.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	w.notice(warnStyle, "⚠", "Warning:", fmt.Sprintf(format, args...))
}

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

func (w *Writer) notice(style lipgloss.Style, icon, label, msg string) {
	if !render.ColorsEnabled() {
		if label != "" {
			msg = label + " " + msg
		}
		fmt.Fprintln(w.Stderr, msg)
		return
	}
	parts := style.Render(icon)
	if label != "" {
		parts += " " + style.Render(label)
		fmt.Fprintf(w.Stderr, "%s %s\n", parts, msg)
		return
	}
	fmt.Fprintf(w.Stderr, "%s %s\n", parts, style.Render(msg))
}

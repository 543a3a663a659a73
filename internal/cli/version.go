package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/db"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print fixtrack version information",
	Annotations: map[string]string{skipDB: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		w := getWriter(cmd)

		bold := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		msg := fmt.Sprintf("fixtrack version %s %s",
			render.StyledText(version, bold),
			render.StyledText(fmt.Sprintf("(commit: %s, built: %s, schema: v%d)", commit, buildDate, db.CurrentSchemaVersion()), dim),
		)

		w.Success(struct {
			Version       string `json:"version"`
			Commit        string `json:"commit"`
			BuildDate     string `json:"build_date"`
			SchemaVersion int    `json:"schema_version"`
		}{version, commit, buildDate, db.CurrentSchemaVersion()}, msg)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

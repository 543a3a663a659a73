package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/config"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
	"github.com/ALT-F4-LLC/fixtrack/internal/rules"
	"github.com/ALT-F4-LLC/fixtrack/internal/store"
)

type initResult struct {
	Path          string `json:"path"`
	DBPath        string `json:"db_path"`
	ConfigPath    string `json:"config_path"`
	RulesPath     string `json:"rules_path"`
	SchemaVersion int    `json:"schema_version"`
	Created       bool   `json:"created"`
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize a fixtrack directory, database and default config",
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		settings := getSettings(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}
		if exists {
			w.Warn("Database already exists at %s", cfg.DBPath)
		}

		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return cmdErr(fmt.Errorf("creating directory: %w", err), output.ErrGeneral)
		}

		// Opening creates the schema and applies pending migrations.
		st, err := store.Open(cfg.DBPath, store.Config{TerminalStatuses: settings.TerminalMrStatuses()}, getLogger(cmd))
		if err != nil {
			return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrStorage)
		}
		info := st.DatabaseInfo()
		if err := st.Close(); err != nil {
			return cmdErr(fmt.Errorf("closing database: %w", err), output.ErrStorage)
		}

		if err := config.WriteDefault(cfg.ConfigPath); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		if _, err := os.Stat(settings.ExclusionRulesPath); errors.Is(err, os.ErrNotExist) {
			if err := rules.Save(settings.ExclusionRulesPath, mapset.NewSet[string]()); err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
		}

		res := initResult{
			Path:          cfg.Dir,
			DBPath:        cfg.DBPath,
			ConfigPath:    cfg.ConfigPath,
			RulesPath:     settings.ExclusionRulesPath,
			SchemaVersion: info.SchemaVersion,
			Created:       !exists,
		}

		if exists {
			w.Success(res, render.StyledText("Database already initialized", lipgloss.NewStyle().Foreground(lipgloss.Color("3"))))
			return nil
		}

		w.Success(res, render.StyledText("Initialized fixtrack database", lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))))
		w.Info("Database created at %s", cfg.DBPath)
		w.Info("Edit %s to configure GitLab and retention", cfg.ConfigPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

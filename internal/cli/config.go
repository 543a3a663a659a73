package cli

import (
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/config"
	"github.com/ALT-F4-LLC/fixtrack/internal/db"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

type configInfo struct {
	Database     model.DatabaseInfo `json:"database"`
	ConfigPath   string             `json:"config_path"`
	FixtrackPath string             `json:"fixtrack_path_env"`
	GitLabToken  bool               `json:"gitlab_token_set"`
	Settings     config.Settings    `json:"settings"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display resolved configuration and database info",
	Annotations: map[string]string{skipDB: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		settings := getSettings(cmd)

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}

		var info model.DatabaseInfo
		if exists {
			conn, err := db.Open(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrStorage)
			}
			defer conn.Close()
			if info, err = db.GetDatabaseInfo(conn, cfg.DBPath); err != nil {
				return cmdErr(err, output.ErrStorage)
			}
		} else {
			w.Warn("No fixtrack database found. Run 'fixtrack init' to create one.")
			info = model.DatabaseInfo{Path: cfg.DBPath}
		}

		ci := configInfo{
			Database:     info,
			ConfigPath:   cfg.ConfigPath,
			FixtrackPath: os.Getenv("FIXTRACK_PATH"),
			GitLabToken:  settings.GitLab.Token != "",
			Settings:     settings,
		}
		w.Success(ci, formatConfig(ci))
		return nil
	},
}

func formatConfig(ci configInfo) string {
	s := ci.Settings
	dbLine := ci.Database.Path
	if !ci.Database.Exists {
		dbLine += " (not found)"
	}

	token := "(not set)"
	if ci.GitLabToken {
		token = "set"
	}

	rows := [][2]string{
		{"Database path", dbLine},
	}
	if ci.Database.Exists {
		rows = append(rows,
			[2]string{"Database size", humanize.Bytes(uint64(ci.Database.SizeBytes))},
			[2]string{"Schema version", fmt.Sprintf("%d", ci.Database.SchemaVersion)},
		)
	}
	rows = append(rows,
		[2]string{"Config file", ci.ConfigPath},
		[2]string{"Exclusion rules", s.ExclusionRulesPath},
		[2]string{"Lookback", fmt.Sprintf("%d days", s.LookbackDays)},
		[2]string{"Retention", fmt.Sprintf("%d days", s.RetentionDays)},
		[2]string{"Terminal statuses", strings.Join(s.TerminalStatuses, ", ")},
		[2]string{"Sync interval", s.SyncInterval.String()},
		[2]string{"GitLab", orNotSet(s.GitLab.URL)},
		[2]string{"GitLab token", token},
		[2]string{"Log level", s.Log.Level},
		[2]string{"FIXTRACK_PATH", orNotSet(ci.FixtrackPath)},
	)

	lines := []string{render.StyledText("fixtrack configuration", sectionStyle()), ""}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %s", render.StyledText(fmt.Sprintf("%-18s", r[0]+":"), keyStyle()), r[1]))
	}
	return strings.Join(lines, "\n")
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
}

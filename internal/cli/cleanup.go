package cli

import (
	"errors"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/output"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete tracking records older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		days, _ := cmd.Flags().GetInt("days")
		if days == 0 {
			days = getSettings(cmd).RetentionDays
		}
		if days < 0 {
			return cmdErr(errors.New("--days must not be negative"), output.ErrValidation)
		}

		res, ok := getStore(cmd).CleanupOlderThan(days)
		if !ok {
			return cmdErr(errors.New("cleanup failed, see log for details"), output.ErrStorage)
		}

		msg := fmt.Sprintf("Removed %d records older than %s (%d merge requests, %d findings, %d project mappings)",
			res.Total(), humanize.Time(res.Cutoff), res.MrRecords, res.IssueRecords, res.ProjectMappings)
		if res.Total() == 0 {
			msg = fmt.Sprintf("Nothing older than %s", humanize.Time(res.Cutoff))
		}
		w.Success(res, msg)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Int("days", 0, "Retention window in days (default from config)")
	rootCmd.AddCommand(cleanupCmd)
}

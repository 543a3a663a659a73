package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

const recentRunLimit = 5

type statsResult struct {
	model.Statistics
	Database   model.DatabaseInfo   `json:"database"`
	RecentRuns []model.ReconcileRun `json:"recent_runs"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tracking statistics and recent reconciliation runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)

		stats, ok := st.GetStatistics()
		if !ok {
			return cmdErr(errors.New("statistics unavailable, see log for details"), output.ErrStorage)
		}
		res := statsResult{
			Statistics: stats,
			Database:   st.DatabaseInfo(),
			RecentRuns: st.RecentReconcileRuns(recentRunLimit),
		}
		if res.RecentRuns == nil {
			res.RecentRuns = []model.ReconcileRun{}
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderStats(res.Statistics, res.RecentRuns)
		}
		w.Success(res, msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

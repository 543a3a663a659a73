package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/config"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

var mrCmd = &cobra.Command{
	Use:   "mr",
	Short: "Record and inspect merge request submissions",
}

var mrCreateCmd = &cobra.Command{
	Use:   "create <finding> <mr-url>",
	Short: "Record a merge request submitted for a finding",
	Long: `Record a new submission for a finding. The new record becomes the
finding's latest; earlier submissions are kept as history.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		f := cmd.Flags()

		in := model.MrInput{FindingKey: args[0], MrURL: args[1]}
		in.MrExternalID, _ = f.GetString("external-id")
		in.ProjectID, _ = f.GetString("project-id")
		in.Title, _ = f.GetString("title")
		in.Description, _ = f.GetString("description")
		in.BranchName, _ = f.GetString("branch")
		in.SourceBranch, _ = f.GetString("source-branch")
		in.TargetBranch, _ = f.GetString("target-branch")
		status, _ := f.GetString("status")
		in.Status = model.MrStatus(status)

		if in.FindingKey == "" || in.MrURL == "" {
			return cmdErr(errors.New("finding and mr url must not be empty"), output.ErrValidation)
		}
		if in.Status != "" {
			if err := model.ValidateMrStatus(in.Status); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		if in.SourceBranch == "" {
			in.SourceBranch = in.BranchName
		}

		st := getStore(cmd)
		if !st.CreateMrRecord(in) {
			return cmdErr(errors.New("merge request not recorded, see log for details"), output.ErrStorage)
		}
		w.Success(st.GetLatestMrRecord(in.FindingKey), fmt.Sprintf("Recorded %s for %s", in.MrURL, in.FindingKey))
		return nil
	},
}

var mrStatusCmd = &cobra.Command{
	Use:   "status <mr-url> <status>",
	Short: "Set the status of a merge request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		status := model.MrStatus(args[1])
		if err := model.ValidateMrStatus(status); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		reason, _ := cmd.Flags().GetString("reason")
		by, _ := cmd.Flags().GetString("by")
		if by == "" {
			by = config.DefaultActor()
		}

		if !getStore(cmd).UpdateMrStatusByURL(args[0], status, model.StringPtr(reason), by) {
			return cmdErr(fmt.Errorf("no merge request updated for %s", args[0]), output.ErrNotFound)
		}
		w.Success(model.MrStatusUpdate{MrURL: args[0], Status: status, RejectionReason: model.StringPtr(reason)},
			fmt.Sprintf("%s is now %s", args[0], status))
		return nil
	},
}

var mrListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending, rejected or per-finding merge requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		f := cmd.Flags()

		pending, _ := f.GetBool("pending")
		rejected, _ := f.GetBool("rejected")
		finding, _ := f.GetString("finding")

		var mrs []model.MrRecord
		switch {
		case pending:
			days, _ := f.GetInt("days")
			if days <= 0 {
				days = getSettings(cmd).LookbackDays
			}
			mrs = st.GetPendingMrRecords(days)
		case rejected:
			mrs = st.GetRejectedMrRecords()
		case finding != "":
			mrs = st.GetMrRecords(finding)
		default:
			return cmdErr(errors.New("one of --pending, --rejected or --finding is required"), output.ErrValidation)
		}
		if mrs == nil {
			mrs = []model.MrRecord{}
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderMrTable(mrs, w.QuietMode)
		}
		w.Success(mrs, msg)
		return nil
	},
}

type mrDetail struct {
	Mr       model.MrRecord     `json:"merge_request"`
	Activity []model.MrActivity `json:"activity"`
}

var mrShowCmd = &cobra.Command{
	Use:   "show <finding>",
	Short: "Show the latest merge request for a finding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)

		latest := st.GetLatestMrRecord(args[0])
		if latest == nil {
			return cmdErr(fmt.Errorf("no merge request recorded for %s", args[0]), output.ErrNotFound)
		}
		d := mrDetail{Mr: *latest, Activity: st.GetMrActivity(latest.MrURL)}

		var msg string
		if !w.JSONMode {
			msg = render.RenderMrDetail(d.Mr, d.Activity)
		}
		w.Success(d, msg)
		return nil
	},
}

func init() {
	cf := mrCreateCmd.Flags()
	cf.String("external-id", "", "Merge request IID on the code host")
	cf.String("project-id", "", "Code host project ID or path")
	cf.String("title", "", "Merge request title")
	cf.String("description", "", "Merge request description (markdown)")
	cf.String("branch", "", "Fix branch name")
	cf.String("source-branch", "", "Source branch (defaults to --branch)")
	cf.String("target-branch", "", "Target branch")
	cf.String("status", "", "Initial status (default created)")

	mrStatusCmd.Flags().String("reason", "", "Rejection or closure reason")
	mrStatusCmd.Flags().String("by", "", "Actor recorded in the activity log (default git user.name)")

	lf := mrListCmd.Flags()
	lf.Bool("pending", false, "Non-terminal merge requests within the lookback window")
	lf.Bool("rejected", false, "Rejected merge requests")
	lf.String("finding", "", "All submissions for a finding")
	lf.Int("days", 0, "Lookback window in days for --pending (default from config)")
	mrListCmd.MarkFlagsMutuallyExclusive("pending", "rejected", "finding")

	mrCmd.AddCommand(mrCreateCmd, mrStatusCmd, mrListCmd, mrShowCmd)
	rootCmd.AddCommand(mrCmd)
}

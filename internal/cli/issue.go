package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/decision"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

var issueCmd = &cobra.Command{
	Use:     "issue",
	Short:   "Inspect tracked findings",
	Aliases: []string{"i"},
}

type issueDetail struct {
	Issue    model.IssueRecord  `json:"issue"`
	Mrs      []model.MrRecord   `json:"merge_requests"`
	Activity []model.MrActivity `json:"activity"`
}

var issueShowCmd = &cobra.Command{
	Use:   "show <finding>",
	Short: "Show a finding with its merge request history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)

		issue := st.GetIssueBasicInfo(args[0])
		if issue == nil {
			return cmdErr(fmt.Errorf("finding %s is not tracked", args[0]), output.ErrNotFound)
		}

		d := issueDetail{Issue: *issue, Mrs: st.GetMrRecords(args[0])}
		if len(d.Mrs) > 0 {
			d.Activity = st.GetMrActivity(d.Mrs[0].MrURL)
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderIssueDetail(d.Issue, d.Mrs, d.Activity)
		}
		w.Success(d, msg)
		return nil
	},
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings tracked for an analysis project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		project, _ := cmd.Flags().GetString("project")

		issues := getStore(cmd).ListIssuesByProject(project)
		if issues == nil {
			issues = []model.IssueRecord{}
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderIssueTable(issues, w.QuietMode)
		}
		w.Success(issues, msg)
		return nil
	},
}

var issueRefixCmd = &cobra.Command{
	Use:   "refix",
	Short: "List findings whose latest merge request was rejected",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		candidates := newEngine(cmd).IssuesNeedingRefix()
		if candidates == nil {
			candidates = []decision.RefixCandidate{}
		}
		mrs := make([]model.MrRecord, len(candidates))
		for i, c := range candidates {
			mrs[i] = c.Mr
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderMrTable(mrs, w.QuietMode)
			if len(mrs) == 0 {
				msg = render.EmptyState("Nothing to refix.", "", true)
			}
		}
		w.Success(candidates, msg)
		return nil
	},
}

func init() {
	issueListCmd.Flags().StringP("project", "p", "", "Analysis project key")
	_ = issueListCmd.MarkFlagRequired("project")
	issueCmd.AddCommand(issueShowCmd, issueListCmd, issueRefixCmd)
	rootCmd.AddCommand(issueCmd)
}

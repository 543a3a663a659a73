package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/decision"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
	"github.com/ALT-F4-LLC/fixtrack/internal/rules"
)

func newEngine(cmd *cobra.Command) *decision.Engine {
	s := getSettings(cmd)
	logger := getLogger(cmd)
	provider := rules.NewFileProvider(s.ExclusionRulesPath,
		rules.WithCheckInterval(s.ExclusionCheckInterval),
		rules.WithLogger(logger),
	)
	return decision.New(getStore(cmd), provider, logger)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <finding>",
	Short: "Decide whether a finding needs remediation",
	Long: `Evaluate a finding against the tracking store.

A finding seen for the first time is recorded as a placeholder. Findings
whose rule is listed in the exclusion file never need work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		ruleID, _ := cmd.Flags().GetString("rule")

		res := newEngine(cmd).Evaluate(args[0], ruleID)

		var msg string
		if !w.JSONMode {
			msg = formatDecision(args[0], res)
		}
		w.Success(res, msg)
		return nil
	},
}

func formatDecision(finding string, res decision.Result) string {
	verdict := render.StyledText("no fix needed", accentStyle("8"))
	if res.NeedFix {
		verdict = render.StyledText("needs fix", accentStyle("11"))
	}
	lines := []string{
		fmt.Sprintf("%s  %s", render.StyledText(finding, sectionStyle()), verdict),
		fmt.Sprintf("  %s %s", render.StyledText("Reason:", keyStyle()), res.Reason),
		fmt.Sprintf("  %s %s", render.StyledText("Action:", keyStyle()), res.ActionRequired),
	}
	if res.LatestMr != nil {
		lines = append(lines, fmt.Sprintf("  %s %s", render.StyledText("Latest MR:", keyStyle()), res.LatestMr.MrURL))
	}
	return strings.Join(lines, "\n")
}

var ticketCmd = &cobra.Command{
	Use:   "ticket <finding> <ticket> <ticket-project>",
	Short: "Record the ticket tracking a finding",
	Long: `Attach a ticket to a finding.

A placeholder left by evaluate is backfilled; a finding that already has a
ticket keeps it.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		analysis, _ := cmd.Flags().GetString("analysis-project")

		for i, name := range []string{"finding", "ticket", "ticket project"} {
			if strings.TrimSpace(args[i]) == "" {
				return cmdErr(fmt.Errorf("%s must not be empty", name), output.ErrValidation)
			}
		}

		f := decision.Finding{Key: args[0], AnalysisProjectKey: analysis}
		if !newEngine(cmd).EnsureIssueTicket(f, args[1], args[2]) {
			return cmdErr(errors.New("ticket not recorded, see log for details"), output.ErrStorage)
		}

		issue := getStore(cmd).GetIssueBasicInfo(args[0])
		msg := fmt.Sprintf("Finding %s tracked by %s", args[0], args[1])
		if issue != nil && issue.TicketKey != nil && *issue.TicketKey != args[1] {
			w.Warn("finding already tracked by %s, ticket %s not applied", *issue.TicketKey, args[1])
			msg = fmt.Sprintf("Finding %s tracked by %s", args[0], *issue.TicketKey)
		}
		w.Success(issue, msg)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("rule", "", "Rule ID that produced the finding")
	ticketCmd.Flags().String("analysis-project", "", "Analysis project key the finding belongs to")
	rootCmd.AddCommand(evaluateCmd, ticketCmd)
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage analysis-to-ticket project mappings",
}

var projectMapCmd = &cobra.Command{
	Use:   "map <analysis-project> <ticket-project>",
	Short: "Map an analysis project to a ticketing project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		if args[0] == "" || args[1] == "" {
			return cmdErr(errors.New("project keys must not be empty"), output.ErrValidation)
		}
		if !getStore(cmd).RecordProjectMapping(args[0], args[1]) {
			return cmdErr(errors.New("mapping not recorded, see log for details"), output.ErrStorage)
		}
		w.Success(model.ProjectMapping{AnalysisProjectKey: args[0], TicketProjectKey: args[1]},
			fmt.Sprintf("Mapped %s to %s", args[0], args[1]))
		return nil
	},
}

var projectGetCmd = &cobra.Command{
	Use:   "get <analysis-project>",
	Short: "Show the ticketing project for an analysis project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		ticket, ok := getStore(cmd).IsProjectMapped(args[0])
		if !ok {
			return cmdErr(fmt.Errorf("analysis project %s is not mapped", args[0]), output.ErrNotFound)
		}
		w.Success(struct {
			AnalysisProjectKey string `json:"analysis_project_key"`
			TicketProjectKey   string `json:"ticket_project_key"`
		}{args[0], ticket}, ticket)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		mappings := getStore(cmd).ListProjectMappings()
		if mappings == nil {
			mappings = []model.ProjectMapping{}
		}

		var msg string
		if !w.JSONMode {
			msg = render.RenderProjectTable(mappings, w.QuietMode)
		}
		w.Success(mappings, msg)
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectMapCmd, projectGetCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/gitlab"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/reconcile"
	"github.com/ALT-F4-LLC/fixtrack/internal/render"
)

// newReconciler wires the reconciliation service to the GitLab adapter.
func newReconciler(cmd *cobra.Command) (*reconcile.Service, error) {
	s := getSettings(cmd)
	logger := getLogger(cmd)

	client, err := gitlab.NewClient(gitlab.Options{
		BaseURL:           s.GitLab.URL,
		Token:             s.GitLab.Token,
		RequestsPerSecond: s.GitLab.RequestsPerSecond,
		Concurrency:       s.GitLab.Concurrency,
		Logger:            logger,
	})
	if err != nil {
		if errors.Is(err, gitlab.ErrNotConfigured) {
			return nil, cmdErr(fmt.Errorf("%w: set gitlab.url in %s or FIXTRACK_GITLAB_URL", err, getCfg(cmd).ConfigPath), output.ErrUnavailable)
		}
		return nil, cmdErr(err, output.ErrValidation)
	}

	return reconcile.New(getStore(cmd), client, reconcile.Config{
		LookbackDays: s.LookbackDays,
		Timeout:      s.ReconcileTimeout,
	}, logger), nil
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Refresh pending merge request statuses from GitLab",
	Long: `Run one reconciliation cycle.

Every non-terminal merge request submitted within the lookback window is
looked up on GitLab and its stored status updated when it changed. A GitLab
outage is reported in the summary and leaves the store untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		days, _ := cmd.Flags().GetInt("days")

		svc, err := newReconciler(cmd)
		if err != nil {
			return err
		}

		res := svc.Reconcile(cmd.Context(), days)
		summary := reconcile.Summary(res)
		if !w.JSONMode {
			summary = formatReconcile(res, summary)
		}
		w.Success(res, summary)
		return nil
	},
}

func formatReconcile(res reconcile.Result, summary string) string {
	if !res.Success {
		return render.StyledText(summary, accentStyle("9"))
	}
	detail := render.StyledText(fmt.Sprintf("(%d checked in %s)", res.TotalChecked, res.Duration.Round(time.Millisecond)), keyStyle())
	return strings.Join([]string{summary, detail}, " ")
}

func init() {
	reconcileCmd.Flags().Int("days", 0, "Lookback window in days (default from config)")
	rootCmd.AddCommand(reconcileCmd)
}

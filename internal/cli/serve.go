package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/reconcile"
	"github.com/ALT-F4-LLC/fixtrack/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run reconciliation and retention cleanup on a schedule",
	Long: `Run the background scheduler until interrupted.

Reconciliation runs every sync_interval and retention cleanup every
cleanup_interval. With --once each task runs a single time and the command
exits.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{daemon: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		settings := getSettings(cmd)
		// Post-run hooks are skipped when RunE fails.
		defer getEnv(cmd).close()
		st := getStore(cmd)
		logger := getLogger(cmd)
		once, _ := cmd.Flags().GetBool("once")

		svc, err := newReconciler(cmd)
		if err != nil {
			return err
		}

		reconcileTask := func(ctx context.Context) error {
			if res := svc.Reconcile(ctx, 0); !res.Success {
				return errors.New(reconcile.Summary(res))
			}
			return nil
		}
		cleanupTask := func(ctx context.Context) error {
			if _, ok := st.CleanupOlderThan(settings.RetentionDays); !ok {
				return errors.New("retention cleanup failed")
			}
			return nil
		}

		sched := scheduler.New(scheduler.Config{
			SyncInterval:    settings.SyncInterval,
			CleanupInterval: settings.CleanupInterval,
			RunOnStart:      true,
		}, reconcileTask, cleanupTask, logger)

		if once {
			if err := sched.RunOnce(cmd.Context()); err != nil {
				return cmdErr(err, output.ErrGeneral)
			}
			w.Success(nil, "Scheduled tasks completed")
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := sched.Start(ctx); err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		w.Info("Scheduler running (sync every %s, cleanup every %s); press Ctrl-C to stop",
			settings.SyncInterval, settings.CleanupInterval)

		<-ctx.Done()
		logger.Info("shutdown requested")
		if err := sched.Stop(shutdownTimeout); err != nil {
			return cmdErr(fmt.Errorf("stopping scheduler: %w", err), output.ErrGeneral)
		}
		w.Success(nil, "Scheduler stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("once", false, "Run each task once and exit")
	rootCmd.AddCommand(serveCmd)
}

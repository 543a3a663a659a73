package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/fixtrack/internal/config"
	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/output"
	"github.com/ALT-F4-LLC/fixtrack/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Command output streams; replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type contextKey string

const envKey contextKey = "env"

// env is everything a command needs, built once per invocation by the root
// command's pre-run hook.
type env struct {
	cfg      *config.Config
	settings config.Settings
	logger   *slog.Logger
	closeLog func() error
	store    *store.Store

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// close releases the store and log file. Safe to call more than once.
func (e *env) close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.store != nil {
			errs = append(errs, e.store.Close())
		}
		if e.closeLog != nil {
			errs = append(errs, e.closeLog())
		}
		e.closeErr = errors.Join(errs...)
		e.closed = true
	})
	return e.closeErr
}

// active is the env of the running command. Cobra skips post-run hooks when
// a command fails, so execute closes it on that path.
var active *env

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

// Command annotations read by the pre-run hook.
const (
	skipDB = "skipDB" // command does not need an existing database
	daemon = "daemon" // long-running command; logs at the configured level
)

var rootCmd = &cobra.Command{
	Use:     "fixtrack",
	Short:   "Track remediation of static-analysis findings through tickets and merge requests",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return err
		}

		settings, err := config.Load(cfg.Dir)
		if err != nil {
			var ce *config.ConfigError
			if errors.As(err, &ce) {
				return cmdErr(err, output.ErrValidation)
			}
			return cmdErr(err, output.ErrGeneral)
		}

		logger, closeLog, err := openLogger(cmd, settings)
		if err != nil {
			return cmdErr(err, output.ErrGeneral)
		}
		e := &env{cfg: cfg, settings: settings, logger: logger, closeLog: closeLog}
		active = e
		cmd.SetContext(context.WithValue(cmd.Context(), envKey, e))

		if _, ok := cmd.Annotations[skipDB]; ok {
			return nil
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking database: %w", err), output.ErrGeneral)
		}
		if !exists {
			return cmdErr(
				fmt.Errorf("no fixtrack database found, run 'fixtrack init' to create one"),
				output.ErrNotFound,
			)
		}

		st, err := store.Open(cfg.DBPath, store.Config{TerminalStatuses: settings.TerminalMrStatuses()}, logger)
		if err != nil {
			return cmdErr(fmt.Errorf("opening database: %w", err), output.ErrStorage)
		}
		e.store = st
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if e := getEnv(cmd); e != nil {
			return e.close()
		}
		return nil
	}}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// openLogger builds the process logger. One-shot commands logging to the
// terminal only show warnings and errors so they do not interleave with
// command output.
func openLogger(cmd *cobra.Command, s config.Settings) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := cmd.Annotations[daemon]; !ok && s.Log.File == "" && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return logging.Open(s.Log.File, level)
}

func newWriter(jsonMode, quietMode bool) *output.Writer {
	w := output.New(jsonMode, quietMode)
	w.Stdout, w.Stderr = stdout, stderr
	return w
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return newWriter(jsonMode, quietMode)
}

func getEnv(cmd *cobra.Command) *env {
	if cmd.Context() == nil {
		return nil
	}
	e, _ := cmd.Context().Value(envKey).(*env)
	return e
}

func getCfg(cmd *cobra.Command) *config.Config { return getEnv(cmd).cfg }

func getSettings(cmd *cobra.Command) config.Settings { return getEnv(cmd).settings }

func getLogger(cmd *cobra.Command) *slog.Logger { return getEnv(cmd).logger }

func getStore(cmd *cobra.Command) *store.Store { return getEnv(cmd).store }

// Execute runs the root command and returns an exit code.
func Execute() int {
	return execute(context.Background())
}

func execute(ctx context.Context) int {
	active = nil
	err := rootCmd.ExecuteContext(ctx)
	if active != nil {
		if cerr := active.close(); err == nil && cerr != nil {
			err = cmdErr(cerr, output.ErrStorage)
		}
	}
	if err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := newWriter(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.ErrGeneral)
	}
	return output.ExitSuccess
}

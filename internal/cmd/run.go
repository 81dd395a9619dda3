package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/flatten/internal/config"
	"github.com/harrison/flatten/internal/display"
	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/filelock"
	"github.com/harrison/flatten/internal/fileutil"
	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/history"
	"github.com/harrison/flatten/internal/logger"
	"github.com/harrison/flatten/internal/models"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Copy matching files into the output directory and rename them",
		Long: `Run both phases against root (default: the current directory).

Phase 1 copies every file ending in --from into the output directory. A name
that is already taken gets a (1), (2), ... suffix before the extension.
Phase 2 rewrites the extension of the copies to --to.

Per-file failures are reported at the end and do not change the exit code
unless --fail-fast is set. A missing root, an unusable output directory or
a lock held by another run exit with status 1.

Examples:
  flatten run ./logs --from log --to txt
  flatten run --from .LOG --to .txt --case-insensitive
  flatten run src --from go --to txt --output /tmp/flat --exclude "**/testdata/**"
  flatten run --from log --to txt --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFlatten,
	}

	addConfigFlag(cmd)
	addScanFlags(cmd)
	addLogFlags(cmd)
	cmd.Flags().String("to", "", "Target extension, with or without the dot (e.g. txt)")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first file that cannot be copied or renamed")
	cmd.Flags().Bool("dry-run", false, "Show what would be copied and renamed without writing anything")
	cmd.Flags().String("rename-scope", "", "Which output files to rename: run (this run's copies) or all")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("progress", false, "Show a progress bar instead of phase lines (terminal only)")
	cmd.Flags().Duration("lock-wait", 0, "How long to wait for another run to release the output directory")

	return cmd
}

// runFlatten implements the run command logic
func runFlatten(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	output, err := resolveOutput(cfg, root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	progress, _ := cmd.Flags().GetBool("progress")

	runLogger, closeLogs := buildRunLogger(cfg, out, errOut, progress)
	defer closeLogs()

	if fileutil.IsWithin(output, root) {
		display.WarnOutputInsideRoot(root, output).Display(errOut)
	}

	fs := fsys.NewOSFS()
	from := extension.Normalize(cfg.From)
	opts := flatten.Options{
		Root:        root,
		Output:      output,
		From:        from,
		To:          extension.Normalize(cfg.To),
		FoldCase:    cfg.CaseInsensitive,
		FailFast:    cfg.FailFast,
		DryRun:      cfg.DryRun,
		RenameScope: flatten.RenameScope(cfg.RenameScope),
		ExcludeDirs: cfg.ExcludeDirs,
		Exclude:     cfg.Exclude,
		SkipHidden:  cfg.SkipHidden,
		MaxDepth:    cfg.MaxDepth,
	}
	lock := filelock.ForTarget(cfg.LockDir, output)
	opts.Locker = filelock.NewWaitingLock(lock, cfg.LockWait)

	pipeline, err := flatten.New(fs, opts, runLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := pipeline.Run(ctx)
	if progress && display.IsTerminal(out) {
		logger.NewConsoleLogger(out, "info").LogSummary(result)
	}

	if len(result.Failures) > 0 {
		display.WarnEntryFailures(result.Failures).Display(errOut)
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, flatten.ErrLocked):
		fmt.Fprintf(errOut, "Lock file: %s\n", lock.Path())
	case !flatten.IsFatal(runErr):
		fmt.Fprintln(errOut, "Run stopped at the first failed entry (fail_fast)")
	}
	if runErr == nil && !cfg.DryRun && opts.RenameScope == flatten.ScopeRun {
		pending, err := display.FindPendingFiles(fs, output, from, cfg.CaseInsensitive)
		if err == nil && len(pending) > 0 {
			display.WarnPendingFiles(output, from.String(), opts.To.String(), pending).Display(errOut)
		}
	}

	if cfg.History.Enabled {
		if err := recordRun(context.WithoutCancel(ctx), cfg.History, result); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to record run history: %v\n", err)
		}
	}

	return runErr
}

// buildRunLogger assembles the console, file and progress loggers for a
// run. The returned func closes the file log.
func buildRunLogger(cfg *config.Config, out, errOut io.Writer, progress bool) (flatten.Logger, func()) {
	consoleLevel := cfg.LogLevel
	var loggers []flatten.Logger
	if progress && display.IsTerminal(out) {
		loggers = append(loggers, logger.NewProgressLogger(out, display.ColorEnabled(out)))
		consoleLevel = "warn"
	}
	loggers = append(loggers, logger.NewConsoleLogger(out, consoleLevel))

	closeLogs := func() {}
	if cfg.LogDir != "" && !cfg.DryRun {
		fileLogger, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(errOut, "Warning: file logging disabled: %v\n", err)
		} else {
			loggers = append(loggers, fileLogger)
			closeLogs = func() { fileLogger.Close() }
		}
	}
	return logger.NewMultiLogger(loggers...), closeLogs
}

// recordRun stores result in the history database and prunes old runs.
func recordRun(ctx context.Context, cfg config.HistoryConfig, result *models.RunResult) error {
	store, err := history.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordRun(ctx, result); err != nil {
		return err
	}
	if cfg.KeepDays > 0 {
		if _, err := store.CleanupOlderThan(ctx, cfg.KeepDays); err != nil {
			return err
		}
	}
	return nil
}

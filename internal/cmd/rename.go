package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/flatten/internal/display"
	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/filelock"
	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/logger"
	"github.com/harrison/flatten/internal/models"
)

// NewRenameCommand creates the rename command
func NewRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename [root]",
		Short: "Rewrite the extension of every matching file in the output directory",
		Long: `Run only the second phase: rename every file directly inside the output
directory (default: <root>/flattened) from --from to --to. Subdirectories are
not entered and a file is never renamed onto an existing name.

Use it to finish a run that was interrupted, or to rename files that an
earlier run left with the source extension.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRename,
	}

	addConfigFlag(cmd)
	addLogFlags(cmd)
	cmd.Flags().String("from", "", "Source extension to rewrite")
	cmd.Flags().String("to", "", "Target extension")
	cmd.Flags().StringP("output", "o", "", "Output directory (default: <root>/flattened)")
	cmd.Flags().Bool("case-insensitive", false, "Match the source extension ignoring letter case")
	cmd.Flags().Bool("dry-run", false, "Show the renames without performing them")
	cmd.Flags().Duration("lock-wait", 0, "How long to wait for another run to release the output directory")

	return cmd
}

func runRename(cmd *cobra.Command, args []string) error {
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
	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	fs := fsys.NewOSFS()

	info, err := fs.Stat(output)
	if err != nil {
		return flatten.NewPipelineError(flatten.KindIOUnavailable, models.StateRenaming, output,
			fmt.Errorf("%w: %w", flatten.ErrOutputUnavailable, err))
	}
	if !info.IsDir() {
		return flatten.NewPipelineError(flatten.KindIOUnavailable, models.StateRenaming, output,
			fmt.Errorf("%w: not a directory", flatten.ErrOutputUnavailable))
	}

	if !cfg.DryRun {
		lock := filelock.NewWaitingLock(filelock.ForTarget(cfg.LockDir, output), cfg.LockWait)
		acquired, err := lock.TryLock()
		if err != nil {
			return flatten.NewPipelineError(flatten.KindIOUnavailable, models.StateRenaming, output,
				fmt.Errorf("%w: %w", flatten.ErrOutputUnavailable, err))
		}
		if !acquired {
			return flatten.NewPipelineError(flatten.KindIOUnavailable, models.StateRenaming, output,
				fmt.Errorf("%w (lock file %s)", flatten.ErrLocked, lock.Path()))
		}
		defer lock.Unlock()
	}

	from, to := extension.Normalize(cfg.From), extension.Normalize(cfg.To)
	renamer := flatten.NewRenamer(fs, output, from, to, cfg.CaseInsensitive, cfg.DryRun)
	if renamer.Noop() {
		fmt.Fprintf(out, "Nothing to do: %s and %s are the same extension\n", from, to)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.LogPhase(models.StateRenaming, fmt.Sprintf("%s: %s -> %s", output, from, to))
	report, err := renamer.RenameAll(ctx)
	for _, rf := range report.Renamed {
		console.LogRename(rf.From, rf.To)
	}

	var collected models.RunResult
	for _, pe := range report.Failures {
		collected.AddFailure(models.FailureRename, pe.Path, pe)
		console.LogFailure(collected.Failures[len(collected.Failures)-1])
	}
	failures := collected.Failures

	verb := "Renamed"
	if cfg.DryRun {
		verb = "Would rename"
	}
	fmt.Fprintf(out, "%s %d %s (%d skipped, %d failed)\n",
		verb, len(report.Renamed), pluralize(len(report.Renamed), "file", "files"), report.Skipped, len(failures))
	if len(failures) > 0 {
		display.WarnEntryFailures(failures).Display(cmd.ErrOrStderr())
	}
	return err
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

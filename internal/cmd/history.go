package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/flatten/internal/history"
)

// NewHistoryCommand creates the 'flatten history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs",
		Long: `List recorded runs, newest first. With a run ID (or any unique prefix of
one) show that run in detail, including every file that failed.

Examples:
  flatten history
  flatten history --limit 5
  flatten history 3f2a9c1e
  flatten history --cleanup 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	addConfigFlag(cmd)
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().Int("cleanup", 0, "Delete runs older than this many days, then list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", limit)
	}
	cleanup, _ := cmd.Flags().GetInt("cleanup")
	output := cmd.OutOrStdout()

	dbPath := cfg.History.DBPath
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No runs recorded yet\n")
		fmt.Fprintf(output, "Database path: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if cleanup > 0 {
		deleted, err := store.CleanupOlderThan(ctx, cleanup)
		if err != nil {
			return fmt.Errorf("cleanup history: %w", err)
		}
		fmt.Fprintf(output, "Deleted %d %s older than %d days\n\n", deleted, pluralize(int(deleted), "run", "runs"), cleanup)
	}

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			if errors.Is(err, history.ErrRunNotFound) {
				return fmt.Errorf("no run matches %q", args[0])
			}
			return err
		}
		failures, err := store.GetFailures(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("get failures: %w", err)
		}
		displayRun(output, run, failures)
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded yet\n")
		return nil
	}
	displayRunList(output, runs)
	return nil
}

// displayRunList prints one line per run.
func displayRunList(w io.Writer, runs []*history.Run) {
	fmt.Fprintf(w, "%-8s  %-19s  %-9s  %-14s  %6s  %7s  %6s  %s\n",
		"RUN", "STARTED", "STATE", "EXTENSIONS", "COPIED", "RENAMED", "FAILED", "ROOT")
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  %s  %-14s  %6d  %7d  %6d  %s\n",
			shortRunID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			stateLabel(r),
			r.SourceExt+" -> "+r.TargetExt,
			r.Copied, r.Renamed, r.Failed,
			r.Root)
	}
}

// displayRun prints a single run with its failures.
func displayRun(w io.Writer, r *history.Run, failures []*history.Failure) {
	bold := color.New(color.Bold)
	label := color.New(color.FgCyan)

	fmt.Fprintf(w, "%s\n", bold.Sprintf("Run %s", r.ID))
	line := func(name string, value interface{}) {
		fmt.Fprintf(w, "  %s %v\n", label.Sprintf("%-11s", name+":"), value)
	}
	line("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	line("Duration", r.Duration)
	line("State", strings.TrimSpace(stateLabel(r)))
	line("Root", r.Root)
	line("Output", r.Output)
	line("Extensions", r.SourceExt+" -> "+r.TargetExt)
	if r.DryRun {
		line("Dry run", "yes")
	}
	line("Counters", fmt.Sprintf("scanned %d, copied %d, renamed %d, skipped %d, failed %d",
		r.Scanned, r.Copied, r.Renamed, r.Skipped, r.Failed))
	if r.Error != "" {
		line("Error", color.New(color.FgRed).Sprint(r.Error))
	}

	if len(failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("Failures:"))
		for _, f := range failures {
			fmt.Fprintf(w, "  - [%s] %s: %s\n", f.Kind, f.Path, f.Message)
		}
	}
}

// stateLabel renders the final state padded to a fixed width, red for runs
// that stopped early and yellow for runs with failures.
func stateLabel(r *history.Run) string {
	text := fmt.Sprintf("%-9s", r.State)
	switch {
	case r.Error != "":
		return color.New(color.FgRed).Sprint(text)
	case r.Failed > 0:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgGreen).Sprint(text)
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

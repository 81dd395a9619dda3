package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/flatten/internal/display"
	"github.com/harrison/flatten/internal/fileutil"
	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/models"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [root]",
		Short: "List the files a run would copy, without copying anything",
		Long: `Scan root (default: the current directory) with the same rules as run and
print every matching file, relative to root. The output directory, excluded
directories and excluded globs are skipped exactly as a run would skip them.

Unreadable directories are reported as warnings.

Exit code: 0 if the scan completed, 1 if the root is missing or the
configuration is invalid`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}

	addConfigFlag(cmd)
	addScanFlags(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateScan(); err != nil {
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
	result, err := fileutil.ScanDirectory(fsys.NewOSFS(), root, scanOptions(cfg, output))
	if err != nil {
		if errors.Is(err, fileutil.ErrRootNotFound) || errors.Is(err, fileutil.ErrNotDirectory) {
			return flatten.NewPipelineError(flatten.KindConfiguration, models.StateScanning, root,
				fmt.Errorf("%w: %w", flatten.ErrRootNotFound, err))
		}
		return flatten.NewPipelineError(flatten.KindConfiguration, models.StateInit, "",
			fmt.Errorf("%w: %w", flatten.ErrInvalidConfig, err))
	}

	if len(result.Entries) == 0 {
		fmt.Fprintf(out, "No files ending in %s under %s\n", scanOptions(cfg, output).Extension, root)
	} else {
		progress := display.NewProgressIndicator(out, len(result.Entries), "Matching files")
		progress.Start(root)
		for _, entry := range result.Entries {
			rel, err := filepath.Rel(root, entry.Path)
			if err != nil {
				rel = entry.Path
			}
			progress.Step(rel)
		}
		progress.Complete()
	}

	if len(result.Errors) > 0 {
		files := make([]string, 0, len(result.Errors))
		for _, scanErr := range result.Errors {
			files = append(files, scanErr.Error())
		}
		display.Warning{
			Title: fmt.Sprintf("%d %s could not be read", len(result.Errors), pluralize(len(result.Errors), "path", "paths")),
			Files: files,
		}.Display(cmd.ErrOrStderr())
	}
	return nil
}

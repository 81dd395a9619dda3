package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for flatten
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Copy matching files from a tree into one flat directory",
		Long: `Flatten walks a directory tree, copies every file with a given extension
into a single output directory under a collision-free name, then rewrites
the extension of the copies.

Two files with the same name in different directories never overwrite each
other: the second becomes name(1).ext, the third name(2).ext, and so on.
The output directory is never scanned, so repeated runs are safe even when
it lives inside the tree.

Configuration is loaded from .flatten/config.yaml, then .env and FLATTEN_*
environment variables. CLI flags override everything else.`,
		Version: Version,
		// main prints the error; silence cobra's copy and the usage text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewRenameCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

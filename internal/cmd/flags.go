package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/flatten/internal/config"
	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fileutil"
	"github.com/harrison/flatten/internal/fsys"
)

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .flatten/config.yaml)")
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Source extension to match, with or without the dot (e.g. log)")
	cmd.Flags().StringP("output", "o", "", "Output directory (default: <root>/flattened)")
	cmd.Flags().Bool("case-insensitive", false, "Match extensions ignoring letter case")
	cmd.Flags().StringArray("exclude", nil, "Glob of root-relative paths to skip (repeatable)")
	cmd.Flags().StringArray("exclude-dir", nil, "Directory name to skip (repeatable)")
	cmd.Flags().Bool("include-hidden", false, "Descend into hidden directories")
	cmd.Flags().Int("max-depth", 0, "Maximum directory depth (0 = unlimited)")
}

func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().Bool("verbose", false, "Log every copy and rename (same as --log-level debug)")
}

// flagsFromCommand collects the flags the user actually set.
func flagsFromCommand(cmd *cobra.Command) config.Flags {
	fs := cmd.Flags()
	changed := func(name string) bool {
		return fs.Lookup(name) != nil && fs.Changed(name)
	}

	var f config.Flags
	str := func(name string) *string {
		if !changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !changed(name) {
			return nil
		}
		v, _ := fs.GetBool(name)
		return &v
	}

	f.From = str("from")
	f.To = str("to")
	f.Output = str("output")
	f.CaseInsensitive = boolean("case-insensitive")
	f.FailFast = boolean("fail-fast")
	f.RenameScope = str("rename-scope")
	f.DryRun = boolean("dry-run")
	f.LogLevel = str("log-level")
	f.LogDir = str("log-dir")
	f.NoHistory = boolean("no-history")

	if changed("exclude") {
		f.Exclude, _ = fs.GetStringArray("exclude")
	}
	if changed("exclude-dir") {
		f.ExcludeDirs, _ = fs.GetStringArray("exclude-dir")
	}
	if include := boolean("include-hidden"); include != nil {
		skip := !*include
		f.SkipHidden = &skip
	}
	if changed("max-depth") {
		v, _ := fs.GetInt("max-depth")
		f.MaxDepth = &v
	}
	if changed("lock-wait") {
		v, _ := fs.GetDuration("lock-wait")
		f.LockWait = &v
	}
	if verbose := boolean("verbose"); verbose != nil && *verbose && f.LogLevel == nil {
		level := "debug"
		f.LogLevel = &level
	}
	return f
}

// loadConfig builds the effective configuration: file, environment, then
// flags. Relative log and history paths are anchored at the project dir.
// The caller validates for its own needs.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	projectDir, err := config.ProjectDir(cwd)
	if err != nil {
		return nil, err
	}

	configPath := ""
	if f := cmd.Flags().Lookup("config"); f != nil {
		configPath = f.Value.String()
	}
	cfg, err := config.Load(projectDir, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := flagsFromCommand(cmd)
	if flags.LogDir != nil {
		abs, err := filepath.Abs(*flags.LogDir)
		if err != nil {
			return nil, fmt.Errorf("resolve log directory: %w", err)
		}
		flags.LogDir = &abs
	}
	cfg.MergeWithFlags(flags)
	cfg.ResolvePaths(projectDir)
	return cfg, nil
}

// resolveRoot returns the absolute scan root, the first argument or the
// working directory, with symlinks resolved. A root that cannot be resolved
// is returned as given so the scan reports it.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root directory: %w", err)
	}
	if resolved, err := fsys.Resolve(fsys.NewOSFS(), abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// resolveOutput returns the output directory for root with symlinks resolved
// in its existing part, the path the output lock is keyed on.
func resolveOutput(cfg *config.Config, root string) (string, error) {
	output, err := cfg.ResolveOutput(root)
	if err != nil {
		return "", err
	}
	resolved, err := fsys.Resolve(fsys.NewOSFS(), output)
	if err != nil {
		return "", fmt.Errorf("resolve output directory %s: %w", output, err)
	}
	return resolved, nil
}

// scanOptions maps the configuration onto scanner options.
func scanOptions(cfg *config.Config, output string) fileutil.ScanOptions {
	return fileutil.ScanOptions{
		Extension:    extension.Normalize(cfg.From),
		FoldCase:     cfg.CaseInsensitive,
		ExcludePaths: []string{output},
		ExcludeDirs:  cfg.ExcludeDirs,
		Exclude:      cfg.Exclude,
		SkipHidden:   cfg.SkipHidden,
		MaxDepth:     cfg.MaxDepth,
	}
}

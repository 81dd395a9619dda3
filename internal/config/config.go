package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/logger"
)

// DefaultOutputName is the output directory created under the root when no
// output directory is configured.
const DefaultOutputName = "flattened"

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`

	// KeepDays is the number of days to keep run history (0 = forever)
	KeepDays int `yaml:"keep_days"`
}

// Config represents flatten configuration options
type Config struct {
	// From is the source extension, with or without the leading dot
	From string `yaml:"from"`

	// To is the target extension, with or without the leading dot
	To string `yaml:"to"`

	// Output is the output directory; empty means <root>/flattened
	Output string `yaml:"output"`

	// CaseInsensitive matches and renames extensions ignoring letter case
	CaseInsensitive bool `yaml:"case_insensitive"`

	// FailFast aborts the run on the first per-entry failure
	FailFast bool `yaml:"fail_fast"`

	// RenameScope is "run" (rename this run's copies) or "all"
	RenameScope string `yaml:"rename_scope"`

	// Exclude holds glob patterns matched against root-relative paths
	Exclude []string `yaml:"exclude"`

	// ExcludeDirs holds directory names that are never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// SkipHidden skips directories whose name starts with a dot
	SkipHidden bool `yaml:"skip_hidden"`

	// MaxDepth limits recursion (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`

	// DryRun reports what would happen without touching the filesystem
	DryRun bool `yaml:"dry_run"`

	// LockWait is how long to wait for the output directory lock (0 = fail immediately).
	// The file key lock_wait holds a duration string such as "30s".
	LockWait time.Duration `yaml:"-"`

	// LockDir holds the per-output lock files, outside any output directory
	LockDir string `yaml:"lock_dir"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written (empty = no file log)
	LogDir string `yaml:"log_dir"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		RenameScope: string(flatten.ScopeRun),
		ExcludeDirs: []string{".git", "node_modules", "vendor"},
		SkipHidden:  true,
		LogLevel:    "info",
		LogDir:      filepath.Join(".flatten", "logs"),
		LockDir:     filepath.Join(".flatten", "locks"),
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   filepath.Join(".flatten", "history.db"),
			KeepDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// lock_wait is a duration string in YAML
	type yamlConfig struct {
		Config   `yaml:",inline"`
		LockWait string `yaml:"lock_wait"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Only keys present in the file override defaults, so an explicit
	// "skip_hidden: false" or "enabled: false" is honored.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	has := func(key string) bool {
		_, ok := rawMap[key]
		return ok
	}

	file := yamlCfg.Config
	if has("from") {
		cfg.From = file.From
	}
	if has("to") {
		cfg.To = file.To
	}
	if has("output") {
		cfg.Output = file.Output
	}
	if has("case_insensitive") {
		cfg.CaseInsensitive = file.CaseInsensitive
	}
	if has("fail_fast") {
		cfg.FailFast = file.FailFast
	}
	if has("rename_scope") {
		cfg.RenameScope = file.RenameScope
	}
	if has("exclude") {
		cfg.Exclude = file.Exclude
	}
	if has("exclude_dirs") {
		cfg.ExcludeDirs = file.ExcludeDirs
	}
	if has("skip_hidden") {
		cfg.SkipHidden = file.SkipHidden
	}
	if has("max_depth") {
		cfg.MaxDepth = file.MaxDepth
	}
	if has("dry_run") {
		cfg.DryRun = file.DryRun
	}
	if yamlCfg.LockWait != "" {
		wait, err := time.ParseDuration(yamlCfg.LockWait)
		if err != nil {
			return nil, fmt.Errorf("invalid lock_wait format %q: %w", yamlCfg.LockWait, err)
		}
		cfg.LockWait = wait
	}
	if has("lock_dir") {
		cfg.LockDir = file.LockDir
	}
	if has("log_level") {
		cfg.LogLevel = file.LogLevel
	}
	if has("log_dir") {
		cfg.LogDir = file.LogDir
	}

	if historySection, ok := rawMap["history"].(map[string]interface{}); ok {
		if _, exists := historySection["enabled"]; exists {
			cfg.History.Enabled = file.History.Enabled
		}
		if _, exists := historySection["db_path"]; exists {
			cfg.History.DBPath = file.History.DBPath
		}
		if _, exists := historySection["keep_days"]; exists {
			cfg.History.KeepDays = file.History.KeepDays
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .flatten/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".flatten", "config.yaml"))
}

// Flags carries the CLI flag values a command actually set. Nil fields
// leave the configuration untouched.
type Flags struct {
	From            *string
	To              *string
	Output          *string
	CaseInsensitive *bool
	FailFast        *bool
	RenameScope     *string
	Exclude         []string
	ExcludeDirs     []string
	SkipHidden      *bool
	MaxDepth        *int
	DryRun          *bool
	LockWait        *time.Duration
	LogLevel        *string
	LogDir          *string
	NoHistory       *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values; exclusion lists are
// appended.
func (c *Config) MergeWithFlags(f Flags) {
	if f.From != nil {
		c.From = *f.From
	}
	if f.To != nil {
		c.To = *f.To
	}
	if f.Output != nil {
		c.Output = *f.Output
	}
	if f.CaseInsensitive != nil {
		c.CaseInsensitive = *f.CaseInsensitive
	}
	if f.FailFast != nil {
		c.FailFast = *f.FailFast
	}
	if f.RenameScope != nil {
		c.RenameScope = *f.RenameScope
	}
	c.Exclude = append(c.Exclude, f.Exclude...)
	c.ExcludeDirs = append(c.ExcludeDirs, f.ExcludeDirs...)
	if f.SkipHidden != nil {
		c.SkipHidden = *f.SkipHidden
	}
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if f.DryRun != nil {
		c.DryRun = *f.DryRun
	}
	if f.LockWait != nil {
		c.LockWait = *f.LockWait
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values for a full run.
// Errors wrap flatten.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.ValidateScan(); err != nil {
		return err
	}
	if c.To == "" {
		return fmt.Errorf("%w: to extension is required", flatten.ErrInvalidConfig)
	}
	if c.To == "." {
		return fmt.Errorf("%w: extension cannot be a bare separator", flatten.ErrInvalidConfig)
	}
	switch flatten.RenameScope(c.RenameScope) {
	case flatten.ScopeRun, flatten.ScopeAll:
	default:
		return fmt.Errorf("%w: rename_scope must be %q or %q, got %q", flatten.ErrInvalidConfig, flatten.ScopeRun, flatten.ScopeAll, c.RenameScope)
	}
	return nil
}

// ValidateScan validates only what a scan needs: the source extension, the
// log level and the walk limits.
func (c *Config) ValidateScan() error {
	if c.From == "" {
		return fmt.Errorf("%w: from extension is required", flatten.ErrInvalidConfig)
	}
	if c.From == "." {
		return fmt.Errorf("%w: extension cannot be a bare separator", flatten.ErrInvalidConfig)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: invalid log_level %q, must be one of: trace, debug, info, warn, error", flatten.ErrInvalidConfig, c.LogLevel)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", flatten.ErrInvalidConfig, c.MaxDepth)
	}
	if c.LockWait < 0 {
		return fmt.Errorf("%w: lock_wait must be >= 0, got %v", flatten.ErrInvalidConfig, c.LockWait)
	}
	if c.LockDir == "" {
		return fmt.Errorf("%w: lock_dir cannot be empty", flatten.ErrInvalidConfig)
	}
	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("%w: history.db_path cannot be empty when history is enabled", flatten.ErrInvalidConfig)
		}
		if c.History.KeepDays < 0 {
			return fmt.Errorf("%w: history.keep_days must be >= 0, got %d", flatten.ErrInvalidConfig, c.History.KeepDays)
		}
	}
	return nil
}

// ResolveOutput returns the absolute output directory for root. An empty
// Output means <root>/flattened; a relative one is resolved against the
// working directory.
func (c *Config) ResolveOutput(root string) (string, error) {
	if c.Output == "" {
		return filepath.Join(root, DefaultOutputName), nil
	}
	abs, err := filepath.Abs(c.Output)
	if err != nil {
		return "", fmt.Errorf("resolve output directory %q: %w", c.Output, err)
	}
	return abs, nil
}

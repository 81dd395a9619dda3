package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project directory holding config, logs and history.
const HomeDirName = ".flatten"

// ProjectDir returns the directory whose .flatten/ holds the project state.
// Priority order:
//  1. FLATTEN_HOME environment variable (the .flatten directory itself)
//  2. nearest ancestor of start containing a .flatten directory
//  3. start (fallback)
func ProjectDir(start string) (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", EnvHome, err)
		}
		return filepath.Dir(abs), nil
	}

	start, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}

	current := start
	for {
		if info, err := os.Stat(filepath.Join(current, HomeDirName)); err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return start, nil
}

// ResolvePaths makes the relative log, lock and history paths absolute against
// base, normally the result of ProjectDir.
func (c *Config) ResolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.LogDir = abs(c.LogDir)
	c.LockDir = abs(c.LockDir)
	c.History.DBPath = abs(c.History.DBPath)
}

// Load builds the effective configuration for a project directory:
// defaults, then <dir>/.flatten/config.yaml (or path when non-empty), then
// .env and FLATTEN_* variables. Flags are merged by the caller.
func Load(dir, path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("config file %s: %w", path, statErr)
		}
		cfg, err = LoadConfig(path)
	} else {
		cfg, err = LoadConfigFromDir(dir)
	}
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the configuration file.
const (
	EnvFrom            = "FLATTEN_FROM"
	EnvTo              = "FLATTEN_TO"
	EnvOutput          = "FLATTEN_OUTPUT"
	EnvCaseInsensitive = "FLATTEN_CASE_INSENSITIVE"
	EnvFailFast        = "FLATTEN_FAIL_FAST"
	EnvRenameScope     = "FLATTEN_RENAME_SCOPE"
	EnvLogLevel        = "FLATTEN_LOG_LEVEL"
	EnvLogDir          = "FLATTEN_LOG_DIR"
	EnvHistoryDB       = "FLATTEN_HISTORY_DB"
	EnvHome            = "FLATTEN_HOME"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment. Variables that are already set keep
// their value and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration values with FLATTEN_* environment
// variables. Empty variables are ignored.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = parsed
		return nil
	}

	str(EnvFrom, &c.From)
	str(EnvTo, &c.To)
	str(EnvOutput, &c.Output)
	str(EnvRenameScope, &c.RenameScope)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogDir, &c.LogDir)
	str(EnvHistoryDB, &c.History.DBPath)

	if err := boolean(EnvCaseInsensitive, &c.CaseInsensitive); err != nil {
		return err
	}
	return boolean(EnvFailFast, &c.FailFast)
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrison/flatten/internal/config"
)

// setupProject isolates config, logs and history in a temp project dir and
// clears FLATTEN_* overrides from the environment.
func setupProject(t *testing.T) string {
	t.Helper()
	project, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Setenv(config.EnvHome, filepath.Join(project, config.HomeDirName))
	for _, key := range []string{
		config.EnvFrom, config.EnvTo, config.EnvOutput, config.EnvCaseInsensitive,
		config.EnvFailFast, config.EnvRenameScope, config.EnvLogLevel, config.EnvLogDir,
		config.EnvHistoryDB,
	} {
		t.Setenv(key, "")
	}
	return project
}

// writeTree creates each file under root with content "content of <rel>".
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content of "+rel), 0o644))
	}
}

// listDir returns the sorted names of every entry in dir, dot files included.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// executeCommand runs the root command with args and captures both streams.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

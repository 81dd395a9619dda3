package flatten

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/models"
)

var errInjected = errors.New("injected failure")

// faultyFS wraps an in-memory filesystem and fails selected operations.
type faultyFS struct {
	*fsys.FS
	failOpen    map[string]bool // source paths whose Open fails
	failCreate  map[string]bool // destination paths whose OpenFile fails
	failRename  map[string]bool // rename sources that fail
	failReadDir map[string]bool
	failWrite   map[string]bool // destination paths whose writes fail
}

func newFaultyFS() *faultyFS {
	return &faultyFS{
		FS:          fsys.NewInMemoryFS(),
		failOpen:    map[string]bool{},
		failCreate:  map[string]bool{},
		failRename:  map[string]bool{},
		failReadDir: map[string]bool{},
		failWrite:   map[string]bool{},
	}
}

func (f *faultyFS) Open(name string) (fsys.File, error) {
	if f.failOpen[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}
	return f.FS.Open(name)
}

func (f *faultyFS) OpenFile(name string, flag int, perm os.FileMode) (fsys.File, error) {
	if f.failCreate[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if f.failWrite[name] {
		return &failingWriter{File: file}, nil
	}
	return file, nil
}

func (f *faultyFS) Rename(from, to string) error {
	if f.failRename[from] {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: errInjected}
	}
	return f.FS.Rename(from, to)
}

func (f *faultyFS) ReadDir(dir string) ([]os.FileInfo, error) {
	if f.failReadDir[dir] {
		return nil, &os.PathError{Op: "readdir", Path: dir, Err: errInjected}
	}
	return f.FS.ReadDir(dir)
}

type failingWriter struct {
	fsys.File
}

func (w *failingWriter) Write([]byte) (int, error) {
	return 0, errInjected
}

// writeTree creates each path with its own path as content.
func writeTree(t *testing.T, fs fsys.Filesystem, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, fs.WriteFile(p, []byte("content of "+p), 0o644))
	}
}

// listDir returns the sorted names of the entries in dir.
func listDir(t *testing.T, fs fsys.Filesystem, dir string) []string {
	t.Helper()
	infos, err := fs.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

func readString(t *testing.T, fs fsys.Filesystem, path string) string {
	t.Helper()
	b, err := fs.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// recordingLogger captures pipeline events for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	phases   []models.State
	copies   []string
	renames  []string
	failures []models.EntryFailure
	summary  *models.RunResult
}

func (l *recordingLogger) LogPhase(state models.State, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phases = append(l.phases, state)
}

func (l *recordingLogger) LogCopy(src, dest string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.copies = append(l.copies, src+" -> "+filepath.Base(dest))
}

func (l *recordingLogger) LogRename(from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.renames = append(l.renames, from+" -> "+to)
}

func (l *recordingLogger) LogFailure(f models.EntryFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, f)
}

func (l *recordingLogger) LogSummary(r *models.RunResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = r
}

// stubLocker is a Locker with a fixed outcome.
type stubLocker struct {
	acquire  bool
	err      error
	locked   bool
	unlocked bool
}

func (s *stubLocker) TryLock() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.locked = s.acquire
	return s.acquire, nil
}

func (s *stubLocker) Unlock() error {
	s.unlocked = true
	return nil
}

func hasSuffixAny(name string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

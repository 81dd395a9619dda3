package fsys

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMkdirAllStat(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Join(root, "a/b/c"), 0o755))

	info, err := fs.Stat(filepath.Join(root, "a/b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "expected directory, got file: %v", info.Name())
}

func testWriteReadRemove(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "file.txt")

	require.NoError(t, fs.WriteFile(p, []byte("hello"), 0o644))

	b, err := fs.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	exists, err := fs.Exists(p)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, fs.Remove(p))

	exists, err = fs.Exists(p)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testExclusiveCreate(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "claimed.txt")
	require.NoError(t, fs.WriteFile(p, []byte("first"), 0o644))

	_, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrExist), "want ErrExist, got %v", err)

	b, err := fs.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b), "exclusive create must not truncate")
}

func testRename(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	from := filepath.Join(root, "x.log")
	to := filepath.Join(root, "x.txt")
	require.NoError(t, fs.WriteFile(from, []byte("data"), 0o644))

	require.NoError(t, fs.Rename(from, to))

	exists, err := fs.Exists(from)
	require.NoError(t, err)
	assert.False(t, exists)

	b, err := fs.ReadFile(to)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func testOpenCopy(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	p := filepath.Join(root, "open.txt")
	require.NoError(t, fs.WriteFile(p, []byte("abc"), 0o644))

	f, err := fs.Open(p)
	require.NoError(t, err)
	defer f.Close()

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func testWalkLexical(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	base := filepath.Join(root, "walk")
	for _, p := range []string{"b/2.txt", "a/1.txt", "c.txt"} {
		full := filepath.Join(base, p)
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, fs.WriteFile(full, []byte(p), 0o644))
	}

	var files []string
	err := fs.Walk(base, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			rel, _ := filepath.Rel(base, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.txt", "b/2.txt", "c.txt"}, files)
}

func testWalkSentinel(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	stop := errors.New("stop")
	base := filepath.Join(root, "sentinel")
	require.NoError(t, fs.MkdirAll(base, 0o755))
	require.NoError(t, fs.WriteFile(filepath.Join(base, "f"), nil, 0o644))

	err := fs.Walk(base, func(path string, info os.FileInfo, err error) error {
		if !info.IsDir() {
			return stop
		}
		return nil
	})
	assert.True(t, errors.Is(err, stop))
}

// runSuite runs the same behavioral checks against any Filesystem.
func runSuite(t *testing.T, fs Filesystem, root string) {
	t.Helper()
	testMkdirAllStat(t, fs, root)
	testWriteReadRemove(t, fs, root)
	testExclusiveCreate(t, fs, root)
	testRename(t, fs, root)
	testOpenCopy(t, fs, root)
	testWalkLexical(t, fs, root)
	testWalkSentinel(t, fs, root)
}

func TestInMemoryFS_Suite(t *testing.T) {
	runSuite(t, NewInMemoryFS(), "/work")
}

func TestOSFS_Suite(t *testing.T) {
	runSuite(t, NewOSFS(), t.TempDir())
}

func TestExists_MissingParent(t *testing.T) {
	fs := NewInMemoryFS()
	exists, err := fs.Exists("/nope/also-nope/file")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testEvalSymlinks(t *testing.T, fs *FS, root string) {
	t.Helper()
	real := filepath.Join(root, "real")
	require.NoError(t, fs.MkdirAll(filepath.Join(real, "data", "a"), 0o755))
	require.NoError(t, fs.fs.Symlink(real, filepath.Join(root, "abs-link")))
	require.NoError(t, fs.fs.Symlink("real/data", filepath.Join(root, "rel-link")))
	require.NoError(t, fs.fs.Symlink("loop-b", filepath.Join(root, "loop-a")))
	require.NoError(t, fs.fs.Symlink("loop-a", filepath.Join(root, "loop-b")))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain directory", path: filepath.Join(real, "data"), want: filepath.Join(real, "data")},
		{name: "absolute link ancestor", path: filepath.Join(root, "abs-link", "data", "a"), want: filepath.Join(real, "data", "a")},
		{name: "relative link", path: filepath.Join(root, "rel-link"), want: filepath.Join(real, "data")},
		{name: "dot-dot after link", path: filepath.Join(root, "rel-link") + "/../data/a", want: filepath.Join(real, "data", "a")},
		{name: "missing path", path: filepath.Join(root, "abs-link", "nope"), wantErr: true},
		{name: "link cycle", path: filepath.Join(root, "loop-a"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.EvalSymlinks(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("resolve keeps the missing tail", func(t *testing.T) {
		got, err := Resolve(fs, filepath.Join(root, "abs-link", "data", "flattened", "deeper"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(real, "data", "flattened", "deeper"), got)
	})

	t.Run("missing path error matches ErrNotExist", func(t *testing.T) {
		_, err := fs.EvalSymlinks(filepath.Join(root, "nope"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestInMemoryFS_EvalSymlinks(t *testing.T) {
	testEvalSymlinks(t, NewInMemoryFS(), "/work")
}

func TestOSFS_EvalSymlinks(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	testEvalSymlinks(t, NewOSFS(), root)
}

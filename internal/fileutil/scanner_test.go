package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fsys"
)

// buildTree writes every path (relative to root) with its own path as content.
func buildTree(t *testing.T, fs fsys.Filesystem, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, fs.WriteFile(full, []byte(p), 0o644))
	}
}

func relPaths(t *testing.T, root string, entries []FileEntry) []string {
	t.Helper()
	out := make([]string, len(entries))
	for i, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestScanDirectory(t *testing.T) {
	// root/
	//   main.go
	//   README.md
	//   Setup.GO
	//   pkg/util.go
	//   pkg/deep/inner.go
	//   pkg/deep/notes.txt
	//   .git/config.go
	//   node_modules/lib.go
	//   flattened/main.go          (output of an earlier run)
	//   flattened2/keep.go         (sibling with a shared prefix)
	//   vendor/dep/dep.go
	root := "/repo"
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, root,
		"main.go",
		"README.md",
		"Setup.GO",
		"pkg/util.go",
		"pkg/deep/inner.go",
		"pkg/deep/notes.txt",
		".git/config.go",
		"node_modules/lib.go",
		"flattened/main.go",
		"flattened2/keep.go",
		"vendor/dep/dep.go",
	)

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "extension only",
			opts: ScanOptions{Extension: extension.Normalize("go")},
			want: []string{
				".git/config.go", "flattened/main.go", "flattened2/keep.go", "main.go",
				"node_modules/lib.go", "pkg/deep/inner.go", "pkg/util.go", "vendor/dep/dep.go",
			},
		},
		{
			name: "output directory excluded",
			opts: ScanOptions{
				Extension:    extension.Normalize(".go"),
				ExcludePaths: []string{"/repo/flattened"},
			},
			want: []string{
				".git/config.go", "flattened2/keep.go", "main.go",
				"node_modules/lib.go", "pkg/deep/inner.go", "pkg/util.go", "vendor/dep/dep.go",
			},
		},
		{
			name: "hidden and named directories",
			opts: ScanOptions{
				Extension:   extension.Normalize("go"),
				SkipHidden:  true,
				ExcludeDirs: []string{"node_modules", "vendor"},
			},
			want: []string{"flattened/main.go", "flattened2/keep.go", "main.go", "pkg/deep/inner.go", "pkg/util.go"},
		},
		{
			name: "case-insensitive extension",
			opts: ScanOptions{
				Extension:   extension.Normalize("GO"),
				FoldCase:    true,
				SkipHidden:  true,
				ExcludeDirs: []string{"node_modules", "vendor", "flattened", "flattened2"},
			},
			want: []string{"Setup.GO", "main.go", "pkg/deep/inner.go", "pkg/util.go"},
		},
		{
			name: "case-sensitive extension",
			opts: ScanOptions{
				Extension:   extension.Normalize("GO"),
				SkipHidden:  true,
				ExcludeDirs: []string{"node_modules", "vendor", "flattened", "flattened2"},
			},
			want: []string{"Setup.GO"},
		},
		{
			name: "glob exclusions",
			opts: ScanOptions{
				Extension:  extension.Normalize("go"),
				SkipHidden: true,
				Exclude:    []string{"flattened*", "node_modules", "vendor/**", "pkg/deep"},
			},
			want: []string{"main.go", "pkg/util.go"},
		},
		{
			name: "max depth 1 - root only",
			opts: ScanOptions{Extension: extension.Normalize("go"), MaxDepth: 1},
			want: []string{"main.go"},
		},
		{
			name: "max depth 2 - one level deep",
			opts: ScanOptions{Extension: extension.Normalize("go"), MaxDepth: 2, SkipHidden: true},
			want: []string{"flattened/main.go", "flattened2/keep.go", "main.go", "node_modules/lib.go", "pkg/util.go"},
		},
		{
			name: "no matches",
			opts: ScanOptions{Extension: extension.Normalize("rs")},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(fs, root, tt.opts)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.want, relPaths(t, root, result.Entries))
		})
	}
}

func TestScanner_EntryFields(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, "/src", "a/x.LOG", "b/v1.2.log")

	result, err := ScanDirectory(fs, "/src", ScanOptions{Extension: extension.Normalize("log"), FoldCase: true})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	assert.Equal(t, FileEntry{Path: "/src/a/x.LOG", Base: "x", Ext: ".LOG"}, result.Entries[0])
	assert.Equal(t, FileEntry{Path: "/src/b/v1.2.log", Base: "v1.2", Ext: ".log"}, result.Entries[1])
	assert.Equal(t, "x.LOG", result.Entries[0].Name())
}

func TestScanner_SkipsBareExtensionNames(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, "/src", ".log", "a.log")

	result, err := ScanDirectory(fs, "/src", ScanOptions{Extension: extension.Normalize("log")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.log"}, relPaths(t, "/src", result.Entries))
}

func TestScanner_IsLazy(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, "/src", "a.txt", "b.txt", "c.txt", "d.txt")

	scanner, err := NewScanner(fs, "/src", ScanOptions{Extension: extension.Normalize("txt")})
	require.NoError(t, err)

	var seen []string
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		seen = append(seen, entry.Name())
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, seen)
}

func TestScanner_Deterministic(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, "/src", "zebra/x.md", "apple/x.md", "mango.md", "banana/deep/x.md")

	first, err := ScanDirectory(fs, "/src", ScanOptions{Extension: extension.Normalize("md")})
	require.NoError(t, err)
	second, err := ScanDirectory(fs, "/src", ScanOptions{Extension: extension.Normalize("md")})
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, []string{"apple/x.md", "banana/deep/x.md", "mango.md", "zebra/x.md"}, relPaths(t, "/src", first.Entries))
}

func TestNewScanner_Errors(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	buildTree(t, fs, "/src", "file.txt")

	tests := []struct {
		name    string
		root    string
		opts    ScanOptions
		wantIs  error
		wantMsg string
	}{
		{name: "missing root", root: "/nonexistent", wantIs: ErrRootNotFound},
		{name: "root is a file", root: "/src/file.txt", wantIs: ErrNotDirectory},
		{name: "invalid glob", root: "/src", opts: ScanOptions{Exclude: []string{"[unclosed"}}, wantMsg: "invalid exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner, err := NewScanner(fs, tt.root, tt.opts)
			require.Error(t, err)
			assert.Nil(t, scanner)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs), "got %v", err)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"same path", "/a/out", "/a/out", true},
		{"child", "/a/out/x.txt", "/a/out", true},
		{"deep child", "/a/out/b/c", "/a/out", true},
		{"shared prefix sibling", "/a/out2/x.txt", "/a/out", false},
		{"parent", "/a", "/a/out", false},
		{"trailing slash", "/a/out/x", "/a/out/", true},
		{"filesystem root", "/anything", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithin(tt.path, tt.dir))
		})
	}
}

func TestScanner_OSFilesystem(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a/x.log", "b/x.log", "out/x.log"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o644))
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "a", "x.log"), filepath.Join(root, "link.log")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.log"), filepath.Join(root, "broken.log")))

	result, err := ScanDirectory(fsys.NewOSFS(), root, ScanOptions{
		Extension:    extension.Normalize("log"),
		ExcludePaths: []string{filepath.Join(root, "out")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/x.log", "b/x.log", "link.log"}, relPaths(t, root, result.Entries))
	require.Len(t, result.Errors, 1, "broken symlink is reported, not fatal")
	assert.Contains(t, result.Errors[0].Error(), "broken.log")
}

func TestScanner_SymlinkedPaths(t *testing.T) {
	// base/
	//   real/data/a/x.log
	//   real/data/b/x.log
	//   real/data/flattened/x.log   (output of an earlier run)
	//   link -> real
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	real := filepath.Join(base, "real")
	for _, p := range []string{"data/a/x.log", "data/b/x.log", "data/flattened/x.log"} {
		full := filepath.Join(real, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o644))
	}
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(real, link))

	tests := []struct {
		name   string
		root   string
		output string
	}{
		{name: "root through link, output by real path", root: filepath.Join(link, "data"), output: filepath.Join(real, "data", "flattened")},
		{name: "root by real path, output through link", root: filepath.Join(real, "data"), output: filepath.Join(link, "data", "flattened")},
		{name: "root is the link itself", root: link, output: filepath.Join(real, "data", "flattened")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner, err := NewScanner(fsys.NewOSFS(), tt.root, ScanOptions{
				Extension:    extension.Normalize("log"),
				ExcludePaths: []string{tt.output},
			})
			require.NoError(t, err)

			var got []FileEntry
			for entry, err := range scanner.Entries() {
				require.NoError(t, err)
				got = append(got, entry)
			}

			require.Len(t, got, 2, "the output directory must not be scanned")
			for _, entry := range got {
				assert.True(t, IsWithin(entry.Path, real), "%s should be reported under the resolved root", entry.Path)
				assert.False(t, IsWithin(entry.Path, filepath.Join(real, "data", "flattened")))
			}
		})
	}
}

// Package fsys adapts go-billy filesystems to the small surface flatten needs.
//
// Production code runs against the host filesystem (NewOSFS); tests run the
// same code against an in-memory filesystem (NewInMemoryFS). Every error is
// wrapped with the operation and path so callers can log it verbatim and
// still match the cause with errors.Is.
package fsys

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// File is an open file handle.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Name() string
}

// Filesystem is the set of operations the scanner, copier and renamer use.
type Filesystem interface {
	Open(name string) (File, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Exists(path string) (bool, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(dirname string) ([]os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Remove(name string) error
	Rename(from, to string) error
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	EvalSymlinks(path string) (string, error)
	Walk(root string, walkFn filepath.WalkFunc) error
	Join(elem ...string) string
}

// FS implements Filesystem on top of a go-billy filesystem.
type FS struct {
	fs billy.Filesystem
}

var _ Filesystem = (*FS)(nil)

// NewOSFS returns a filesystem rooted at "/" so absolute host paths resolve
// unchanged.
func NewOSFS() *FS {
	return &FS{fs: osfs.New(string(filepath.Separator))}
}

// NewInMemoryFS returns an empty in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{fs: memfs.New()}
}

// Open implements Filesystem.Open.
//
//nolint:ireturn // callers only need the File interface.
func (b *FS) Open(name string) (File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: open %q: %w", name, err)
	}
	return f, nil
}

// OpenFile implements Filesystem.OpenFile.
//
//nolint:ireturn // callers only need the File interface.
func (b *FS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := b.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("fsys: openfile %q: %w", name, err)
	}
	return f, nil
}

// Exists reports whether path exists. A missing path is not an error.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("fsys: stat %q: %w", path, err)
	}
}

// MkdirAll implements Filesystem.MkdirAll.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("fsys: mkdirall %q: %w", path, err)
	}
	return nil
}

// ReadDir implements Filesystem.ReadDir.
func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("fsys: readdir %q: %w", dirname, err)
	}
	return list, nil
}

// ReadFile implements Filesystem.ReadFile.
func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("fsys: readfile %q: %w", path, err)
	}
	return data, nil
}

// WriteFile implements Filesystem.WriteFile.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.fs, filename, data, perm); err != nil {
		return fmt.Errorf("fsys: writefile %q: %w", filename, err)
	}
	return nil
}

// Remove implements Filesystem.Remove.
func (b *FS) Remove(name string) error {
	if err := b.fs.Remove(name); err != nil {
		return fmt.Errorf("fsys: remove %q: %w", name, err)
	}
	return nil
}

// Rename implements Filesystem.Rename.
func (b *FS) Rename(from, to string) error {
	if err := b.fs.Rename(from, to); err != nil {
		return fmt.Errorf("fsys: rename %q -> %q: %w", from, to, err)
	}
	return nil
}

// Stat implements Filesystem.Stat.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: stat %q: %w", name, err)
	}
	return info, nil
}

// Lstat implements Filesystem.Lstat.
func (b *FS) Lstat(name string) (os.FileInfo, error) {
	info, err := b.fs.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: lstat %q: %w", name, err)
	}
	return info, nil
}

// Walk walks the tree rooted at root in lexical order. Errors returned by
// walkFn are passed through unwrapped so sentinel values survive.
func (b *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	return util.Walk(b.fs, root, walkFn)
}

// Join implements Filesystem.Join.
func (b *FS) Join(elem ...string) string {
	return b.fs.Join(elem...)
}

// maxLinkHops bounds symlink resolution so a link cycle fails instead of
// looping.
const maxLinkHops = 255

// EvalSymlinks returns path with every symbolic link in it resolved, in the
// manner of filepath.EvalSymlinks but through the billy filesystem so the
// in-memory filesystem resolves its links too. path must exist.
func (b *FS) EvalSymlinks(path string) (string, error) {
	resolved, err := b.evalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("fsys: evalsymlinks %q: %w", path, err)
	}
	return resolved, nil
}

func (b *FS) evalSymlinks(path string) (string, error) {
	sep := string(filepath.Separator)

	resolved := "."
	if filepath.IsAbs(path) {
		resolved = sep
	}
	pending := strings.Split(path, sep)
	hops := 0

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]

		switch name {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		info, err := b.fs.Lstat(next)
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		hops++
		if hops > maxLinkHops {
			return "", fmt.Errorf("too many links resolving %s", next)
		}
		target, err := b.fs.Readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			resolved = sep
		}
		pending = append(strings.Split(filepath.FromSlash(target), sep), pending...)
	}
	return resolved, nil
}

// Resolve returns the absolute path with symlinks resolved in its longest
// existing prefix. The missing tail, such as an output directory that is
// yet to be created, is joined back unchanged.
func Resolve(fs Filesystem, path string) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("fsys: abs %q: %w", path, err)
	}

	var missing []string
	for {
		resolved, err := fs.EvalSymlinks(path)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		missing = append(missing, filepath.Base(path))
		path = parent
	}
}

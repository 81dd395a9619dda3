package fileutil

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fsys"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("root directory not found")
	// ErrNotDirectory is returned when the scan root is a file.
	ErrNotDirectory = errors.New("path is not a directory")

	errStopWalk = errors.New("stop walk")
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Extension is the suffix a file name must end with to be yielded
	Extension extension.Spec
	// FoldCase makes extension matching case-insensitive
	FoldCase bool
	// ExcludePaths are absolute paths whose whole subtree is never visited
	ExcludePaths []string
	// ExcludeDirs is a list of directory names to skip (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// Exclude is a list of glob patterns matched against root-relative slash paths
	Exclude []string
	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool
	// MaxDepth limits recursion depth (0 = unlimited, 1 = root dir only)
	MaxDepth int
}

// FileEntry is a discovered file. Ext holds the suffix exactly as it appears
// on disk, which differs from the configured extension only in letter case.
type FileEntry struct {
	Path string
	Base string
	Ext  string
}

// Name returns the file's base name including its extension.
func (e FileEntry) Name() string {
	return e.Base + e.Ext
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Entries holds every matched file in walk order
	Entries []FileEntry
	// Errors contains any non-fatal errors encountered during scanning
	Errors []error
}

// Scanner walks a root directory and yields matching files lazily.
type Scanner struct {
	fs          fsys.Filesystem
	root        string
	opts        ScanOptions
	excludeDirs map[string]bool
	globs       []glob.Glob
	excludes    []string
}

// ValidateRoot checks that root exists and is a directory.
func ValidateRoot(fs fsys.Filesystem, root string) error {
	info, err := fs.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return nil
}

// NewScanner validates root and compiles the exclusion globs. Symlinks in
// root and in the excluded paths are resolved, so an output directory is
// recognised however either path reaches it, and a symlinked root is walked
// as the directory it points to.
func NewScanner(fs fsys.Filesystem, root string, opts ScanOptions) (*Scanner, error) {
	root = filepath.Clean(root)
	if err := ValidateRoot(fs, root); err != nil {
		return nil, err
	}
	root, err := fs.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	globs := make([]glob.Glob, 0, len(opts.Exclude))
	for _, p := range opts.Exclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	excludeDirs := make(map[string]bool, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excludeDirs[dir] = true
	}

	excludes := make([]string, 0, len(opts.ExcludePaths))
	for _, p := range opts.ExcludePaths {
		if p == "" {
			continue
		}
		resolved, err := fsys.Resolve(fs, p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve excluded path %s: %w", p, err)
		}
		excludes = append(excludes, resolved)
	}

	return &Scanner{
		fs:          fs,
		root:        root,
		opts:        opts,
		excludeDirs: excludeDirs,
		globs:       globs,
		excludes:    excludes,
	}, nil
}

// Root returns the cleaned scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Entries returns a lazy, finite sequence of matching files in lexical
// depth-first order. Non-fatal errors (an unreadable subdirectory, a broken
// symlink) are yielded with a zero FileEntry and the walk continues. The
// walk stops as soon as the consumer stops ranging.
func (s *Scanner) Entries() iter.Seq2[FileEntry, error] {
	return func(yield func(FileEntry, error) bool) {
		_ = s.fs.Walk(s.root, func(path string, info os.FileInfo, err error) error {
			if info != nil && info.IsDir() && path != s.root && s.skipDir(path, info.Name()) {
				return filepath.SkipDir
			}

			if err != nil {
				if !yield(FileEntry{}, fmt.Errorf("error accessing %s: %w", path, err)) {
					return errStopWalk
				}
				return nil
			}

			if info.IsDir() {
				return nil
			}

			entry, ok, err := s.match(path, info)
			if err != nil {
				if !yield(FileEntry{}, err) {
					return errStopWalk
				}
				return nil
			}
			if !ok {
				return nil
			}
			if !yield(entry, nil) {
				return errStopWalk
			}
			return nil
		})
	}
}

// skipDir decides whether a directory subtree is pruned.
func (s *Scanner) skipDir(path, name string) bool {
	if s.isExcludedPath(path) {
		return true
	}
	if s.excludeDirs[name] {
		return true
	}
	if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if s.matchesGlob(path) {
		return true
	}
	if s.opts.MaxDepth > 0 {
		relPath, _ := filepath.Rel(s.root, path)
		depth := strings.Count(relPath, string(filepath.Separator)) + 1
		if depth >= s.opts.MaxDepth {
			return true
		}
	}
	return false
}

// match turns a non-directory walk entry into a FileEntry when it qualifies.
func (s *Scanner) match(path string, info os.FileInfo) (FileEntry, bool, error) {
	base, ext, ok := s.opts.Extension.Split(info.Name(), s.opts.FoldCase)
	if !ok {
		return FileEntry{}, false, nil
	}
	if s.isExcludedPath(path) || s.matchesGlob(path) {
		return FileEntry{}, false, nil
	}

	mode := info.Mode()
	if mode&os.ModeSymlink != 0 {
		target, err := s.fs.Stat(path)
		if err != nil {
			return FileEntry{}, false, fmt.Errorf("failed to resolve symlink %s: %w", path, err)
		}
		mode = target.Mode()
	}
	if !mode.IsRegular() {
		return FileEntry{}, false, nil
	}

	return FileEntry{Path: path, Base: base, Ext: ext}, true, nil
}

// isExcludedPath reports whether path is one of the excluded paths or lies
// beneath one of them.
func (s *Scanner) isExcludedPath(path string) bool {
	for _, excl := range s.excludes {
		if IsWithin(path, excl) {
			return true
		}
	}
	return false
}

func (s *Scanner) matchesGlob(path string) bool {
	if len(s.globs) == 0 {
		return false
	}
	relPath, err := filepath.Rel(s.root, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)
	for _, g := range s.globs {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// IsWithin reports whether path equals dir or lies below it. Both paths are
// cleaned first; "/a/out2" is not within "/a/out".
func IsWithin(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	sep := string(filepath.Separator)
	if strings.HasSuffix(dir, sep) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+sep)
}

// ScanDirectory drains a Scanner into a ScanResult. It is the eager
// counterpart of Scanner.Entries for callers that want the full list.
func ScanDirectory(fs fsys.Filesystem, dir string, opts ScanOptions) (*ScanResult, error) {
	scanner, err := NewScanner(fs, dir, opts)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Entries: make([]FileEntry, 0),
		Errors:  make([]error, 0),
	}
	for entry, err := range scanner.Entries() {
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

package flatten

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/flatten/internal/fileutil"
	"github.com/harrison/flatten/internal/fsys"
)

// Copier copies scanned files into the output directory under names handed
// out by a NameRegistry. Sources are only ever read.
type Copier struct {
	fs       fsys.Filesystem
	dir      string
	registry *NameRegistry
	dryRun   bool
}

// NewCopier creates a Copier writing into dir.
func NewCopier(fs fsys.Filesystem, dir string, registry *NameRegistry, dryRun bool) *Copier {
	return &Copier{
		fs:       fs,
		dir:      dir,
		registry: registry,
		dryRun:   dryRun,
	}
}

// Copy writes entry into the output directory and returns the destination
// path. The destination is created exclusively, so a file that appears
// between claiming a name and creating it is never truncated; the name is
// marked taken and the next one is tried. On failure nothing is left behind
// and the claimed name is released.
func (c *Copier) Copy(entry fileutil.FileEntry) (string, error) {
	info, err := c.fs.Stat(entry.Path)
	if err != nil {
		return "", fmt.Errorf("failed to stat source: %w", err)
	}
	perm := info.Mode().Perm() | 0o200

	if c.dryRun {
		name, err := c.registry.Claim(entry.Base, entry.Ext, entry.Path)
		if err != nil {
			return "", err
		}
		return filepath.Join(c.dir, name), nil
	}

	src, err := c.fs.Open(entry.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	for {
		name, err := c.registry.Claim(entry.Base, entry.Ext, entry.Path)
		if err != nil {
			return "", err
		}
		dest := filepath.Join(c.dir, name)

		dst, err := c.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				c.registry.MarkTaken(name)
				continue
			}
			c.registry.Release(name)
			return "", fmt.Errorf("failed to create destination: %w", err)
		}

		if err := c.stream(dst, src); err != nil {
			_ = c.fs.Remove(dest)
			c.registry.Release(name)
			return "", err
		}
		return dest, nil
	}
}

func (c *Copier) stream(dst fsys.File, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy contents: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}
	return nil
}

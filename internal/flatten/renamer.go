package flatten

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/models"
)

// RenameScope selects which output files phase 2 touches.
type RenameScope string

const (
	// ScopeRun renames only the names claimed by phase 1 of the same run.
	ScopeRun RenameScope = "run"
	// ScopeAll renames every matching file in the output directory.
	ScopeAll RenameScope = "all"
)

// RenameReport is the outcome of a rename pass.
type RenameReport struct {
	Renamed  []models.RenamedFile
	Skipped  int
	Failures []*PipelineError
}

// Renamer rewrites the extension of files directly inside one directory. It
// never descends into subdirectories and never overwrites an existing file.
type Renamer struct {
	fs       fsys.Filesystem
	dir      string
	from     extension.Spec
	to       extension.Spec
	foldCase bool
	dryRun   bool
}

// NewRenamer creates a Renamer for dir.
func NewRenamer(fs fsys.Filesystem, dir string, from, to extension.Spec, foldCase, dryRun bool) *Renamer {
	return &Renamer{
		fs:       fs,
		dir:      dir,
		from:     from,
		to:       to,
		foldCase: foldCase,
		dryRun:   dryRun,
	}
}

// Noop reports whether source and target are the same extension, in which
// case no file would change.
func (r *Renamer) Noop() bool {
	return r.from.Equal(r.to, false)
}

// RenameAll renames every regular file in the directory whose name carries
// the source extension. Failing to list the directory is fatal; everything
// else is recorded per entry.
func (r *Renamer) RenameAll(ctx context.Context) (*RenameReport, error) {
	report := &RenameReport{}
	if r.Noop() {
		return report, nil
	}

	infos, err := r.fs.ReadDir(r.dir)
	if err != nil {
		return report, NewPipelineError(KindIOUnavailable, models.StateRenaming, r.dir,
			fmt.Errorf("%w: %w", ErrOutputUnavailable, err))
	}

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return report, NewPipelineError(KindCanceled, models.StateRenaming, "", fmt.Errorf("%w: %w", ErrCanceled, err))
		}
		if info.IsDir() {
			continue
		}
		if !info.Mode().IsRegular() || !r.from.Matches(info.Name(), r.foldCase) {
			report.Skipped++
			continue
		}
		r.renameOne(info.Name(), report)
	}
	return report, nil
}

// RenameNames renames exactly the given names, typically the ones phase 1
// claimed, leaving every other file in the directory alone.
func (r *Renamer) RenameNames(ctx context.Context, names []string) (*RenameReport, error) {
	report := &RenameReport{}
	if r.Noop() {
		return report, nil
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, NewPipelineError(KindCanceled, models.StateRenaming, "", fmt.Errorf("%w: %w", ErrCanceled, err))
		}
		if !r.from.Matches(name, r.foldCase) {
			report.Skipped++
			continue
		}
		if !r.dryRun {
			info, err := r.fs.Lstat(filepath.Join(r.dir, name))
			if err != nil {
				report.Failures = append(report.Failures,
					NewPipelineError(KindEntryRename, models.StateRenaming, filepath.Join(r.dir, name), err))
				continue
			}
			if !info.Mode().IsRegular() {
				report.Skipped++
				continue
			}
		}
		r.renameOne(name, report)
	}
	return report, nil
}

func (r *Renamer) renameOne(name string, report *RenameReport) {
	newName, ok := r.from.Replace(name, r.to, r.foldCase)
	if !ok || newName == name {
		report.Skipped++
		return
	}
	from := filepath.Join(r.dir, name)
	to := filepath.Join(r.dir, newName)

	if r.dryRun {
		report.Renamed = append(report.Renamed, models.RenamedFile{From: name, To: newName})
		return
	}

	if err := r.checkTarget(from, to, name, newName); err != nil {
		report.Failures = append(report.Failures, NewPipelineError(KindEntryRename, models.StateRenaming, from, err))
		return
	}
	if err := r.fs.Rename(from, to); err != nil {
		report.Failures = append(report.Failures, NewPipelineError(KindEntryRename, models.StateRenaming, from, err))
		return
	}
	report.Renamed = append(report.Renamed, models.RenamedFile{From: name, To: newName})
}

// checkTarget refuses to rename onto an existing file. A target that differs
// only in letter case and is the same file (case-insensitive host) is fine.
func (r *Renamer) checkTarget(from, to, name, newName string) error {
	exists, err := r.fs.Exists(to)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if strings.EqualFold(name, newName) {
		fi, errFrom := r.fs.Lstat(from)
		ti, errTo := r.fs.Lstat(to)
		if errFrom == nil && errTo == nil && os.SameFile(fi, ti) {
			return nil
		}
	}
	return fmt.Errorf("target %s already exists", newName)
}

package flatten

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/flatten/internal/extension"
	"github.com/harrison/flatten/internal/fileutil"
	"github.com/harrison/flatten/internal/fsys"
	"github.com/harrison/flatten/internal/models"
)

// Logger receives pipeline events. Implementations live in internal/logger.
type Logger interface {
	LogPhase(state models.State, detail string)
	LogCopy(src, dest string)
	LogRename(from, to string)
	LogFailure(failure models.EntryFailure)
	LogSummary(result *models.RunResult)
}

// Locker guards the output directory against a concurrent run.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// Options configures a pipeline run. Root and Output must be absolute,
// cleaned paths; the CLI resolves them before constructing the pipeline.
type Options struct {
	Root        string
	Output      string
	From        extension.Spec
	To          extension.Spec
	FoldCase    bool
	FailFast    bool
	DryRun      bool
	RenameScope RenameScope

	ExcludeDirs []string
	Exclude     []string
	SkipHidden  bool
	MaxDepth    int

	// Locker is acquired after the output directory exists. Optional.
	Locker Locker
}

// Validate checks the options for configuration errors.
func (o *Options) Validate() error {
	switch {
	case o.From.IsZero():
		return NewPipelineError(KindConfiguration, models.StateInit, "", fmt.Errorf("%w: source extension is required", ErrInvalidConfig))
	case o.To.IsZero():
		return NewPipelineError(KindConfiguration, models.StateInit, "", fmt.Errorf("%w: target extension is required", ErrInvalidConfig))
	case o.Root == "":
		return NewPipelineError(KindConfiguration, models.StateInit, "", fmt.Errorf("%w: root directory is required", ErrInvalidConfig))
	case o.Output == "":
		return NewPipelineError(KindConfiguration, models.StateInit, "", fmt.Errorf("%w: output directory is required", ErrInvalidConfig))
	case fileutil.IsWithin(o.Root, o.Output):
		return NewPipelineError(KindConfiguration, models.StateInit, o.Output,
			fmt.Errorf("%w: root %s is inside the output directory", ErrInvalidConfig, o.Root))
	}
	switch o.RenameScope {
	case "":
		o.RenameScope = ScopeRun
	case ScopeRun, ScopeAll:
	default:
		return NewPipelineError(KindConfiguration, models.StateInit, "",
			fmt.Errorf("%w: unknown rename scope %q (want %q or %q)", ErrInvalidConfig, o.RenameScope, ScopeRun, ScopeAll))
	}
	return nil
}

// Pipeline runs the two phases: copy every match into the output directory
// under a unique name, then rewrite the extension of the copies. States only
// move forward: INIT, SCANNING, COPYING, RENAMING, DONE.
type Pipeline struct {
	fs     fsys.Filesystem
	opts   Options
	logger Logger
	state  models.State
	now    func() time.Time
}

// New validates opts and returns a pipeline in the INIT state.
func New(fs fsys.Filesystem, opts Options, logger Logger) (*Pipeline, error) {
	opts.Root = filepath.Clean(opts.Root)
	opts.Output = filepath.Clean(opts.Output)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Pipeline{
		fs:     fs,
		opts:   opts,
		logger: logger,
		state:  models.StateInit,
		now:    time.Now,
	}, nil
}

// State returns the state the pipeline has reached.
func (p *Pipeline) State() models.State {
	return p.state
}

// Run executes both phases. Recoverable entry failures are collected in the
// result and the run continues, unless FailFast is set. The returned error is
// non-nil only when the run stopped before DONE; the result is always
// returned and reflects the work done so far.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		Root:      p.opts.Root,
		Output:    p.opts.Output,
		From:      p.opts.From.String(),
		To:        p.opts.To.String(),
		DryRun:    p.opts.DryRun,
		State:     p.state,
		StartedAt: p.now(),
	}
	defer func() {
		result.State = p.state
		result.Duration = p.now().Sub(result.StartedAt)
		p.logger.LogSummary(result)
	}()

	if err := p.prepare(); err != nil {
		result.Err = err
		return result, err
	}
	result.Root = p.opts.Root
	result.Output = p.opts.Output
	if p.opts.Locker != nil && !p.opts.DryRun {
		if err := p.lock(); err != nil {
			result.Err = err
			return result, err
		}
		defer p.opts.Locker.Unlock()
	}

	registry := NewNameRegistry(p.fs, p.opts.Output, p.opts.To, p.opts.FoldCase)
	if err := p.copyPhase(ctx, registry, result); err != nil {
		result.Err = err
		return result, err
	}
	if err := p.renamePhase(ctx, registry, result); err != nil {
		result.Err = err
		return result, err
	}

	p.transition(models.StateDone, fmt.Sprintf("%d copied, %d renamed", result.Copied, result.Renamed))
	return result, nil
}

// prepare checks the root, creates the output directory and resolves
// symlinks in both paths. From here on the pipeline works with the resolved
// paths, so the output directory is recognised during the scan however the
// caller spelled either path.
func (p *Pipeline) prepare() error {
	if err := fileutil.ValidateRoot(p.fs, p.opts.Root); err != nil {
		return NewPipelineError(KindConfiguration, p.state, p.opts.Root, fmt.Errorf("%w: %w", ErrRootNotFound, err))
	}
	if !p.opts.DryRun {
		if err := p.fs.MkdirAll(p.opts.Output, 0o755); err != nil {
			return NewPipelineError(KindIOUnavailable, p.state, p.opts.Output, fmt.Errorf("%w: %w", ErrOutputUnavailable, err))
		}
	}

	root, err := p.fs.EvalSymlinks(p.opts.Root)
	if err != nil {
		return NewPipelineError(KindConfiguration, p.state, p.opts.Root, fmt.Errorf("%w: %w", ErrRootNotFound, err))
	}
	output, err := fsys.Resolve(p.fs, p.opts.Output)
	if err != nil {
		return NewPipelineError(KindIOUnavailable, p.state, p.opts.Output, fmt.Errorf("%w: %w", ErrOutputUnavailable, err))
	}
	if fileutil.IsWithin(root, output) {
		return NewPipelineError(KindConfiguration, p.state, p.opts.Output,
			fmt.Errorf("%w: root %s resolves inside the output directory %s", ErrInvalidConfig, p.opts.Root, output))
	}
	p.opts.Root = root
	p.opts.Output = output
	return nil
}

func (p *Pipeline) lock() error {
	acquired, err := p.opts.Locker.TryLock()
	if err != nil {
		return NewPipelineError(KindIOUnavailable, p.state, p.opts.Output, fmt.Errorf("%w: %w", ErrOutputUnavailable, err))
	}
	if !acquired {
		return NewPipelineError(KindIOUnavailable, p.state, p.opts.Output, ErrLocked)
	}
	return nil
}

func (p *Pipeline) copyPhase(ctx context.Context, registry *NameRegistry, result *models.RunResult) error {
	p.transition(models.StateScanning, p.opts.Root)

	scanner, err := fileutil.NewScanner(p.fs, p.opts.Root, fileutil.ScanOptions{
		Extension:    p.opts.From,
		FoldCase:     p.opts.FoldCase,
		ExcludePaths: []string{p.opts.Output},
		ExcludeDirs:  p.opts.ExcludeDirs,
		Exclude:      p.opts.Exclude,
		SkipHidden:   p.opts.SkipHidden,
		MaxDepth:     p.opts.MaxDepth,
	})
	if err != nil {
		if errors.Is(err, fileutil.ErrRootNotFound) || errors.Is(err, fileutil.ErrNotDirectory) {
			return NewPipelineError(KindConfiguration, p.state, p.opts.Root, fmt.Errorf("%w: %w", ErrRootNotFound, err))
		}
		return NewPipelineError(KindConfiguration, p.state, "", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	copier := NewCopier(p.fs, p.opts.Output, registry, p.opts.DryRun)
	for entry, scanErr := range scanner.Entries() {
		if err := ctx.Err(); err != nil {
			return NewPipelineError(KindCanceled, p.state, "", fmt.Errorf("%w: %w", ErrCanceled, err))
		}
		if scanErr != nil {
			if err := p.recordFailure(result, models.FailureScan, "", NewPipelineError(KindEntryCopy, p.state, "", scanErr)); err != nil {
				return err
			}
			continue
		}
		if p.state == models.StateScanning {
			p.transition(models.StateCopying, p.opts.Output)
		}

		result.Scanned++
		dest, err := copier.Copy(entry)
		if err != nil {
			if errors.Is(err, ErrOutputUnavailable) {
				return NewPipelineError(KindIOUnavailable, p.state, p.opts.Output, err)
			}
			if err := p.recordFailure(result, models.FailureCopy, entry.Path, NewPipelineError(KindEntryCopy, p.state, entry.Path, err)); err != nil {
				return err
			}
			continue
		}
		result.Copied++
		result.Copies = append(result.Copies, models.RenamedFile{From: entry.Path, To: filepath.Base(dest)})
		p.logger.LogCopy(entry.Path, dest)
	}

	if p.state == models.StateScanning {
		p.transition(models.StateCopying, "no matching files")
	}
	return nil
}

func (p *Pipeline) renamePhase(ctx context.Context, registry *NameRegistry, result *models.RunResult) error {
	p.transition(models.StateRenaming, fmt.Sprintf("%s -> %s", p.opts.From, p.opts.To))

	renamer := NewRenamer(p.fs, p.opts.Output, p.opts.From, p.opts.To, p.opts.FoldCase, p.opts.DryRun)

	var report *RenameReport
	var err error
	switch {
	case p.opts.RenameScope == ScopeAll && !p.opts.DryRun:
		report, err = renamer.RenameAll(ctx)
	default:
		report, err = renamer.RenameNames(ctx, registry.Claimed())
	}
	if report != nil {
		result.Skipped += report.Skipped
		for _, rf := range report.Renamed {
			result.Renamed++
			result.Renames = append(result.Renames, rf)
			p.logger.LogRename(rf.From, rf.To)
		}
		for _, failure := range report.Failures {
			if ferr := p.recordFailure(result, models.FailureRename, failure.Path, failure); ferr != nil {
				return ferr
			}
		}
	}
	return err
}

// recordFailure stores a recoverable failure. With FailFast it returns the
// failure so the caller aborts.
func (p *Pipeline) recordFailure(result *models.RunResult, kind, path string, err error) error {
	result.AddFailure(kind, path, err)
	p.logger.LogFailure(result.Failures[len(result.Failures)-1])
	if p.opts.FailFast {
		return fmt.Errorf("fail-fast: %w", err)
	}
	return nil
}

func (p *Pipeline) transition(next models.State, detail string) {
	p.state = next
	p.logger.LogPhase(next, detail)
}

type nopLogger struct{}

func (nopLogger) LogPhase(models.State, string) {}
func (nopLogger) LogCopy(string, string) {}
func (nopLogger) LogRename(string, string) {}
func (nopLogger) LogFailure(models.EntryFailure) {}
func (nopLogger) LogSummary(*models.RunResult) {}

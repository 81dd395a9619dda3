// Package filelock provides the advisory lock that keeps two flatten
// processes from populating the same output directory at the same time.
//
// Lock files live in a separate lock directory, never inside the directory
// they guard, so a locked output directory holds nothing but flattened files.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLockTimeout is returned by LockContext when the context ends before the
// lock could be acquired.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// FileLock wraps a flock file lock for coordinating access to a directory.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path.
// The lock file is created on first acquisition.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// ForTarget returns the lock guarding target, backed by a file in lockDir
// whose name is derived from the cleaned target path. Every process that
// uses the same lockDir agrees on the file for a given target.
func ForTarget(lockDir, target string) *FileLock {
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(filepath.Clean(target))))
	return NewFileLock(filepath.Join(lockDir, key.String()+".lock"))
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// ensureDir creates the lock directory on first use.
func (fl *FileLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}

// TryLock attempts to acquire an exclusive lock on the file without blocking.
// Returns true if the lock was acquired, false if the lock is held by another process.
// Returns an error if the lock operation fails.
func (fl *FileLock) TryLock() (bool, error) {
	if err := fl.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// LockContext retries TryLock every retryDelay until the lock is acquired or
// ctx ends.
func (fl *FileLock) LockContext(ctx context.Context, retryDelay time.Duration) error {
	if err := fl.ensureDir(); err != nil {
		return err
	}
	acquired, err := fl.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrLockTimeout, fl.path)
		}
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrLockTimeout, fl.path)
	}
	return nil
}

// Unlock releases the lock.
// Returns an error if the unlock operation fails.
func (fl *FileLock) Unlock() error {
	err := fl.flock.Unlock()
	if err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// WaitingLock is a FileLock whose TryLock waits up to a fixed duration
// before reporting the lock as held elsewhere.
type WaitingLock struct {
	*FileLock
	wait       time.Duration
	retryDelay time.Duration
}

// NewWaitingLock wraps fl. A wait of zero keeps TryLock non-blocking.
func NewWaitingLock(fl *FileLock, wait time.Duration) *WaitingLock {
	return &WaitingLock{FileLock: fl, wait: wait, retryDelay: 100 * time.Millisecond}
}

// TryLock acquires the lock, retrying until the wait elapses. It returns
// false without error when the lock is still held after the wait.
func (wl *WaitingLock) TryLock() (bool, error) {
	if wl.wait <= 0 {
		return wl.FileLock.TryLock()
	}
	ctx, cancel := context.WithTimeout(context.Background(), wl.wait)
	defer cancel()
	if err := wl.LockContext(ctx, wl.retryDelay); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Package fileio opens files under OS-level advisory locks and rewrites
// them in place through the locked handle.
//
// Locks are taken with flock(2) on unix and LockFileEx on windows, so they
// exclude other processes as well as other goroutines. Acquisition is
// non-blocking and retried a bounded number of times at a fixed interval.
package fileio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultLockAttempts is how many times acquisition is tried before giving up.
	DefaultLockAttempts = 20

	// DefaultLockRetryDelay is the fixed pause between acquisition attempts.
	DefaultLockRetryDelay = 50 * time.Millisecond
)

// ErrLockTimeout matches any *LockTimeoutError via errors.Is.
var ErrLockTimeout = errors.New("timed out waiting for file lock")

// errWouldBlock is returned by the platform lock calls when another handle
// holds a conflicting lock.
var errWouldBlock = errors.New("lock held by another handle")

// LockTimeoutError reports that a lock could not be acquired within the
// retry budget.
type LockTimeoutError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("could not lock %s after %d attempts: another process is using it; try again shortly", e.Path, e.Attempts)
}

func (e *LockTimeoutError) Unwrap() error { return e.Err }

func (e *LockTimeoutError) Is(target error) bool { return target == ErrLockTimeout }

// Mode selects a shared or exclusive lock.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// LockOptions bounds lock acquisition.
type LockOptions struct {
	Attempts   int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// DefaultLockOptions returns the standard retry budget.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Attempts:   DefaultLockAttempts,
		RetryDelay: DefaultLockRetryDelay,
	}
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Attempts <= 0 {
		o.Attempts = DefaultLockAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultLockRetryDelay
	}
	if o.Logger == nil {
		o.Logger = slog.With("component", "fileio")
	}
	return o
}

// File is an open, locked file. Close releases the lock.
type File struct {
	f    *os.File
	path string
	mode Mode
}

// Open opens path with the given os.OpenFile flags and acquires a lock of
// the given mode. Only lock contention is retried; open errors such as
// fs.ErrNotExist or fs.ErrPermission are returned immediately. The context
// is checked before every attempt, so a cancelled open has no side effects
// beyond possibly creating the file when flag includes os.O_CREATE.
func Open(ctx context.Context, path string, flag int, perm fs.FileMode, mode Mode, opts LockOptions) (*File, error) {
	opts = opts.withDefaults()

	limiter := rate.NewLimiter(rate.Every(opts.RetryDelay), 1)
	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for lock on %s: %w", path, ctxErr(ctx, err))
			}
		} else {
			// Consume the initial burst so every retry waits a full interval.
			limiter.Allow()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.OpenFile(path, flag, perm)
		if err != nil {
			return nil, err
		}
		err = lockFile(f, mode)
		if err == nil {
			return &File{f: f, path: path, mode: mode}, nil
		}
		f.Close()
		if !errors.Is(err, errWouldBlock) {
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		lastErr = err
		opts.Logger.Debug("file locked, retrying", "path", path, "mode", mode, "attempt", attempt)
	}

	return nil, &LockTimeoutError{Path: path, Attempts: opts.Attempts, Err: lastErr}
}

// ctxErr prefers the context's own error over the limiter's description of it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// Size returns the current length of the file.
func (f *File) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close unlocks and closes the file.
func (f *File) Close() error {
	unlockErr := unlockFile(f.f)
	closeErr := f.f.Close()
	if closeErr != nil {
		return closeErr
	}
	return unlockErr
}

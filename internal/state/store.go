// Package state persists the record of deployed canary credentials.
//
// The record lives in one JSON file. Reads hold a shared lock and
// read-modify-write transactions hold an exclusive lock from the read
// through the write, so concurrent processes never lose each other's
// updates.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benaskins/tripwire/internal/fileio"
)

const (
	dirPerm  = 0700
	filePerm = 0600
)

var (
	// ErrNotFound is returned when no record has the requested type and name.
	ErrNotFound = errors.New("credential not found")

	// ErrExists is returned by Insert when the type and name are taken.
	ErrExists = errors.New("credential already exists")
)

// CorruptStateError reports a state file that is not a valid document.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("state file %s is corrupt (%v); repair it or move it aside and try again", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// Store reads and updates the state file.
type Store struct {
	path   string
	lock   fileio.LockOptions
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockOptions overrides the lock retry budget.
func WithLockOptions(opts fileio.LockOptions) Option {
	return func(s *Store) {
		s.lock = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore returns a Store for the file at path. Nothing is touched until
// the first read or update.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		lock:   fileio.DefaultLockOptions(),
		logger: slog.With("component", "state"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock.Logger = s.logger
	return s
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

func (s *Store) open(ctx context.Context, mode fileio.Mode) (*fileio.File, error) {
	if err := fileio.EnsureDir(filepath.Dir(s.path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if err := fileio.EnsureFile(s.path, filePerm); err != nil {
		return nil, fmt.Errorf("creating state file: %w", err)
	}
	flag := os.O_RDONLY
	if mode == fileio.Exclusive {
		flag = os.O_RDWR
	}
	f, err := fileio.Open(ctx, s.path, flag, filePerm, mode, s.lock)
	if err != nil {
		return nil, fmt.Errorf("opening state file: %w", err)
	}
	return f, nil
}

func (s *Store) read(f *fileio.File) (*State, error) {
	data, err := f.ReadAll()
	if err != nil {
		return nil, err
	}
	st := &State{}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	return st, nil
}

// Snapshot returns a copy of the current state. A missing or empty file is
// an empty state; the file and its directory are created if needed.
func (s *Store) Snapshot(ctx context.Context) (*State, error) {
	f, err := s.open(ctx, fileio.Shared)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.read(f)
}

// Update runs fn on the current state under an exclusive lock and writes
// the result back. If fn returns an error the file is left untouched and
// that error is returned.
func (s *Store) Update(ctx context.Context, fn func(*State) error) error {
	_, err := Transact(ctx, s, func(st *State) (struct{}, error) {
		return struct{}{}, fn(st)
	})
	return err
}

// Transact is Update with a result. The value fn returns is passed back
// once the new state has been written.
func Transact[T any](ctx context.Context, s *Store, fn func(*State) (T, error)) (T, error) {
	var zero T

	f, err := s.open(ctx, fileio.Exclusive)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	st, err := s.read(f)
	if err != nil {
		return zero, err
	}
	result, err := fn(st)
	if err != nil {
		return zero, err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return zero, fmt.Errorf("encoding state: %w", err)
	}
	if err := f.Replace(append(data, '\n')); err != nil {
		return zero, err
	}
	s.logger.Debug("state written", "path", s.path, "credentials", len(st.Credentials))
	return result, nil
}

// AddOrReplace stores c, replacing any record with the same type and name
// in its existing position.
func (s *Store) AddOrReplace(ctx context.Context, c Credential) error {
	return s.Update(ctx, func(st *State) error {
		st.AddOrReplace(c)
		return nil
	})
}

// Insert stores c, failing with ErrExists if its type and name are taken.
func (s *Store) Insert(ctx context.Context, c Credential) error {
	return s.Update(ctx, func(st *State) error {
		if st.Find(c.Type(), c.Common().Name) != nil {
			return fmt.Errorf("%s %q: %w", c.Type(), c.Common().Name, ErrExists)
		}
		st.Credentials = append(st.Credentials, c)
		return nil
	})
}

// Remove deletes the record with the given type and name, failing with
// ErrNotFound if there is none.
func (s *Store) Remove(ctx context.Context, typ, name string) error {
	return s.Update(ctx, func(st *State) error {
		if !st.Remove(typ, name) {
			return fmt.Errorf("%s %q: %w", typ, name, ErrNotFound)
		}
		return nil
	})
}

// Find returns the record with the given type and name, or ErrNotFound.
func (s *Store) Find(ctx context.Context, typ, name string) (Credential, error) {
	st, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c := st.Find(typ, name)
	if c == nil {
		return nil, fmt.Errorf("%s %q: %w", typ, name, ErrNotFound)
	}
	return c, nil
}

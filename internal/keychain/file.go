package keychain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/benaskins/tripwire/internal/fileio"
)

// CorruptFileError reports a secrets file that is not a JSON object.
type CorruptFileError struct {
	Path string
	Err  error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("credentials file %s might be corrupted (%v); delete it and try again", e.Path, e.Err)
}

func (e *CorruptFileError) Unwrap() error { return e.Err }

// FileStore keeps secrets as members of a JSON object, e.g.
// {"token": "..."}. Members under other keys are kept as they are. The
// file is locked for every access.
type FileStore struct {
	path string
	lock fileio.LockOptions
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: fileio.DefaultLockOptions()}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) decode(f *fileio.File) (map[string]json.RawMessage, error) {
	data, err := f.ReadAll()
	if err != nil {
		return nil, err
	}
	members := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return members, nil
	}
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, &CorruptFileError{Path: s.path, Err: err}
	}
	if members == nil {
		members = make(map[string]json.RawMessage)
	}
	return members, nil
}

func (s *FileStore) Get(key string) (string, error) {
	f, err := fileio.Open(context.Background(), s.path, os.O_RDONLY, 0600, fileio.Shared, s.lock)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	members, err := s.decode(f)
	if err != nil {
		return "", err
	}
	var val *string
	if raw, ok := members[key]; ok {
		if err := json.Unmarshal(raw, &val); err != nil {
			return "", &CorruptFileError{Path: s.path, Err: fmt.Errorf("%s: %w", key, err)}
		}
	}
	if val == nil || *val == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return *val, nil
}

func (s *FileStore) Set(key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.update(func(members map[string]json.RawMessage) {
		members[key] = raw
	})
}

func (s *FileStore) Delete(key string) error {
	if ok, err := fileio.Exists(s.path); err != nil || !ok {
		return err
	}
	return s.update(func(members map[string]json.RawMessage) {
		delete(members, key)
	})
}

func (s *FileStore) update(fn func(map[string]json.RawMessage)) error {
	if err := fileio.EnsureDir(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	if err := fileio.EnsureFile(s.path, 0600); err != nil {
		return err
	}
	f, err := fileio.Open(context.Background(), s.path, os.O_RDWR, 0600, fileio.Exclusive, s.lock)
	if err != nil {
		return err
	}
	defer f.Close()

	members, err := s.decode(f)
	if err != nil {
		return err
	}
	fn(members)

	data, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return err
	}
	return f.Replace(append(data, '\n'))
}

// Package sshconfig keeps canary Host blocks in an OpenSSH client config
// and manages the key-pair files they point at.
package sshconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benaskins/tripwire/internal/fileio"
)

const (
	dirPerm        = 0700
	configPerm     = 0600
	privateKeyPerm = 0600
	publicKeyPerm  = 0644
)

// KeyFileExistsError reports that a key-pair path is already taken by a file
// that does not belong to the canary being replaced.
type KeyFileExistsError struct {
	Path string
}

func (e *KeyFileExistsError) Error() string {
	return fmt.Sprintf("ssh key %s already exists; choose another key file name or move the existing file", e.Path)
}

// KeyPair is the private and public key material of an SSH canary.
type KeyPair struct {
	Private []byte
	Public  []byte
}

// PublicKeyPath returns the conventional public key path for a private key.
func PublicKeyPath(privateKeyPath string) string {
	return privateKeyPath + ".pub"
}

// Sync edits an SSH client config file.
type Sync struct {
	dir        string
	configPath string
	lock       fileio.LockOptions
	logger     *slog.Logger
}

// Option configures a Sync.
type Option func(*Sync)

// WithLockOptions overrides the lock retry budget.
func WithLockOptions(opts fileio.LockOptions) Option {
	return func(s *Sync) {
		s.lock = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = l
	}
}

// NewSync returns a Sync for the config file in dir (normally ~/.ssh).
// Key files are written alongside it.
func NewSync(dir string, opts ...Option) *Sync {
	s := &Sync{
		dir:        dir,
		configPath: filepath.Join(dir, "config"),
		lock:       fileio.DefaultLockOptions(),
		logger:     slog.With("component", "sshconfig"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock.Logger = s.logger
	return s
}

// ConfigPath returns the path of the SSH client config.
func (s *Sync) ConfigPath() string { return s.configPath }

// KeyPath returns where a private key named fileName is written.
func (s *Sync) KeyPath(fileName string) string {
	return filepath.Join(s.dir, fileName)
}

// UpsertHost replaces any Host block for ip with one pointing at a freshly
// written key pair named keyFileName, and returns the private key path.
//
// Key files left by the replaced block are deleted: they belong to an
// earlier canary for the same host. Any other file already at the new key
// paths aborts the call with *KeyFileExistsError before anything changes.
func (s *Sync) UpsertHost(ctx context.Context, ip string, keys KeyPair, keyFileName string) (string, error) {
	if ip == "" {
		return "", errors.New("ssh host is required")
	}
	if keyFileName == "" || filepath.Base(keyFileName) != keyFileName {
		return "", fmt.Errorf("invalid ssh key file name %q", keyFileName)
	}

	if err := fileio.EnsureDir(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating %s: %w", s.dir, err)
	}
	if err := fileio.EnsureFile(s.configPath, configPerm); err != nil {
		return "", fmt.Errorf("creating %s: %w", s.configPath, err)
	}

	f, err := fileio.Open(ctx, s.configPath, os.O_RDWR, configPerm, fileio.Exclusive, s.lock)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", s.configPath, err)
	}
	defer f.Close()

	lines, err := f.ReadLines()
	if err != nil {
		return "", err
	}
	kept, oldKey := RemoveHostEntry(lines.Text, ip)
	indent := Indentation(kept)

	privatePath := s.KeyPath(keyFileName)
	publicPath := PublicKeyPath(privatePath)
	var oldPublic string
	if oldKey != "" {
		oldPublic = PublicKeyPath(oldKey)
	}
	if err := checkFree(privatePath, oldKey); err != nil {
		return "", err
	}
	if err := checkFree(publicPath, oldPublic); err != nil {
		return "", err
	}

	if oldKey != "" {
		if err := deleteKeyFiles(oldKey); err != nil {
			return "", err
		}
		s.logger.Info("removed previous ssh canary key", "host", ip, "path", oldKey)
	}

	if err := writeKey(privatePath, keys.Private, privateKeyPerm); err != nil {
		return "", err
	}
	if err := writeKey(publicPath, keys.Public, publicKeyPerm); err != nil {
		return "", err
	}

	lines.Text = append(kept, HostBlock(ip, privatePath, indent)...)
	if err := f.WriteLines(lines); err != nil {
		return "", err
	}

	s.logger.Info("ssh host written", "host", ip, "key", privatePath, "config", s.configPath)
	return privatePath, nil
}

// RemoveHost deletes the Host block for ip and the key pair at keyPath. A
// missing config file is not an error; the key files are deleted either way.
func (s *Sync) RemoveHost(ctx context.Context, ip, keyPath string) error {
	if ip == "" {
		return errors.New("ssh host is required")
	}

	f, err := fileio.Open(ctx, s.configPath, os.O_RDWR, configPerm, fileio.Exclusive, s.lock)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("ssh config not found, nothing to remove", "path", s.configPath)
	case err != nil:
		return fmt.Errorf("opening %s: %w", s.configPath, err)
	default:
		defer f.Close()
		lines, err := f.ReadLines()
		if err != nil {
			return err
		}
		lines.Text, _ = RemoveHostEntry(lines.Text, ip)
		if err := f.WriteLines(lines); err != nil {
			return err
		}
	}

	if keyPath != "" {
		if err := deleteKeyFiles(keyPath); err != nil {
			return err
		}
	}

	s.logger.Info("ssh host removed", "host", ip, "key", keyPath)
	return nil
}

// checkFree fails if path exists and is not the file being replaced.
func checkFree(path, replacing string) error {
	if path == replacing {
		return nil
	}
	exists, err := fileio.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return &KeyFileExistsError{Path: path}
	}
	return nil
}

func deleteKeyFiles(privatePath string) error {
	if err := fileio.RemoveIfExists(privatePath); err != nil {
		return fmt.Errorf("removing ssh key: %w", err)
	}
	if err := fileio.RemoveIfExists(PublicKeyPath(privatePath)); err != nil {
		return fmt.Errorf("removing ssh key: %w", err)
	}
	return nil
}

func writeKey(path string, data []byte, perm fs.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing ssh key: %w", err)
	}
	return fileio.Chmod(path, perm)
}

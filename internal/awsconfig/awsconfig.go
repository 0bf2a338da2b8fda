// Package awsconfig keeps canary profiles in the AWS CLI's shared config
// and credentials files.
//
// Only sections naming the canary profile are touched. Every other section,
// comment and blank line is written back exactly as it was read. Both files
// are locked exclusively for the whole of an edit, so a reader that locks
// either file never sees one updated without the other.
package awsconfig

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
	dirPerm  = 0700
	filePerm = 0600
)

// Credentials is the key material written under a credentials-file profile.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Sync edits an AWS config/credentials file pair.
type Sync struct {
	dir             string
	configPath      string
	credentialsPath string
	lock            fileio.LockOptions
	logger          *slog.Logger
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

// NewSync returns a Sync for the config and credentials files in dir
// (normally ~/.aws).
func NewSync(dir string, opts ...Option) *Sync {
	s := &Sync{
		dir:             dir,
		configPath:      filepath.Join(dir, "config"),
		credentialsPath: filepath.Join(dir, "credentials"),
		lock:            fileio.DefaultLockOptions(),
		logger:          slog.With("component", "awsconfig"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock.Logger = s.logger
	return s
}

// ConfigPath returns the path of the config file.
func (s *Sync) ConfigPath() string { return s.configPath }

// CredentialsPath returns the path of the credentials file.
func (s *Sync) CredentialsPath() string { return s.credentialsPath }

// UpsertProfile replaces any existing sections for profile in both files
// with new ones carrying region and creds. Missing files and the directory
// are created owner-only.
func (s *Sync) UpsertProfile(ctx context.Context, profile, region string, creds Credentials) error {
	if profile == "" {
		return errors.New("aws profile name is required")
	}
	if err := fileio.EnsureDir(s.dir, dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}
	for _, path := range []string{s.configPath, s.credentialsPath} {
		if err := fileio.EnsureFile(path, filePerm); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	config, credentials, err := s.openPair(ctx, false)
	if err != nil {
		return err
	}
	defer config.Close()
	defer credentials.Close()

	if err := rewrite(config, profile, ConfigHeader, ConfigSection(profile, region)); err != nil {
		return err
	}
	if err := rewrite(credentials, profile, CredentialsHeader, CredentialsSection(profile, creds)); err != nil {
		return err
	}

	s.logger.Info("aws profile written", "profile", profile, "region", region, "config", s.configPath, "credentials", s.credentialsPath)
	return nil
}

// RemoveProfile deletes the sections for profile from both files. Missing
// files are skipped.
func (s *Sync) RemoveProfile(ctx context.Context, profile string) error {
	if profile == "" {
		return errors.New("aws profile name is required")
	}

	config, credentials, err := s.openPair(ctx, true)
	if err != nil {
		return err
	}
	if config != nil {
		defer config.Close()
	}
	if credentials != nil {
		defer credentials.Close()
	}

	if config != nil {
		if err := rewrite(config, profile, ConfigHeader, nil); err != nil {
			return err
		}
	}
	if credentials != nil {
		if err := rewrite(credentials, profile, CredentialsHeader, nil); err != nil {
			return err
		}
	}

	s.logger.Info("aws profile removed", "profile", profile)
	return nil
}

// openPair locks both files exclusively. With allowMissing, a file that
// does not exist comes back nil instead of failing.
func (s *Sync) openPair(ctx context.Context, allowMissing bool) (config, credentials *fileio.File, err error) {
	config, err = s.open(ctx, s.configPath, allowMissing)
	if err != nil {
		return nil, nil, err
	}
	credentials, err = s.open(ctx, s.credentialsPath, allowMissing)
	if err != nil {
		if config != nil {
			config.Close()
		}
		return nil, nil, err
	}
	return config, credentials, nil
}

func (s *Sync) open(ctx context.Context, path string, allowMissing bool) (*fileio.File, error) {
	f, err := fileio.Open(ctx, path, os.O_RDWR, filePerm, fileio.Exclusive, s.lock)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("aws file not found, nothing to remove", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// rewrite drops the profile's section from f and appends section.
func rewrite(f *fileio.File, profile string, style HeaderStyle, section []string) error {
	lines, err := f.ReadLines()
	if err != nil {
		return err
	}
	lines.Text = append(FilterProfile(lines.Text, profile, style), section...)
	return f.WriteLines(lines)
}

// Package config loads tripwire's optional YAML configuration, by default
// ~/.tripwire/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benaskins/tripwire/internal/fileio"
)

const appName = "tripwire"

// Config holds file locations and lock tuning. Empty fields take their
// defaults in Resolve.
type Config struct {
	StateFile string `yaml:"state_file"`
	TokenFile string `yaml:"token_file"`
	AWSDir    string `yaml:"aws_dir"`
	SSHDir    string `yaml:"ssh_dir"`
	AuditLog  string `yaml:"audit_log"`
	Lock      Lock   `yaml:"lock"`
}

// Lock tunes file lock acquisition.
type Lock struct {
	Attempts   int      `yaml:"attempts"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// Duration wraps time.Duration for YAML unmarshaling of strings like "50ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// DefaultPath returns the default config file path: ~/.tripwire/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "."+appName, "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve returns a copy of c with every empty field set to its default:
//
//	state_file   <user config dir>/tripwire/state.json
//	token_file   <user config dir>/tripwire/credentials.json
//	aws_dir      ~/.aws
//	ssh_dir      ~/.ssh
//	audit_log    ~/.tripwire/audit.log
//	lock         20 attempts, 50ms apart
//
// A leading "~/" in any path is expanded.
func (c Config) Resolve() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("finding home directory: %w", err)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("finding config directory: %w", err)
	}

	out := c
	setPath := func(p *string, def string) {
		if *p == "" {
			*p = def
		}
		*p = expandHome(*p, home)
	}
	setPath(&out.StateFile, filepath.Join(configDir, appName, "state.json"))
	setPath(&out.TokenFile, filepath.Join(configDir, appName, "credentials.json"))
	setPath(&out.AWSDir, filepath.Join(home, ".aws"))
	setPath(&out.SSHDir, filepath.Join(home, ".ssh"))
	setPath(&out.AuditLog, filepath.Join(home, "."+appName, "audit.log"))

	if out.Lock.Attempts == 0 {
		out.Lock.Attempts = fileio.DefaultLockAttempts
	}
	if out.Lock.RetryDelay.Duration == 0 {
		out.Lock.RetryDelay.Duration = fileio.DefaultLockRetryDelay
	}
	return &out, nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Lock.Attempts < 0 {
		errs = append(errs, fmt.Errorf("lock.attempts must be positive, got %d", c.Lock.Attempts))
	}
	if c.Lock.RetryDelay.Duration < 0 {
		errs = append(errs, fmt.Errorf("lock.retry_delay must be positive, got %s", c.Lock.RetryDelay))
	}
	return errors.Join(errs...)
}

// LockOptions returns the lock tuning as fileio options.
func (c *Config) LockOptions() fileio.LockOptions {
	return fileio.LockOptions{
		Attempts:   c.Lock.Attempts,
		RetryDelay: c.Lock.RetryDelay.Duration,
	}
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	return path
}

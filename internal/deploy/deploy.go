// Package deploy ties config file edits to the credential record.
//
// Deploys edit the local config first and record the credential only once
// the edit succeeded, so the record never claims an artifact that is not on
// disk. Removals edit the config first as well and keep the record if that
// fails, so a failed removal can be retried. A record write that fails after
// a successful edit leaves the edit in place; the next deploy or remove of
// the same credential overwrites it.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benaskins/tripwire/internal/audit"
	"github.com/benaskins/tripwire/internal/awsconfig"
	"github.com/benaskins/tripwire/internal/sshconfig"
	"github.com/benaskins/tripwire/internal/state"
)

// AWSConfig edits the AWS shared config and credentials files.
type AWSConfig interface {
	UpsertProfile(ctx context.Context, profile, region string, creds awsconfig.Credentials) error
	RemoveProfile(ctx context.Context, profile string) error
	CredentialsPath() string
}

// SSHConfig edits the SSH client config and its key files.
type SSHConfig interface {
	UpsertHost(ctx context.Context, ip string, keys sshconfig.KeyPair, keyFileName string) (string, error)
	RemoveHost(ctx context.Context, ip, keyPath string) error
}

// Deployer applies canary credentials locally and records them.
type Deployer struct {
	store  *state.Store
	aws    AWSConfig
	ssh    SSHConfig
	audit  audit.Recorder
	actor  string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithAudit records every deploy and removal in rec.
func WithAudit(rec audit.Recorder, actor string) Option {
	return func(d *Deployer) {
		d.audit = rec
		d.actor = actor
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Deployer) {
		d.logger = l
	}
}

// WithClock overrides the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) {
		d.now = now
	}
}

// New returns a Deployer over the given store and config editors.
func New(store *state.Store, aws AWSConfig, ssh SSHConfig, opts ...Option) *Deployer {
	d := &Deployer{
		store:  store,
		aws:    aws,
		ssh:    ssh,
		audit:  audit.Discard,
		logger: slog.With("component", "deploy"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DeployAWS writes keys under cred's profile and records cred. Path is set
// to the credentials file and CreatedAt to now if unset.
func (d *Deployer) DeployAWS(ctx context.Context, cred *state.AWSCredential, keys awsconfig.Credentials) error {
	if cred.Profile == "" {
		return errors.New("aws canary has no profile")
	}
	err := d.aws.UpsertProfile(ctx, cred.Profile, cred.Region, keys)
	if err == nil {
		cred.Path = d.aws.CredentialsPath()
		err = d.record(ctx, cred)
	}
	d.log(audit.ActionDeploy, cred, err)
	return err
}

// DeploySSH writes keys as keyFileName, points a Host block for
// cred.Target at them and records cred with Path set to the private key.
func (d *Deployer) DeploySSH(ctx context.Context, cred *state.SSHCredential, keys sshconfig.KeyPair, keyFileName string) error {
	if cred.Target == "" {
		return errors.New("ssh canary has no target host")
	}
	keyPath, err := d.ssh.UpsertHost(ctx, cred.Target, keys, keyFileName)
	if err == nil {
		cred.Path = keyPath
		err = d.record(ctx, cred)
	}
	d.log(audit.ActionDeploy, cred, err)
	return err
}

// RecordHTTP records a canary that is delivered outside any local config
// file: email, session cookie or login pair.
func (d *Deployer) RecordHTTP(ctx context.Context, cred state.Credential) error {
	if !state.IsHTTP(cred) {
		return fmt.Errorf("%s credentials are not recorded without a config edit", cred.Type())
	}
	err := d.record(ctx, cred)
	d.log(audit.ActionDeploy, cred, err)
	return err
}

func (d *Deployer) record(ctx context.Context, cred state.Credential) error {
	if b := cred.Common(); b.CreatedAt.IsZero() {
		b.CreatedAt = d.now()
	}
	if err := d.store.AddOrReplace(ctx, cred); err != nil {
		return fmt.Errorf("recording %s canary %q: %w", cred.Type(), cred.Common().Name, err)
	}
	d.logger.Info("canary deployed", "type", cred.Type(), "name", cred.Common().Name, "path", cred.Common().Path)
	return nil
}

// Remove undoes the local artifact for the recorded credential (typ, name)
// and then deletes the record. If undoing fails the record is kept and the
// error returned. Records without local artifacts, including unknown types,
// are only deleted.
func (d *Deployer) Remove(ctx context.Context, typ, name string) error {
	cred, err := d.store.Find(ctx, typ, name)
	if err != nil {
		return err
	}

	err = d.undo(ctx, cred)
	if err == nil {
		err = d.store.Remove(ctx, typ, name)
		if errors.Is(err, state.ErrNotFound) {
			// Removed concurrently; the artifact is gone either way.
			err = nil
		}
	}
	d.log(audit.ActionRemove, cred, err)
	if err != nil {
		return err
	}
	d.logger.Info("canary removed", "type", typ, "name", name)
	return nil
}

func (d *Deployer) undo(ctx context.Context, cred state.Credential) error {
	switch c := cred.(type) {
	case *state.AWSCredential:
		if c.Profile == "" {
			return fmt.Errorf("aws canary %q has no profile and cannot be removed", c.Name)
		}
		return d.aws.RemoveProfile(ctx, c.Profile)
	case *state.SSHCredential:
		if c.Target == "" {
			return fmt.Errorf("ssh canary %q has no target host and cannot be removed", c.Name)
		}
		return d.ssh.RemoveHost(ctx, c.Target, c.Path)
	}
	return nil
}

// Due returns the recorded credentials that need reissuing at now.
func (d *Deployer) Due(ctx context.Context, now time.Time) ([]state.Credential, error) {
	st, err := d.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return st.Due(now), nil
}

// log writes an audit entry. It is best-effort: a failure to log does not
// fail the operation.
func (d *Deployer) log(action audit.Action, cred state.Credential, opErr error) {
	b := cred.Common()
	entry := audit.Entry{
		Action: action,
		Type:   cred.Type(),
		Name:   b.Name,
		Target: b.Target,
		Path:   b.Path,
		Actor:  d.actor,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	if err := d.audit.Log(entry); err != nil {
		d.logger.Warn("audit log write failed", "action", action, "error", err)
	}
}

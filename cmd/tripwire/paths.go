package main

import (
	"log/slog"

	"github.com/benaskins/tripwire/internal/audit"
	"github.com/benaskins/tripwire/internal/awsconfig"
	"github.com/benaskins/tripwire/internal/deploy"
	"github.com/benaskins/tripwire/internal/keychain"
	"github.com/benaskins/tripwire/internal/sshconfig"
	"github.com/benaskins/tripwire/internal/state"
)

const actor = "cli"

func openStore() *state.Store {
	return state.NewStore(cfg.StateFile, state.WithLockOptions(cfg.LockOptions()))
}

// openAudit opens the audit log. The returned close func is always safe to
// call; if the log cannot be opened entries are dropped with a warning.
func openAudit() (audit.Recorder, func()) {
	l, err := audit.NewLogger(cfg.AuditLog)
	if err != nil {
		slog.Warn("audit log unavailable", "path", cfg.AuditLog, "error", err)
		return audit.Discard, func() {}
	}
	return l, func() { l.Close() }
}

func newDeployer(rec audit.Recorder) *deploy.Deployer {
	lock := cfg.LockOptions()
	return deploy.New(
		openStore(),
		awsconfig.NewSync(cfg.AWSDir, awsconfig.WithLockOptions(lock)),
		sshconfig.NewSync(cfg.SSHDir, sshconfig.WithLockOptions(lock)),
		deploy.WithAudit(rec, actor),
	)
}

func tokenStore(rec audit.Recorder) keychain.Store {
	return keychain.NewAuditedStore(keychain.Default(cfg.TokenFile), rec, actor)
}

package keychain

import (
	"fmt"
	"log/slog"

	"github.com/benaskins/tripwire/internal/audit"
)

// AuditedStore wraps a Store and records every access in the audit log.
// Values are never logged.
type AuditedStore struct {
	inner  Store
	audit  audit.Recorder
	actor  string // "cli" or "refresh"
	logger *slog.Logger
}

// NewAuditedStore wraps an existing store with audit logging.
func NewAuditedStore(inner Store, rec audit.Recorder, actor string) *AuditedStore {
	return &AuditedStore{
		inner:  inner,
		audit:  rec,
		actor:  actor,
		logger: slog.With("component", "keychain"),
	}
}

func (s *AuditedStore) Set(key, value string) error {
	if err := s.inner.Set(key, value); err != nil {
		return fmt.Errorf("audited store set: %w", err)
	}
	s.log(audit.ActionTokenWrite, key)
	return nil
}

func (s *AuditedStore) Get(key string) (string, error) {
	val, err := s.inner.Get(key)
	if err != nil {
		return "", fmt.Errorf("audited store get: %w", err)
	}
	s.log(audit.ActionTokenRead, key)
	return val, nil
}

func (s *AuditedStore) Delete(key string) error {
	if err := s.inner.Delete(key); err != nil {
		return fmt.Errorf("audited store delete: %w", err)
	}
	s.log(audit.ActionTokenDelete, key)
	return nil
}

// log is best-effort: a failure to log does not fail the operation.
func (s *AuditedStore) log(action audit.Action, key string) {
	if err := s.audit.Log(audit.Entry{Action: action, Name: key, Actor: s.actor}); err != nil {
		s.logger.Warn("audit log write failed", "action", action, "error", err)
	}
}

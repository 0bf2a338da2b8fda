package keychain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benaskins/tripwire/internal/audit"
)

func setupAuditedStore(t *testing.T) (*AuditedStore, string) {
	t.Helper()
	auditPath := filepath.Join(t.TempDir(), "audit.log")

	auditLog, err := audit.NewLogger(auditPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { auditLog.Close() })

	return NewAuditedStore(NewMemoryStore(), auditLog, "cli"), auditPath
}

func readAuditEntries(t *testing.T, path string) []audit.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entries []audit.Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e audit.Entry
		json.Unmarshal([]byte(line), &e)
		entries = append(entries, e)
	}
	return entries
}

func TestAuditedStoreLogsAccess(t *testing.T) {
	store, auditPath := setupAuditedStore(t)

	store.Set(TokenKey, "value")
	store.Get(TokenKey)
	store.Delete(TokenKey)

	entries := readAuditEntries(t, auditPath)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []audit.Action{audit.ActionTokenWrite, audit.ActionTokenRead, audit.ActionTokenDelete}
	for i, e := range entries {
		if e.Action != want[i] {
			t.Errorf("entry %d: expected %v, got %v", i, want[i], e.Action)
		}
		if e.Name != TokenKey || e.Actor != "cli" {
			t.Errorf("entry %d: unexpected %+v", i, e)
		}
	}

	data, _ := os.ReadFile(auditPath)
	if strings.Contains(string(data), "value") {
		t.Error("audit log contains the secret value")
	}
}

func TestAuditedStoreFailedGetNotLogged(t *testing.T) {
	store, auditPath := setupAuditedStore(t)

	if _, err := store.Get(TokenKey); err == nil {
		t.Fatal("expected error for missing token")
	}

	data, _ := os.ReadFile(auditPath)
	if len(strings.TrimSpace(string(data))) != 0 {
		t.Errorf("expected empty audit log, got %q", data)
	}
}

package keychain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Unit tests run against MemoryStore and FileStore; no macOS Keychain
// interaction needed.

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "tripwire", "credentials.json")),
	}
}

func TestSetAndGet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(TokenKey, "hello-world"); err != nil {
				t.Fatalf("Set: %v", err)
			}

			val, err := s.Get(TokenKey)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if val != "hello-world" {
				t.Errorf("expected 'hello-world', got %q", val)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(TokenKey)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSetOverwrites(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			s.Set(TokenKey, "first")
			s.Set(TokenKey, "second")

			val, err := s.Get(TokenKey)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if val != "second" {
				t.Errorf("expected 'second', got %q", val)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			s.Set(TokenKey, "to-delete")

			if err := s.Delete(TokenKey); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			_, err := s.Get(TokenKey)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestDeleteNonexistent(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Delete(TokenKey); err != nil {
				t.Errorf("Delete nonexistent: %v", err)
			}
		})
	}
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"token":"old","other":{"x":1}}`), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)

	val, err := s.Get(TokenKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "old" {
		t.Errorf("expected 'old', got %q", val)
	}

	if err := s.Set(TokenKey, "new"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "{\n  \"other\": {\n    \"x\": 1\n  },\n  \"token\": \"new\"\n}\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestFileStoreNullToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	os.WriteFile(path, []byte(`{"token":null}`), 0600)

	_, err := NewFileStore(path).Get(TokenKey)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	os.WriteFile(path, []byte(`{"token":`), 0600)
	s := NewFileStore(path)

	var corrupt *CorruptFileError
	if _, err := s.Get(TokenKey); !errors.As(err, &corrupt) {
		t.Fatalf("Get: expected CorruptFileError, got %v", err)
	}
	if err := s.Set(TokenKey, "x"); !errors.As(err, &corrupt) {
		t.Fatalf("Set: expected CorruptFileError, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != `{"token":` {
		t.Errorf("corrupt file was rewritten: %q", data)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	NewFileStore(path).Set(TokenKey, "secret")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

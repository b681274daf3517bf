package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, path string) *BoltCredentialStore {
	t.Helper()
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltCredentialStore_LoadWithoutSave_ReturnsEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "creds.db"))

	token, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty string", token)
	}
}

func TestBoltCredentialStore_SaveAndLoad_Roundtrip(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.Save("bearer-token-xyz"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "bearer-token-xyz" {
		t.Errorf("token = %q, want %q", token, "bearer-token-xyz")
	}
}

func TestBoltCredentialStore_Save_OverwritesExisting(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.Save("old-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("new-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "new-token" {
		t.Errorf("token = %q, want %q", token, "new-token")
	}
}

func TestBoltCredentialStore_Delete_RemovesCredential(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.Save("to-be-deleted"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty after delete", token)
	}
}

func TestBoltCredentialStore_Delete_WithoutSave_Succeeds(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "creds.db"))

	if err := s.Delete(); err != nil {
		t.Errorf("Delete on empty store should succeed, got %v", err)
	}
}

func TestBoltCredentialStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")

	s1, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s1.Save("persisted-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2 := openTestStore(t, path)
	token, err := s2.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "persisted-token" {
		t.Errorf("token = %q, want %q", token, "persisted-token")
	}
}

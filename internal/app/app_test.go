package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://localhost:8000")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.BackendBaseURL != "http://localhost:8000" {
		t.Errorf("BackendBaseURL = %q, want http://localhost:8000", cfg.BackendBaseURL)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestRun_Help_PrintsUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"help"}); err != nil {
		t.Fatalf("Run(help) failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Usage:") {
		t.Errorf("usage output missing Usage section:\n%s", out)
	}
	for _, sub := range []string{"analyze", "login", "logout", "set-key", "profile", "status", "watch"} {
		if !strings.Contains(out, sub) {
			t.Errorf("usage output missing subcommand %q", sub)
		}
	}
}

func TestRun_NoArgs_PrintsUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{}); err != nil {
		t.Fatalf("Run([]) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Usage:") {
		t.Error("expected usage output for empty args")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"logout"}); err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_Analyze_WithoutFileArg_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"analyze"})
	if err == nil {
		t.Fatal("Run(analyze) without file should return error")
	}
	if !strings.Contains(err.Error(), "file path is required") {
		t.Errorf("error = %q, want file path requirement", err)
	}
}

func TestRun_Login_WithoutCredential_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"login"})
	if err == nil {
		t.Fatal("Run(login) without credential should return error")
	}
}

func TestRun_Logout_WithoutSession_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"logout"}); err != nil {
		t.Fatalf("Run(logout) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "logged out") {
		t.Errorf("output = %q, want logged out confirmation", buf.String())
	}
}

func TestRun_Profile_WithoutSession_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"profile"})
	if err == nil {
		t.Fatal("Run(profile) without session should return error")
	}
}

func TestRun_SetKey_WithoutSession_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"set-key", "AIza-test"})
	if err == nil {
		t.Fatal("Run(set-key) without session should return error")
	}
}

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BACKEND_BASE_URL", "http://localhost:8000")
	t.Setenv("CREDENTIALS_PATH", filepath.Join(t.TempDir(), "letterlens.db"))
}

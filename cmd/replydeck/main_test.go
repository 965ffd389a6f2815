package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/replydeck/internal/model"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	out, err := run(t, "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected output %q", out)
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.StoreDriver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.Server.StoreDriver)
	}

	if _, err := run(t, "--config", path, "config", "init"); err == nil {
		t.Fatalf("second init without --force should fail")
	}
	if _, err := run(t, "--config", path, "config", "init", "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

func TestCredentialKey(t *testing.T) {
	if _, err := credentialKey("slack"); err == nil {
		t.Fatalf("expected error for unknown credential")
	}
	if key, err := credentialKey("gemini"); err != nil || key == "" {
		t.Fatalf("gemini: %q %v", key, err)
	}
}

func TestBadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", path, "config", "init", "--force"); err == nil {
		t.Fatalf("expected parse error")
	}
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSession_WatchReloadsExternalRewrite(t *testing.T) {
	dir := t.TempDir()
	credPath := filepath.Join(dir, "credentials.json")

	cfgYAML := fmt.Sprintf(`provider:
  issuerUrl: https://issuer.example.com
  clientId: test-client
storage:
  path: %s
  watch: true
`, credPath)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	oldConfigPath := configPath
	configPath = dir
	defer func() { configPath = oldConfigPath }()

	s, err := newSession()
	if err != nil {
		t.Fatalf("newSession() failed: %v", err)
	}
	defer s.Close()

	if s.store.Current() != nil {
		t.Fatal("expected an empty store before the external write")
	}

	// Another process replaces the record the same way the store itself
	// does: write a temp file, then rename over the slot.
	record := `{"accessToken":"external-token","expiresAt":"2030-01-01T00:00:00Z"}`
	tmp := credPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(record), 0600); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}
	if err := os.Rename(tmp, credPath); err != nil {
		t.Fatalf("failed to replace record: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ts := s.store.Current(); ts != nil && ts.AccessToken == "external-token" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("store did not pick up the externally rewritten credentials")
}

func TestNewSession_NoWatchByDefault(t *testing.T) {
	dir := t.TempDir()

	cfgYAML := fmt.Sprintf(`provider:
  issuerUrl: https://issuer.example.com
  clientId: test-client
storage:
  path: %s
`, filepath.Join(dir, "credentials.json"))
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	oldConfigPath := configPath
	configPath = dir
	defer func() { configPath = oldConfigPath }()

	s, err := newSession()
	if err != nil {
		t.Fatalf("newSession() failed: %v", err)
	}
	defer s.Close()

	if s.watchCancel != nil {
		t.Error("watcher should not run unless storage.watch is set")
	}
}

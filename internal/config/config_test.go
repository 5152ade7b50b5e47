package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secretStore interface.
type mockSecrets struct {
	value string
	err   error
}

func (m mockSecrets) Get(service, account string) (string, error) {
	return m.value, m.err
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMSEARCH_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearKeyEnv(t)
	b := writeTempConfig(t, "")

	cfg, err := loadWith(b, mockSecrets{err: errors.New("none")}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini.Model = %q, want %q", cfg.Gemini.Model, "gemini-2.0-flash")
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Sync.Concurrency != 1 {
		t.Errorf("Sync.Concurrency = %d, want 1", cfg.Sync.Concurrency)
	}
	if cfg.Sync.DefaultMIMEType != "text/plain" {
		t.Errorf("Sync.DefaultMIMEType = %q, want text/plain", cfg.Sync.DefaultMIMEType)
	}
	if got := cfg.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", got)
	}
	if got := cfg.ProcessingTimeout(); got != 10*time.Minute {
		t.Errorf("ProcessingTimeout() = %v, want 10m", got)
	}
	if cfg.Chat.DefaultDir != "knowledge_base" {
		t.Errorf("Chat.DefaultDir = %q, want knowledge_base", cfg.Chat.DefaultDir)
	}
}

// TestMissingAPIKeyIsNotALoadError verifies Load succeeds and RequireAPIKey reports the gap.
func TestMissingAPIKeyIsNotALoadError(t *testing.T) {
	clearKeyEnv(t)
	b := writeTempConfig(t, "# empty config\n")

	cfg, err := loadWith(b, mockSecrets{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cfg.RequireAPIKey()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("RequireAPIKey() = %v, want ErrMissingAPIKey", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("error = %q, want it to mention GEMINI_API_KEY", err.Error())
	}
}

func TestPlaceholderAPIKeyRejected(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "YOUR_API_KEY_HERE"
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected error for placeholder key")
	}
}

// TestYAMLParsing verifies that fields are read from the YAML file.
func TestYAMLParsing(t *testing.T) {
	clearKeyEnv(t)
	b := writeTempConfig(t, `
gemini.model: gemini-1.5-pro
server.port: 5000
sync.poll_interval: 500ms
sync.concurrency: 4
storage.data_dir: /tmp/gemsearch-test
log.json: true
`)

	cfg, err := loadWith(b, mockSecrets{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if got := cfg.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 500ms", got)
	}
	if cfg.Sync.Concurrency != 4 {
		t.Errorf("Sync.Concurrency = %d, want 4", cfg.Sync.Concurrency)
	}
	if cfg.Storage.DataDir != "/tmp/gemsearch-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON = false, want true")
	}
}

// TestEnvOverride verifies that environment variables override file values.
func TestEnvOverride(t *testing.T) {
	clearKeyEnv(t)
	b := writeTempConfig(t, "server.port: 5000\n")

	t.Setenv("GEMSEARCH_SERVER_PORT", "6000")
	t.Setenv("GEMSEARCH_API_KEY", "env-key")

	cfg, err := loadWith(b, mockSecrets{value: "secret-key"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "env-key")
	}
}

func TestGeminiAPIKeyAlias(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "alias-key")

	cfg, err := loadWith(writeTempConfig(t, ""), mockSecrets{value: "secret-key"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "alias-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "alias-key")
	}
}

// TestSecretsFallback verifies the secrets file is consulted when no key is in the environment.
func TestSecretsFallback(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := loadWith(writeTempConfig(t, ""), mockSecrets{value: "stored-secret"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "stored-secret" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "stored-secret")
	}
}

func TestDotEnvFile(t *testing.T) {
	clearKeyEnv(t)
	os.Unsetenv("GEMSEARCH_GEMINI_MODEL")
	t.Cleanup(func() { os.Unsetenv("GEMSEARCH_GEMINI_MODEL") })

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("GEMSEARCH_GEMINI_MODEL=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadWith(writeTempConfig(t, ""), mockSecrets{}, envFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.Model != "from-dotenv" {
		t.Errorf("Gemini.Model = %q, want %q", cfg.Gemini.Model, "from-dotenv")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	cfg := defaults()
	cfg.Sync.PollInterval = "soon"
	cfg.Sync.ProcessingTimeout = "0"

	if got := cfg.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", got)
	}
	if got := cfg.ProcessingTimeout(); got != 0 {
		t.Errorf("ProcessingTimeout() = %v, want 0 (unbounded)", got)
	}
}

func TestSetKey(t *testing.T) {
	b := writeTempConfig(t, "")

	if err := setKeyIn(b, "sync.concurrency", "3"); err != nil {
		t.Fatalf("setKeyIn: %v", err)
	}
	if err := setKeyIn(b, "log.json", "yes"); err == nil {
		t.Error("expected error for invalid bool")
	}
	if err := setKeyIn(b, "gemini.api_key", "x"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := setKeyIn(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	reloaded := newFileBackend(b.path)
	v, ok, err := reloaded.GetInt("sync.concurrency")
	if err != nil || !ok || v != 3 {
		t.Errorf("GetInt(sync.concurrency) = %d, %v, %v; want 3, true, nil", v, ok, err)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "super-secret"
	for _, k := range ShowAll(cfg) {
		if k.Key == "gemini.api_key" || k.Value == "super-secret" {
			t.Fatalf("ShowAll leaked secret: %+v", k)
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Gemini  GeminiConfig
	Server  ServerConfig
	Sync    SyncConfig
	Chat    ChatConfig
	Storage StorageConfig
	Log     LogConfig
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type ServerConfig struct {
	Port        int
	MaxConns    int
	MaxUploadMB int
}

type SyncConfig struct {
	PollInterval      string
	ProcessingTimeout string
	MaxPollAttempts   int
	Concurrency       int
	DefaultMIMEType   string
	IgnoreFile        string
}

type ChatConfig struct {
	DefaultQuestion string
	DefaultDir      string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

const (
	defaultPollInterval      = 2 * time.Second
	defaultProcessingTimeout = 10 * time.Minute
)

func defaults() Config {
	return Config{
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Server: ServerConfig{
			Port:        3000,
			MaxConns:    256,
			MaxUploadMB: 50,
		},
		Sync: SyncConfig{
			PollInterval:      defaultPollInterval.String(),
			ProcessingTimeout: defaultProcessingTimeout.String(),
			Concurrency:       1,
			DefaultMIMEType:   "text/plain",
			IgnoreFile:        ".gemsearchignore",
		},
		Chat: ChatConfig{
			DefaultQuestion: "What is the summary of these documents?",
			DefaultDir:      "knowledge_base",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ErrMissingAPIKey is returned by RequireAPIKey when no credential was found.
var ErrMissingAPIKey = errors.New("missing required config: Gemini API key")

// Load reads configuration from the YAML file backend, a .env file in the
// working directory, GEMSEARCH_* environment variables and the secrets file.
//
// A missing API key is not an error here: the web server receives credentials
// per request. CLI modes that talk to the provider call RequireAPIKey.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), secretsReader{}, ".env")
}

// secretStore abstracts secrets file access for testing.
type secretStore interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretStore, envFile string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		// godotenv never overrides variables already present in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read %s: %v\n", envFile, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if cfg.Gemini.APIKey == "" {
		if key, err := secrets.Get(secretsService, secretsAPIKeyAccount); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	return cfg, nil
}

// RequireAPIKey returns ErrMissingAPIKey (with a hint) when no key is configured.
func (c Config) RequireAPIKey() error {
	if c.Gemini.APIKey != "" && c.Gemini.APIKey != "YOUR_API_KEY_HERE" {
		return nil
	}
	return fmt.Errorf("%w. Set GEMINI_API_KEY (or GEMSEARCH_API_KEY) in the environment or a .env file, "+
		"or run `gemsearch config set-key <key>`", ErrMissingAPIKey)
}

// PollInterval returns sync.poll_interval, falling back to 2s when invalid.
func (c Config) PollInterval() time.Duration {
	if d := parseDuration("sync.poll_interval", c.Sync.PollInterval, defaultPollInterval); d > 0 {
		return d
	}
	return defaultPollInterval
}

// ProcessingTimeout returns sync.processing_timeout. Zero disables the bound.
func (c Config) ProcessingTimeout() time.Duration {
	return parseDuration("sync.processing_timeout", c.Sync.ProcessingTimeout, defaultProcessingTimeout)
}

func parseDuration(key, raw string, fallback time.Duration) time.Duration {
	if raw == "" || raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

// secretsReader reads the API key from the local secrets file.
type secretsReader struct{}

func (secretsReader) Get(service, account string) (string, error) {
	out, err := secretsGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "gemini.api_key", typ: kString, env: "GEMSEARCH_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "GEMSEARCH_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.base_url", typ: kString, env: "GEMSEARCH_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "server.port", typ: kInt, env: "GEMSEARCH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, env: "GEMSEARCH_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "server.max_upload_mb", typ: kInt, env: "GEMSEARCH_SERVER_MAX_UPLOAD_MB",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxUploadMB = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxUploadMB },
	},
	{
		key: "sync.poll_interval", typ: kString, env: "GEMSEARCH_SYNC_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Sync.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.PollInterval },
	},
	{
		key: "sync.processing_timeout", typ: kString, env: "GEMSEARCH_SYNC_PROCESSING_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Sync.ProcessingTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.ProcessingTimeout },
	},
	{
		key: "sync.max_poll_attempts", typ: kInt, env: "GEMSEARCH_SYNC_MAX_POLL_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Sync.MaxPollAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Sync.MaxPollAttempts },
	},
	{
		key: "sync.concurrency", typ: kInt, env: "GEMSEARCH_SYNC_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Sync.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Sync.Concurrency },
	},
	{
		key: "sync.default_mime_type", typ: kString, env: "GEMSEARCH_SYNC_DEFAULT_MIME_TYPE",
		apply:   func(cfg *Config, v any) { cfg.Sync.DefaultMIMEType = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.DefaultMIMEType },
	},
	{
		key: "sync.ignore_file", typ: kString, env: "GEMSEARCH_SYNC_IGNORE_FILE",
		apply:   func(cfg *Config, v any) { cfg.Sync.IgnoreFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.IgnoreFile },
	},
	{
		key: "chat.default_question", typ: kString, env: "GEMSEARCH_CHAT_DEFAULT_QUESTION",
		apply:   func(cfg *Config, v any) { cfg.Chat.DefaultQuestion = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.DefaultQuestion },
	},
	{
		key: "chat.default_dir", typ: kString, env: "GEMSEARCH_CHAT_DEFAULT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Chat.DefaultDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.DefaultDir },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GEMSEARCH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "GEMSEARCH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "GEMSEARCH_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
	{
		key: "log.json", typ: kBool, env: "GEMSEARCH_LOG_JSON",
		apply:   func(cfg *Config, v any) { cfg.Log.JSON = v.(bool) },
		extract: func(cfg Config) any { return cfg.Log.JSON },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// account is the keychain account name for a secret key.
func (s keySpec) account() string {
	return strings.ReplaceAll(s.key, ".", "_")
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "PLUGVOX_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PLUGVOX_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.webhook_token", typ: kString, env: "PLUGVOX_SERVER_WEBHOOK_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.WebhookToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.WebhookToken },
	},
	{
		key: "server.cookie_secret", typ: kString, env: "PLUGVOX_SERVER_COOKIE_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.CookieSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.CookieSecret },
	},
	{
		key: "openai.api_key", typ: kString, env: "PLUGVOX_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "PLUGVOX_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.intent_model", typ: kString, env: "PLUGVOX_OPENAI_INTENT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.IntentModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.IntentModel },
	},
	{
		key: "openai.transcribe_model", typ: kString, env: "PLUGVOX_OPENAI_TRANSCRIBE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.TranscribeModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.TranscribeModel },
	},
	{
		key: "openai.timeout", typ: kDuration, env: "PLUGVOX_OPENAI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.OpenAI.Timeout },
	},
	{
		key: "cloud.base_url", typ: kString, env: "PLUGVOX_CLOUD_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Cloud.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Cloud.BaseURL },
	},
	{
		key: "cloud.email", typ: kString, env: "PLUGVOX_CLOUD_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Cloud.Email = v.(string) },
		extract: func(cfg Config) any { return cfg.Cloud.Email },
	},
	{
		key: "cloud.password", typ: kString, env: "PLUGVOX_CLOUD_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Cloud.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Cloud.Password },
	},
	{
		key: "cloud.timeout", typ: kDuration, env: "PLUGVOX_CLOUD_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Cloud.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Cloud.Timeout },
	},
	{
		key: "devices.default_name", typ: kString, env: "PLUGVOX_DEVICES_DEFAULT_NAME",
		apply:   func(cfg *Config, v any) { cfg.Devices.DefaultName = v.(string) },
		extract: func(cfg Config) any { return cfg.Devices.DefaultName },
	},
	{
		key: "devices.type_filter", typ: kString, env: "PLUGVOX_DEVICES_TYPE_FILTER",
		apply:   func(cfg *Config, v any) { cfg.Devices.TypeFilter = v.(string) },
		extract: func(cfg Config) any { return cfg.Devices.TypeFilter },
	},
	{
		key: "proxy.socks_addr", typ: kString, env: "PLUGVOX_PROXY_SOCKS_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Proxy.SocksAddr = v.(string) },
		extract: func(cfg Config) any { return cfg.Proxy.SocksAddr },
	},
	{
		key: "log.level", typ: kString, env: "PLUGVOX_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "PLUGVOX_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "log.file", typ: kString, env: "PLUGVOX_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
}

// parse converts a raw backend or environment value to the key's type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %q", s.key, raw)
		}
		return i, nil
	case kDuration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid duration value for %s: %q", s.key, raw)
		}
		return d, nil
	default:
		return raw, nil
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// applyBackend copies non-secret values from b. Unparsable values keep the
// default and are reported through cfg.notes.
func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Lookup(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			cfg.notes = append(cfg.notes, err.Error()+"; using default")
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			cfg.notes = append(cfg.notes, fmt.Sprintf("%s: %v; using default", s.env, err))
			continue
		}
		s.apply(cfg, v)
	}
}

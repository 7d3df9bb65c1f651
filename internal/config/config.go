package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// secretService is the service name secrets are stored under.
const secretService = "plugvox"

type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Cloud   CloudConfig
	Devices DevicesConfig
	Proxy   ProxyConfig
	Log     LogConfig

	notes []string // problems found while loading
}

type ServerConfig struct {
	Host         string
	Port         int
	WebhookToken string
	CookieSecret string
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	IntentModel     string
	TranscribeModel string
	Timeout         time.Duration
}

type CloudConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

type DevicesConfig struct {
	DefaultName string
	TypeFilter  string
}

type ProxyConfig struct {
	SocksAddr string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		OpenAI: OpenAIConfig{
			IntentModel:     "gpt-4o-mini",
			TranscribeModel: "whisper-1",
			Timeout:         30 * time.Second,
		},
		Cloud: CloudConfig{
			BaseURL: "http://localhost:8765",
			Timeout: 15 * time.Second,
		},
		Devices: DevicesConfig{
			DefaultName: "Living Room",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file,
// environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.plugvox.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/plugvox/config.json
// and secrets fall back to $XDG_DATA_HOME/plugvox/secrets.json.
//
// envFile is loaded first without overriding variables already set; a missing
// file is ignored. Environment variables (PLUGVOX_*) override backend values.
// Missing secrets do not fail Load; see Warnings.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return loadWith(newPlatformBackend(), newSecretStore())
}

func loadWith(b Backend, secrets SecretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Secrets still empty fall back to the secret store.
	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := secrets.Secret(s.account()); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	return cfg, nil
}

// Warnings describes invalid values that were ignored and missing settings
// that will make some operations fail.
func Warnings(cfg Config) []string {
	out := append([]string(nil), cfg.notes...)
	if cfg.OpenAI.APIKey == "" {
		out = append(out, "OpenAI API key not set; voice and webhook commands will fail. "+
			"Set PLUGVOX_OPENAI_API_KEY"+secretHint("openai_api_key"))
	}
	if cfg.Cloud.Email == "" || cfg.Cloud.Password == "" {
		out = append(out, "smart-plug account not set; visit /login or set PLUGVOX_CLOUD_EMAIL and PLUGVOX_CLOUD_PASSWORD")
	}
	return out
}

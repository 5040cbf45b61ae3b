package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces every environment override, e.g. PULSEDASH_SERVER_PORT.
const EnvPrefix = "PULSEDASH_"

// ConfigPathEnvVar overrides where the YAML file is looked up.
const ConfigPathEnvVar = "PULSEDASH_CONFIG"

var defaultConfigPaths = []string{"config.yaml", "config.yml", "/etc/pulsedash/config.yaml"}

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Sheets     SheetsConfig     `koanf:"sheets"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Places     PlacesConfig     `koanf:"places"`
	Log        LogConfig        `koanf:"log"`
}

type ServerConfig struct {
	Port        string        `koanf:"port"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	RateLimit   int           `koanf:"rate_limit"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

type SheetsConfig struct {
	BaseURL        string        `koanf:"base_url"`
	TTL            time.Duration `koanf:"ttl"`
	SessionTTL     time.Duration `koanf:"session_ttl"`
	SummaryMarkers []string      `koanf:"summary_markers"`
}

type ClassifierConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	TTL     time.Duration `koanf:"ttl"`
}

type PlacesConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	RPS        float64       `koanf:"rps"`
	ReviewsTTL time.Duration `koanf:"reviews_ttl"`
	SearchTTL  time.Duration `koanf:"search_ttl"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			HTTPTimeout: 30 * time.Second,
			RateLimit:   60,
			CORSOrigins: []string{"*"},
		},
		Sheets: SheetsConfig{
			BaseURL:    "https://docs.google.com",
			TTL:        5 * time.Minute,
			SessionTTL: 30 * time.Minute,
		},
		Classifier: ClassifierConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4.1",
			TTL:     6 * time.Hour,
		},
		Places: PlacesConfig{
			BaseURL:    "https://places.googleapis.com",
			RPS:        5,
			ReviewsTTL: 3 * time.Hour,
			SearchTTL:  time.Hour,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load layers configuration: struct defaults, then an optional YAML file,
// then PULSEDASH_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps PULSEDASH_SERVER_HTTP_TIMEOUT to server.http_timeout: the
// first underscore separates the section, the rest stays joined.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"sheets.ttl":         c.Sheets.TTL,
		"sheets.session_ttl": c.Sheets.SessionTTL,
		"classifier.ttl":     c.Classifier.TTL,
		"places.reviews_ttl": c.Places.ReviewsTTL,
		"places.search_ttl":  c.Places.SearchTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Classifier.TTL != 6*time.Hour {
		t.Errorf("classifier ttl = %v", cfg.Classifier.TTL)
	}
	if cfg.Places.ReviewsTTL != 3*time.Hour {
		t.Errorf("reviews ttl = %v", cfg.Places.ReviewsTTL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9000\"\nlog:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PULSEDASH_SERVER_PORT", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9001" {
		t.Errorf("env must win over file, port = %q", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("file value lost, level = %q", cfg.Log.Level)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"PULSEDASH_SERVER_PORT":        "server.port",
		"PULSEDASH_CLASSIFIER_API_KEY": "classifier.api_key",
		"PULSEDASH_SHEETS_SESSION_TTL": "sheets.session_ttl",
		"PULSEDASH_PLACES_REVIEWS_TTL": "places.reviews_ttl",
	}
	for in, want := range cases {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := defaults()
	cfg.Classifier.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

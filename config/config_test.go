package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FOUNDRY_PROJECT_ENDPOINT", "FOUNDRY_API_VERSION", "MODEL_DEPLOYMENT_NAME",
		"FOUNDRY_HTTP_TIMEOUT_SECONDS", "SEED_DATA_DIR", "STATE_STORE", "STATE_LOCAL_PATH",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "JOB_DATA_DIR",
		"ALLOW_HTML_DOWNLOAD", "HTML_DOWNLOAD_API_KEY", "CORS_ALLOWED_ORIGINS", "LISTEN_ADDR",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("FOUNDRY_PROJECT_ENDPOINT", "https://example.openai.azure.com")
	os.Setenv("MODEL_DEPLOYMENT_NAME", "gpt-test")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FoundryAPIVersion != "2025-11-15-preview" {
		t.Fatalf("got %q", cfg.FoundryAPIVersion)
	}
	if cfg.FoundryHTTPTimeoutSecs != 600 {
		t.Fatalf("got %d", cfg.FoundryHTTPTimeoutSecs)
	}
	if cfg.SeedDataDir != "seed-data" {
		t.Fatalf("got %q", cfg.SeedDataDir)
	}
	if cfg.StateStore != "local" {
		t.Fatalf("got %q", cfg.StateStore)
	}
	if cfg.JobDataDir != "data/jobs" {
		t.Fatalf("got %q", cfg.JobDataDir)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error when required fields are absent")
	}
}

func TestLoadRejectsTimeoutOutOfRange(t *testing.T) {
	clearEnv(t)
	os.Setenv("FOUNDRY_PROJECT_ENDPOINT", "https://example.openai.azure.com")
	os.Setenv("MODEL_DEPLOYMENT_NAME", "gpt-test")
	os.Setenv("FOUNDRY_HTTP_TIMEOUT_SECONDS", "5")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for timeout below range")
	}
}

func TestLoadParsesCORSOrigins(t *testing.T) {
	clearEnv(t)
	os.Setenv("FOUNDRY_PROJECT_ENDPOINT", "https://example.openai.azure.com")
	os.Setenv("MODEL_DEPLOYMENT_NAME", "gpt-test")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("got %v", cfg.CORSAllowedOrigins)
	}
}

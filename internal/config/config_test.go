package config

import (
	"strings"
	"testing"

	"github.com/dvloznov/geminifin/internal/ai"
)

func validConfig() Config {
	return Config{
		Port:          "8080",
		LogLevel:      "info",
		LogFormat:     "console",
		StoreBackend:  BackendSQLite,
		SQLiteDBPath:  "./data/test.db",
		ScanWorkers:   2,
		ScanQueueSize: 10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid sqlite backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid memory backend",
			mutate:  func(c *Config) { c.StoreBackend = BackendMemory; c.SQLiteDBPath = "" },
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "unknown backend",
			mutate:      func(c *Config) { c.StoreBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid store backend 'postgres'",
		},
		{
			name:        "sqlite without path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "gcs without bucket",
			mutate:      func(c *Config) { c.StoreBackend = BackendGCS },
			wantErr:     true,
			errorString: "GCS_BUCKET is required",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "zero workers",
			mutate:      func(c *Config) { c.ScanWorkers = 0 },
			wantErr:     true,
			errorString: "invalid scan workers 0",
		},
		{
			name:        "notion token without database",
			mutate:      func(c *Config) { c.NotionToken = "secret" },
			wantErr:     true,
			errorString: "NOTION_TOKEN and NOTION_DB_ID must be set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.StoreBackend = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := strings.Count(err.Error(), "\n- "); got != 2 {
		t.Errorf("expected 2 listed errors, got %d: %v", got, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "GEMINI_MODEL", "GEMINI_API_KEY", "GOOGLE_API_KEY", "SCAN_WORKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.GeminiModel != ai.DefaultModelName {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.AIEnabled() {
		t.Error("AI should be disabled without an API key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "ledger-bucket")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "fallback-key")
	t.Setenv("SCAN_WORKERS", "not-a-number")

	cfg := Load()
	if cfg.Port != "9090" || cfg.StoreBackend != BackendGCS || cfg.GCSBucket != "ledger-bucket" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.GeminiAPIKey != "fallback-key" {
		t.Errorf("GeminiAPIKey = %q, want GOOGLE_API_KEY fallback", cfg.GeminiAPIKey)
	}
	if cfg.ScanWorkers != 2 {
		t.Errorf("ScanWorkers = %d, want default on parse failure", cfg.ScanWorkers)
	}
}

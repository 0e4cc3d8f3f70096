package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dvloznov/geminifin/internal/ai"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger storage
	StoreBackend    string
	SQLiteDBPath    string
	GCSBucket       string
	GCSLedgerPrefix string

	// Receipt uploads; empty keeps images inline with the scan job
	ReceiptBucket string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// BigQuery export
	GCPProject string
	BQDataset  string

	// Notion sync
	NotionToken string
	NotionDBID  string

	// Receipt scan workers
	ScanWorkers   int
	ScanQueueSize int
}

// Load reads the configuration from the environment. Call godotenv.Load
// first to pick up a .env file.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StoreBackend:    getEnv("STORE_BACKEND", BackendSQLite),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/geminifin.db"),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		GCSLedgerPrefix: getEnv("GCS_LEDGER_PREFIX", "ledger"),

		ReceiptBucket: getEnv("RECEIPT_BUCKET", ""),

		// GOOGLE_API_KEY is what the genai SDK itself falls back to.
		GeminiAPIKey: getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:  getEnv("GEMINI_MODEL", ai.DefaultModelName),

		GCPProject: getEnv("GCP_PROJECT", ""),
		BQDataset:  getEnv("BQ_DATASET", "finance"),

		NotionToken: getEnv("NOTION_TOKEN", ""),
		NotionDBID:  getEnv("NOTION_DB_ID", ""),

		ScanWorkers:   getEnvInt("SCAN_WORKERS", 2),
		ScanQueueSize: getEnvInt("SCAN_QUEUE_SIZE", 100),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'console' or 'json'", c.LogFormat))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v",
			c.StoreBackend, []string{BackendMemory, BackendSQLite, BackendGCS}))
	}

	if c.ScanWorkers < 1 || c.ScanWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid scan workers %d: must be between 1 and 64", c.ScanWorkers))
	}
	if c.ScanQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid scan queue size %d: must be at least 1", c.ScanQueueSize))
	}

	if (c.NotionToken == "") != (c.NotionDBID == "") {
		errors = append(errors, "NOTION_TOKEN and NOTION_DB_ID must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AIEnabled reports whether a Gemini API key is configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// BigQueryEnabled reports whether ledger export has a project to write to.
func (c *Config) BigQueryEnabled() bool {
	return c.GCPProject != "" && c.BQDataset != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

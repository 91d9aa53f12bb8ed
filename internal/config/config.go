// Package config provides configuration management for recall.
// Settings come from three layers: built-in defaults, an optional YAML
// file, and environment variables with the RECALL_ prefix. Later layers
// override earlier ones.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the recall service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Provider      ProviderConfig      `yaml:"provider"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Backup        BackupConfig        `yaml:"backup"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7070)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// Engine selects the store backend: memory, sqlite, or postgres
	// (default: sqlite).
	Engine string `yaml:"engine"`
	// DataPath is the directory holding the SQLite database file
	// (default: ./data).
	DataPath string `yaml:"data_path"`
	// PostgresDSN is the connection string for the postgres engine.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ProviderConfig contains generation provider configuration.
type ProviderConfig struct {
	// Preferred names the provider routing should favor when the privacy
	// policy allows it: ollama, openai, or anthropic.
	Preferred string `yaml:"preferred"`

	OllamaURL   string `yaml:"ollama_url"`   // default: http://localhost:11434
	OllamaModel string `yaml:"ollama_model"` // default: qwen2.5:7b

	// OllamaEmbedModel is the embedding model feeding vector note search on
	// the postgres engine (default: nomic-embed-text).
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"` // default: gpt-4o-mini

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`

	// AllowCloudPersonalData declares that the cloud deployments are
	// cleared to receive personal content. Off by default; routing then
	// keeps anything personal on device.
	AllowCloudPersonalData bool `yaml:"allow_cloud_personal_data"`
}

// ConsolidationConfig tunes the background consolidation sweeps.
type ConsolidationConfig struct {
	// Interval between sweeps (default: 1h). Zero disables the scheduler.
	Interval time.Duration `yaml:"interval"`
	// PromotionThreshold is the minimum short-term age before promotion
	// (default: 24h).
	PromotionThreshold time.Duration `yaml:"promotion_threshold"`
	// MinImportance is the promotion floor for uncorroborated entries
	// (default: 0.5).
	MinImportance float64 `yaml:"min_importance"`
}

// IngestConfig configures the filesystem ingestion inbox.
type IngestConfig struct {
	// WatchDir is a directory watched for dropped note files. Empty
	// disables the watcher.
	WatchDir string `yaml:"watch_dir"`
}

// BackupConfig configures SQLite snapshot scheduling. It only applies to
// the sqlite storage engine.
type BackupConfig struct {
	// Dir is the snapshot directory. Empty disables scheduled backups.
	Dir string `yaml:"dir"`
	// Interval between scheduled snapshots (default: 6h).
	Interval time.Duration `yaml:"interval"`
	// Verify runs an integrity check on each snapshot (default: true).
	Verify bool `yaml:"verify"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and RECALL_-prefixed environment variables, in that order. An empty
// path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	switch c.Storage.Engine {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: postgres engine requires postgres_dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	switch c.Provider.Preferred {
	case "", "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown preferred provider %q", c.Provider.Preferred)
	}
	if c.Consolidation.MinImportance < 0 || c.Consolidation.MinImportance > 1 {
		return fmt.Errorf("config: min_importance %v out of range", c.Consolidation.MinImportance)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7070,
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			Engine:   "sqlite",
			DataPath: "./data",
		},
		Provider: ProviderConfig{
			OllamaURL:        "http://localhost:11434",
			OllamaModel:      "qwen2.5:7b",
			OllamaEmbedModel: "nomic-embed-text",
			OpenAIModel:      "gpt-4o-mini",
			AnthropicModel:   "claude-haiku-4-5-20251001",
		},
		Consolidation: ConsolidationConfig{
			Interval:           time.Hour,
			PromotionThreshold: 24 * time.Hour,
			MinImportance:      0.5,
		},
		Backup: BackupConfig{
			Interval: 6 * time.Hour,
			Verify:   true,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("RECALL_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("RECALL_HOST", cfg.Server.Host)

	cfg.Storage.Engine = getEnv("RECALL_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("RECALL_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresDSN = getEnv("RECALL_POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.Provider.Preferred = getEnv("RECALL_PROVIDER", cfg.Provider.Preferred)
	cfg.Provider.OllamaURL = getEnv("RECALL_OLLAMA_URL", cfg.Provider.OllamaURL)
	cfg.Provider.OllamaModel = getEnv("RECALL_OLLAMA_MODEL", cfg.Provider.OllamaModel)
	cfg.Provider.OllamaEmbedModel = getEnv("RECALL_OLLAMA_EMBED_MODEL", cfg.Provider.OllamaEmbedModel)
	cfg.Provider.OpenAIAPIKey = getEnv("RECALL_OPENAI_API_KEY", cfg.Provider.OpenAIAPIKey)
	cfg.Provider.OpenAIModel = getEnv("RECALL_OPENAI_MODEL", cfg.Provider.OpenAIModel)
	cfg.Provider.AnthropicAPIKey = getEnv("RECALL_ANTHROPIC_API_KEY", cfg.Provider.AnthropicAPIKey)
	cfg.Provider.AnthropicModel = getEnv("RECALL_ANTHROPIC_MODEL", cfg.Provider.AnthropicModel)
	cfg.Provider.AllowCloudPersonalData = getEnvBool("RECALL_ALLOW_CLOUD_PERSONAL_DATA", cfg.Provider.AllowCloudPersonalData)

	cfg.Consolidation.Interval = getEnvDuration("RECALL_CONSOLIDATION_INTERVAL", cfg.Consolidation.Interval)
	cfg.Consolidation.PromotionThreshold = getEnvDuration("RECALL_PROMOTION_THRESHOLD", cfg.Consolidation.PromotionThreshold)
	cfg.Consolidation.MinImportance = getEnvFloat("RECALL_MIN_IMPORTANCE", cfg.Consolidation.MinImportance)

	cfg.Ingest.WatchDir = getEnv("RECALL_WATCH_DIR", cfg.Ingest.WatchDir)

	cfg.Backup.Dir = getEnv("RECALL_BACKUP_DIR", cfg.Backup.Dir)
	cfg.Backup.Interval = getEnvDuration("RECALL_BACKUP_INTERVAL", cfg.Backup.Interval)
	cfg.Backup.Verify = getEnvBool("RECALL_BACKUP_VERIFY", cfg.Backup.Verify)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "30m") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

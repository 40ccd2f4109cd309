package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	Ingest      IngestConfig     `json:"ingest"`
	Query       QueryConfig      `json:"query"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Jobs        JobsConfig       `json:"jobs"`
	CORSOrigins []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIEndpointConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Generate        []AIEndpointConfig `json:"generate"`
	Embed           []AIEndpointConfig `json:"embed"`
	EmbedDim        int                `json:"embed_dim"`
	Timeout         int                `json:"timeout"`
	MaxInputChars   int                `json:"max_input_chars"`
	CacheSize       int                `json:"cache_size"`
	CacheTTLMinutes int                `json:"cache_ttl_minutes"`
}

type IngestConfig struct {
	ChunkMaxChars    int   `json:"chunk_max_chars"`
	MaxUploadSize    int64 `json:"max_upload_size"`
	EmbedConcurrency int   `json:"embed_concurrency"`
}

type QueryConfig struct {
	DefaultLimit       int `json:"default_limit"`
	MaxLimit           int `json:"max_limit"`
	ContextMaxChars    int `json:"context_max_chars"`
	AskIntervalSeconds int `json:"ask_interval_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	BackfillSpec     string `json:"backfill_spec"`
	BackfillBatch    int    `json:"backfill_batch"`
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
	CacheKeepDays    int    `json:"cache_keep_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate applies defaults and rejects configurations that would silently
// degrade the pipeline. Everything here is fatal at startup, never per-request.
func (cfg *Config) validate() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if len(cfg.AI.Generate) == 0 {
		return fmt.Errorf("ai.generate requires at least one provider")
	}
	if len(cfg.AI.Embed) == 0 {
		return fmt.Errorf("ai.embed requires at least one provider")
	}
	if cfg.AI.EmbedDim <= 0 {
		return fmt.Errorf("ai.embed_dim must be a positive integer")
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxInputChars <= 0 {
		cfg.AI.MaxInputChars = 12000
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 4096
	}
	if cfg.AI.CacheTTLMinutes == 0 {
		cfg.AI.CacheTTLMinutes = 120
	}
	if cfg.Ingest.ChunkMaxChars <= 0 {
		cfg.Ingest.ChunkMaxChars = 2000
	}
	if cfg.Ingest.ChunkMaxChars > 12000 {
		return fmt.Errorf("ingest.chunk_max_chars must not exceed 12000")
	}
	if cfg.Ingest.MaxUploadSize <= 0 {
		cfg.Ingest.MaxUploadSize = 32 << 20
	}
	if cfg.Ingest.EmbedConcurrency <= 0 {
		cfg.Ingest.EmbedConcurrency = 4
	}
	if cfg.Query.DefaultLimit <= 0 {
		cfg.Query.DefaultLimit = 5
	}
	if cfg.Query.MaxLimit <= 0 {
		cfg.Query.MaxLimit = 20
	}
	if cfg.Query.ContextMaxChars <= 0 {
		cfg.Query.ContextMaxChars = 12000
	}
	// The top-ranked segment must always fit the context ceiling whole.
	if cfg.Query.ContextMaxChars < cfg.Ingest.ChunkMaxChars {
		return fmt.Errorf("query.context_max_chars must be >= ingest.chunk_max_chars")
	}
	if cfg.Jobs.BackfillSpec == "" {
		cfg.Jobs.BackfillSpec = "*/5 * * * *"
	}
	if cfg.Jobs.BackfillBatch <= 0 {
		cfg.Jobs.BackfillBatch = 50
	}
	if cfg.Jobs.CacheCleanupSpec == "" {
		cfg.Jobs.CacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.CacheKeepDays <= 0 {
		cfg.Jobs.CacheKeepDays = 30
	}
	return nil
}

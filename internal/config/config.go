package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIProviderConfig struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type AIConfig struct {
	// Providers are tried in order; the first healthy one wins.
	Providers        []AIProviderConfig `json:"providers"`
	Dimension        int                `json:"dimension"`
	MaxInputChars    int                `json:"max_input_chars"`
	TimeoutSeconds   int                `json:"timeout_seconds"`
	MaxAttempts      int                `json:"max_attempts"`
	RetryBaseDelayMS int                `json:"retry_base_delay_ms"`
	CacheSize        int                `json:"cache_size"`
	CacheTTLMinutes  int                `json:"cache_ttl_minutes"`
}

type SearchConfig struct {
	DefaultLimit    int     `json:"default_limit"`
	OverFetchFactor int     `json:"over_fetch_factor"`
	VectorWeight    float64 `json:"vector_weight"`
	LexicalWeight   float64 `json:"lexical_weight"`
}

type ReindexConfig struct {
	Workers          int    `json:"workers"`
	BatchDelayMS     int    `json:"batch_delay_ms"`
	SweepCron        string `json:"sweep_cron"`
	SweepBatchSize   int    `json:"sweep_batch_size"`
	CacheCleanupCron string `json:"cache_cleanup_cron"`
	CacheKeepDays    int    `json:"cache_keep_days"`
}

type Config struct {
	Port          int              `json:"port"`
	Database      DatabaseConfig   `json:"database"`
	AI            AIConfig         `json:"ai"`
	Search        SearchConfig     `json:"search"`
	Reindex       ReindexConfig    `json:"reindex"`
	LogConfig     logger.LogConfig `json:"log_config"`
	CORSAllowlist []string         `json:"cors_allowlist"`
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
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AI.Dimension == 0 {
		cfg.AI.Dimension = 1536
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 8000
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.MaxAttempts == 0 {
		cfg.AI.MaxAttempts = 3
	}
	if cfg.AI.RetryBaseDelayMS == 0 {
		cfg.AI.RetryBaseDelayMS = 1000
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 10000
	}
	if cfg.AI.CacheTTLMinutes == 0 {
		cfg.AI.CacheTTLMinutes = 120
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.OverFetchFactor == 0 {
		cfg.Search.OverFetchFactor = 3
	}
	if cfg.Search.VectorWeight == 0 && cfg.Search.LexicalWeight == 0 {
		cfg.Search.VectorWeight = 0.6
		cfg.Search.LexicalWeight = 0.4
	}
	if cfg.Reindex.Workers == 0 {
		cfg.Reindex.Workers = 4
	}
	if cfg.Reindex.BatchDelayMS == 0 {
		cfg.Reindex.BatchDelayMS = 200
	}
	if cfg.Reindex.SweepCron == "" {
		cfg.Reindex.SweepCron = "*/10 * * * *"
	}
	if cfg.Reindex.SweepBatchSize == 0 {
		cfg.Reindex.SweepBatchSize = 100
	}
	if cfg.Reindex.CacheCleanupCron == "" {
		cfg.Reindex.CacheCleanupCron = "0 4 * * *"
	}
	if cfg.Reindex.CacheKeepDays == 0 {
		cfg.Reindex.CacheKeepDays = 30
	}
}

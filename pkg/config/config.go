// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Bucket, Postgres, Kafka, Redis, Cache, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Bucket   BucketConfig   `yaml:"bucket"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig describes where extracted texts come from and where the
// normalization run writes its artifacts.
type StoreConfig struct {
	// ResultsDir is the working directory wiped by the reset command.
	ResultsDir string `yaml:"resultsDir"`
	// Path is the frequency store file both engines load.
	Path string `yaml:"path"`
	// TextDir holds one extracted-text file per document.
	TextDir string `yaml:"textDir"`
	// NormalizedDir receives the space-joined normalized tokens per document.
	NormalizedDir string `yaml:"normalizedDir"`
	StopwordsPath string `yaml:"stopwordsPath"`
	// TextSuffix selects the files of TextDir that are documents and is
	// replaced by IdentifierExt to form the document identifier.
	TextSuffix    string `yaml:"textSuffix"`
	IdentifierExt string `yaml:"identifierExt"`
	// Append merges a run into the existing store instead of replacing it.
	Append  bool `yaml:"append"`
	Workers int  `yaml:"workers"`
	// AbstractMarker and AbstractMaxWords cut each text down to the words
	// following the marker. An empty marker disables the cut.
	AbstractMarker   string `yaml:"abstractMarker"`
	AbstractMaxWords int    `yaml:"abstractMaxWords"`
}

// BucketConfig points the indexer at an S3-compatible bucket of extracted
// texts. Leaving Endpoint empty selects the local TextDir instead.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Enabled reports whether an object-store source is configured.
func (b BucketConfig) Enabled() bool {
	return b.Endpoint != "" && b.Bucket != ""
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	StoreUpdated    string `yaml:"storeUpdated"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CacheConfig controls the in-process query cache tier.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

// SearchConfig controls query limits and how the searcher notices a new store.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
	// WatchStore reloads the engines whenever the store file is rewritten.
	WatchStore    bool          `yaml:"watchStore"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
	// RateLimit is the allowed queries per second per client; 0 disables it.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Store.Path == "":
		return apperrors.New(apperrors.ErrConfiguration, 0, "store.path is required")
	case c.Store.Workers < 1:
		return apperrors.Newf(apperrors.ErrConfiguration, 0, "store.workers must be positive, got %d", c.Store.Workers)
	case c.Store.AbstractMarker != "" && c.Store.AbstractMaxWords < 1:
		return apperrors.New(apperrors.ErrConfiguration, 0, "store.abstractMaxWords must be positive when abstractMarker is set")
	case c.Search.DefaultLimit < 1:
		return apperrors.Newf(apperrors.ErrConfiguration, 0, "search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	case c.Search.MaxResults < c.Search.DefaultLimit:
		return apperrors.Newf(apperrors.ErrConfiguration, 0,
			"search.maxResults (%d) must not be below search.defaultLimit (%d)",
			c.Search.MaxResults, c.Search.DefaultLimit)
	case c.Search.RateLimit < 0:
		return apperrors.New(apperrors.ErrConfiguration, 0, "search.rateLimit must not be negative")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			ResultsDir:       "results",
			Path:             "results/frequencies_summary.json",
			TextDir:          "results/resumo",
			NormalizedDir:    "results/normalizado",
			StopwordsPath:    "stopwords.txt",
			TextSuffix:       "_resumo.txt",
			IdentifierExt:    ".pdf",
			Workers:          4,
			AbstractMaxWords: 300,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docretrieval",
			User:            "docretrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docretrieval-searcher",
			Topics: KafkaTopics{
				StoreUpdated:    "store.updated",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1024,
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			MaxResults:    100,
			WatchDebounce: 500 * time.Millisecond,
			RateBurst:     20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DR_STORE_TEXT_DIR"); v != "" {
		cfg.Store.TextDir = v
	}
	if v := os.Getenv("DR_STORE_NORMALIZED_DIR"); v != "" {
		cfg.Store.NormalizedDir = v
	}
	if v := os.Getenv("DR_STORE_STOPWORDS"); v != "" {
		cfg.Store.StopwordsPath = v
	}
	if v := os.Getenv("DR_STORE_APPEND"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Store.Append = b
		}
	}
	if v := os.Getenv("DR_BUCKET_ENDPOINT"); v != "" {
		cfg.Bucket.Endpoint = v
	}
	if v := os.Getenv("DR_BUCKET_ACCESS_KEY"); v != "" {
		cfg.Bucket.AccessKey = v
	}
	if v := os.Getenv("DR_BUCKET_SECRET_KEY"); v != "" {
		cfg.Bucket.SecretKey = v
	}
	if v := os.Getenv("DR_BUCKET_NAME"); v != "" {
		cfg.Bucket.Bucket = v
	}
	if v := os.Getenv("DR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

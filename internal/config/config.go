// Package config loads the clipscout service configuration from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for tuned constants. The scoring thresholds and weights were
// carried over from the tool this service replaced; they are configuration,
// not derived values.
const (
	DefaultProbeTimeout       = 5 * time.Second
	DefaultRequestTimeout     = 12 * time.Second
	DefaultMaxRetries         = 3
	DefaultBackoffBase        = 1 * time.Second
	DefaultFailureThreshold   = 3
	DefaultMinInterval        = 500 * time.Millisecond
	DefaultRequestsPerMinute  = 60
	DefaultQuotaWindow        = time.Minute
	DefaultCollectAttemptCap  = 40
	DefaultMinDurationSeconds = 90
	DefaultMaxDurationSeconds = 600
	DefaultMinViewCount       = 10000
	DefaultItemDelay          = 500 * time.Millisecond
	DefaultRoundDelay         = 2 * time.Second
	DefaultCommentTarget      = 400
	DefaultCommentPageSize    = 100
	DefaultMinCommentLength   = 6
	DefaultAcceptThreshold    = 6.5
	DefaultConfidenceTarget   = 200
	DefaultServerAddress      = ":8090"
	DefaultReadTimeout        = 10 * time.Second
	DefaultWriteTimeout       = 30 * time.Second
)

// Config is the root service configuration.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Primary   PrimaryConfig   `yaml:"primary"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Queue     QueueConfig     `yaml:"queue"`
	Collector CollectorConfig `yaml:"collector"`
	Rater     RaterConfig     `yaml:"rater"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PrimaryConfig configures the mirror-pool scraping API.
type PrimaryConfig struct {
	// Instances is the static, non-empty list of mirror base URLs.
	Instances []string `yaml:"instances"`
	// ProbeTimeout bounds the lightweight health probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// RequestTimeout bounds one HTTP attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxRetries is the attempt budget per logical request.
	MaxRetries int `yaml:"max_retries"`
	// BackoffBase is the base for exponential backoff between attempts.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// FailureThreshold is the consecutive-failure count that opens an
	// instance's circuit.
	FailureThreshold int `yaml:"failure_threshold"`
}

// FallbackConfig configures the official API used when the mirror pool is
// exhausted. Disabled when the key is empty.
type FallbackConfig struct {
	APIKey         string        `yaml:"api_key" env:"CLIPSCOUT_FALLBACK_API_KEY"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RateLimitConfig is applied per downstream service: one limiter each for the
// mirror pool, the official API, and the queue store.
type RateLimitConfig struct {
	MinInterval       time.Duration `yaml:"min_interval"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	// QuotaWindow is the rolling-counter window. The reset is coarse: the
	// counter zeroes once a full window has elapsed since the last reset.
	QuotaWindow time.Duration `yaml:"quota_window"`
}

// QueueConfig selects and configures the queue store backend.
type QueueConfig struct {
	// Backend is one of "redis", "postgres", "memory".
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the redis queue store and dedup tracker.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"CLIPSCOUT_REDIS_ADDR"`
	Password string `yaml:"password" env:"CLIPSCOUT_REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures the postgres queue store.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"CLIPSCOUT_POSTGRES_DSN"`
}

// CollectorConfig configures the collection pipeline.
type CollectorConfig struct {
	AttemptCap         int           `yaml:"attempt_cap"`
	MinDurationSeconds int           `yaml:"min_duration_seconds"`
	MaxDurationSeconds int           `yaml:"max_duration_seconds"`
	MinViewCount       int64         `yaml:"min_view_count"`
	SearchMaxResults   int           `yaml:"search_max_results"`
	ItemDelay          time.Duration `yaml:"item_delay"`
	RoundDelay         time.Duration `yaml:"round_delay"`
}

// RaterConfig configures the rating pipeline.
type RaterConfig struct {
	CommentTarget int `yaml:"comment_target"`
	// CommentPageSize applies to the official API; the mirror API pages at
	// its own fixed size.
	CommentPageSize  int     `yaml:"comment_page_size"`
	MinCommentLength int     `yaml:"min_comment_length"`
	AcceptThreshold  float64 `yaml:"accept_threshold"`
	// ConfidenceTarget is the comment count at which confidence reaches 1.0.
	ConfidenceTarget int `yaml:"confidence_target"`
	// RecordDiscards writes an explicit record to the discarded destination
	// for rejected videos instead of dropping them silently.
	RecordDiscards *bool `yaml:"record_discards"`
}

// RecordDiscardsEnabled resolves the tri-state flag; default is on.
func (c RaterConfig) RecordDiscardsEnabled() bool {
	return c.RecordDiscards == nil || *c.RecordDiscards
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if len(c.Primary.Instances) == 0 {
		return errors.New("primary.instances must list at least one mirror URL")
	}
	switch c.Queue.Backend {
	case "redis":
		if c.Queue.Redis.Addr == "" {
			return errors.New("queue.redis.addr is required for the redis backend")
		}
	case "postgres":
		if c.Queue.Postgres.DSN == "" {
			return errors.New("queue.postgres.dsn is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown queue backend %q", c.Queue.Backend)
	}
	if c.Collector.MinDurationSeconds > c.Collector.MaxDurationSeconds {
		return fmt.Errorf("collector duration range inverted: min %d > max %d",
			c.Collector.MinDurationSeconds, c.Collector.MaxDurationSeconds)
	}
	if c.Rater.AcceptThreshold < 0 || c.Rater.AcceptThreshold > 10 {
		return fmt.Errorf("rater.accept_threshold must be within [0,10], got %v", c.Rater.AcceptThreshold)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Primary.ProbeTimeout <= 0 {
		cfg.Primary.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Primary.RequestTimeout <= 0 {
		cfg.Primary.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Primary.MaxRetries <= 0 {
		cfg.Primary.MaxRetries = DefaultMaxRetries
	}
	if cfg.Primary.BackoffBase <= 0 {
		cfg.Primary.BackoffBase = DefaultBackoffBase
	}
	if cfg.Primary.FailureThreshold <= 0 {
		cfg.Primary.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Fallback.BaseURL == "" {
		cfg.Fallback.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if cfg.Fallback.RequestTimeout <= 0 {
		cfg.Fallback.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RateLimit.MinInterval <= 0 {
		cfg.RateLimit.MinInterval = DefaultMinInterval
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.QuotaWindow <= 0 {
		cfg.RateLimit.QuotaWindow = DefaultQuotaWindow
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
	if cfg.Collector.AttemptCap <= 0 {
		cfg.Collector.AttemptCap = DefaultCollectAttemptCap
	}
	if cfg.Collector.MinDurationSeconds <= 0 {
		cfg.Collector.MinDurationSeconds = DefaultMinDurationSeconds
	}
	if cfg.Collector.MaxDurationSeconds <= 0 {
		cfg.Collector.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if cfg.Collector.MinViewCount <= 0 {
		cfg.Collector.MinViewCount = DefaultMinViewCount
	}
	if cfg.Collector.SearchMaxResults <= 0 {
		cfg.Collector.SearchMaxResults = 20
	}
	if cfg.Collector.ItemDelay <= 0 {
		cfg.Collector.ItemDelay = DefaultItemDelay
	}
	if cfg.Collector.RoundDelay <= 0 {
		cfg.Collector.RoundDelay = DefaultRoundDelay
	}
	if cfg.Rater.CommentTarget <= 0 {
		cfg.Rater.CommentTarget = DefaultCommentTarget
	}
	if cfg.Rater.CommentPageSize <= 0 {
		cfg.Rater.CommentPageSize = DefaultCommentPageSize
	}
	if cfg.Rater.MinCommentLength <= 0 {
		cfg.Rater.MinCommentLength = DefaultMinCommentLength
	}
	if cfg.Rater.AcceptThreshold == 0 {
		cfg.Rater.AcceptThreshold = DefaultAcceptThreshold
	}
	if cfg.Rater.ConfidenceTarget <= 0 {
		cfg.Rater.ConfidenceTarget = DefaultConfidenceTarget
	}
}

func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("CLIPSCOUT_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
	if v := os.Getenv("CLIPSCOUT_FALLBACK_API_KEY"); v != "" {
		cfg.Fallback.APIKey = v
	}
	if v := os.Getenv("CLIPSCOUT_REDIS_ADDR"); v != "" {
		cfg.Queue.Redis.Addr = v
	}
	if v := os.Getenv("CLIPSCOUT_REDIS_PASSWORD"); v != "" {
		cfg.Queue.Redis.Password = v
	}
	if v := os.Getenv("CLIPSCOUT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Queue.Redis.DB = db
		}
	}
	if v := os.Getenv("CLIPSCOUT_POSTGRES_DSN"); v != "" {
		cfg.Queue.Postgres.DSN = v
	}
	if v := os.Getenv("CLIPSCOUT_QUEUE_BACKEND"); v != "" {
		cfg.Queue.Backend = v
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. A .env file next to the binary is
// loaded first so local development does not need exported variables.
func Load(path string) (*Config, error) {
	// Missing .env is fine; only a malformed one is an error.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

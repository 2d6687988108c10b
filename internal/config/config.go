package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPBPURLTemplate points at the public nflverse season releases. %d is the season.
const DefaultPBPURLTemplate = "https://github.com/nflverse/nflverse-data/releases/download/pbp/play_by_play_%d.csv.gz"

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Season under analysis
	Season     int
	WeekCutoff int

	// Play-by-play source. PBPFile wins over the URL template when set.
	PBPURLTemplate string
	PBPFile        string

	// Play store: "sqlite" or "clickhouse"
	PlayStore     string
	SQLitePath    string
	ClickHouseURL string

	// Optional shared stores
	PostgresURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Sampler
	SamplerIterations int
	SamplerWarmup     int
	SamplerChains     int
	SamplerSeed       uint64

	// Fit a complete-pooling baseline next to the hierarchical model
	PooledBaseline bool
}

// Load loads configuration from environment variables.
// It returns an error if the configuration is inconsistent.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		Season:     getEnvInt("SEASON", 2023),
		WeekCutoff: getEnvInt("WEEK_CUTOFF", 18),

		PBPURLTemplate: getEnv("PBP_URL_TEMPLATE", DefaultPBPURLTemplate),
		PBPFile:        getEnv("PBP_FILE", ""),

		PlayStore:     strings.ToLower(getEnv("PLAY_STORE", "sqlite")),
		SQLitePath:    getEnv("SQLITE_PATH", "./pbp_cache.db"),
		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),

		PostgresURL: getEnv("POSTGRES_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		CacheTTL:    getEnvDuration("CACHE_TTL", 24*time.Hour),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 1000),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 1*time.Second),

		SamplerIterations: getEnvInt("SAMPLER_ITERATIONS", 2000),
		SamplerWarmup:     getEnvInt("SAMPLER_WARMUP", 1000),
		SamplerChains:     getEnvInt("SAMPLER_CHAINS", 4),
		SamplerSeed:       uint64(getEnvInt("SAMPLER_SEED", 20231)),

		PooledBaseline: getEnvBool("FIT_POOLED_BASELINE", true),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that a single env lookup cannot.
func (c *Config) Validate() error {
	switch c.PlayStore {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set when PLAY_STORE=sqlite")
		}
	case "clickhouse":
		if c.ClickHouseURL == "" {
			return fmt.Errorf("missing required environment variable: CLICKHOUSE_URL")
		}
	default:
		return fmt.Errorf("unsupported PLAY_STORE %q (want sqlite or clickhouse)", c.PlayStore)
	}
	if c.WeekCutoff < 1 {
		return fmt.Errorf("WEEK_CUTOFF must be positive, got %d", c.WeekCutoff)
	}
	if c.SamplerWarmup >= c.SamplerIterations {
		return fmt.Errorf("SAMPLER_WARMUP (%d) must be below SAMPLER_ITERATIONS (%d)", c.SamplerWarmup, c.SamplerIterations)
	}
	if c.SamplerChains < 1 {
		return fmt.Errorf("SAMPLER_CHAINS must be at least 1, got %d", c.SamplerChains)
	}
	return nil
}

// PBPSource returns the file path or URL the loader should read for the configured season.
func (c *Config) PBPSource() string {
	if c.PBPFile != "" {
		return c.PBPFile
	}
	if strings.Contains(c.PBPURLTemplate, "%d") {
		return fmt.Sprintf(c.PBPURLTemplate, c.Season)
	}
	return c.PBPURLTemplate
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Remote statistics source (commit-pinned GitHub raw endpoint)
	SourceBaseURL string        `envconfig:"SOURCE_BASE_URL" default:"https://raw.githubusercontent.com/griffisben/Wyscout_Prospect_Research"`
	SourceCommit  string        `envconfig:"SOURCE_COMMIT" default:"4931dedc4eb50af49dae6cb8f9a16f119c1aab1a"`
	SourceTimeout time.Duration `envconfig:"SOURCE_TIMEOUT" default:"30s"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"thaileague"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"thaileague_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Source cache
	CacheDir       string        `envconfig:"CACHE_DIR" default:"data/thai_league_cache"`
	CacheFreshness time.Duration `envconfig:"CACHE_FRESHNESS" default:"24h"`

	// Prediction models
	ModelsDir          string        `envconfig:"MODELS_DIR" default:"models"`
	PredictionCacheTTL time.Duration `envconfig:"PREDICTION_CACHE_TTL" default:"1h"`

	// Identity matching
	MatchThreshold int `envconfig:"MATCH_THRESHOLD" default:"85"`

	// Scheduler
	EnableScheduler   bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	WeeklyUpdateCron  string        `envconfig:"WEEKLY_UPDATE_CRON" default:"0 3 * * 0"`
	HashCheckCron     string        `envconfig:"HASH_CHECK_CRON" default:"0 6 * * *"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"5m"`
	RunOnStart        bool          `envconfig:"RUN_ON_START" default:"false"`

	// Source rate limiting
	SourceRateLimit int `envconfig:"SOURCE_RATE_LIMIT" default:"5"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD must be between 0 and 100, got %d", c.MatchThreshold)
	}

	if c.CacheFreshness <= 0 {
		return fmt.Errorf("CACHE_FRESHNESS must be positive")
	}

	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}

	if c.SourceCommit == "" {
		return fmt.Errorf("SOURCE_COMMIT is required")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

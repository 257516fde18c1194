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
	// Provider
	Provider        string        `envconfig:"PROVIDER" default:"espn"`
	ESPNSiteBaseURL string        `envconfig:"ESPN_SITE_BASE_URL" default:"https://site.api.espn.com/apis/site/v2/sports/soccer"`
	ESPNCoreBaseURL string        `envconfig:"ESPN_CORE_BASE_URL" default:"https://sports.core.api.espn.com/v2/sports/soccer"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	FetchDelay      time.Duration `envconfig:"FETCH_DELAY" default:"200ms"`
	FetchCacheTTL   time.Duration `envconfig:"FETCH_CACHE_TTL" default:"0s"`
	FetchUserAgent  string        `envconfig:"FETCH_USER_AGENT" default:"sportsync-ingestion/1.0"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"sportsync"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"sportsync"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"25"`
	AutoMigrate      bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Dispatcher
	EnableScheduler     bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	SeedOnStartup       bool          `envconfig:"SEED_ON_STARTUP" default:"true"`
	DispatchInterval    time.Duration `envconfig:"DISPATCH_INTERVAL" default:"30s"`
	DispatchConcurrency int           `envconfig:"DISPATCH_CONCURRENCY" default:"1"`
	DispatchCandidates  int           `envconfig:"DISPATCH_CANDIDATES" default:"10"`
	LeaseDuration       time.Duration `envconfig:"LEASE_DURATION" default:"15m"`

	// Retry accounting
	JobMaxAttempts   int           `envconfig:"JOB_MAX_ATTEMPTS" default:"3"`
	RetryBackoffBase time.Duration `envconfig:"RETRY_BACKOFF_BASE" default:"60s"`
	RetryBackoffMax  time.Duration `envconfig:"RETRY_BACKOFF_MAX" default:"1h"`

	// Backfill
	BackfillLeagues    []string `envconfig:"BACKFILL_LEAGUES" default:"eng.1,esp.1,ger.1,ita.1,fra.1,usa.1"`
	BackfillFromSeason int      `envconfig:"BACKFILL_FROM_SEASON" default:"2018"`
	BackfillToSeason   int      `envconfig:"BACKFILL_TO_SEASON" default:"2024"`
	BackfillCron       string   `envconfig:"BACKFILL_CRON" default:"0 3 * * *"`
	EnableBackfillCron bool     `envconfig:"ENABLE_BACKFILL_CRON" default:"false"`

	// Admin API
	EnableAdminAPI      bool          `envconfig:"ENABLE_ADMIN_API" default:"true"`
	AdminPort           int           `envconfig:"ADMIN_PORT" default:"8080"`
	AdminAPIKey         string        `envconfig:"ADMIN_API_KEY" default:""`
	AdminTokenTTL       time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"5m"`
	AdminAllowedOrigins []string      `envconfig:"ADMIN_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	AdminRateLimit      int           `envconfig:"ADMIN_RATE_LIMIT" default:"60"`
	AdminRateWindow     time.Duration `envconfig:"ADMIN_RATE_WINDOW" default:"1m"`

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

	if c.DatabaseMaxConns < 1 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be at least 1")
	}

	if c.LeaseDuration <= 0 {
		return fmt.Errorf("LEASE_DURATION must be positive")
	}

	if c.DispatchConcurrency < 1 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be at least 1")
	}

	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}

	if c.BackfillFromSeason > c.BackfillToSeason {
		return fmt.Errorf("BACKFILL_FROM_SEASON (%d) is after BACKFILL_TO_SEASON (%d)", c.BackfillFromSeason, c.BackfillToSeason)
	}

	if c.EnableAdminAPI && c.AdminAPIKey == "" && c.AppEnv == "production" {
		return fmt.Errorf("ADMIN_API_KEY is required in production when the admin API is enabled")
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

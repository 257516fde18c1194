package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabasePassword:    "secret",
		DatabaseMaxConns:    25,
		LeaseDuration:       15 * time.Minute,
		DispatchConcurrency: 1,
		JobMaxAttempts:      3,
		BackfillFromSeason:  2018,
		BackfillToSeason:    2024,
		AppEnv:              "development",
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "espn", cfg.Provider)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.FetchDelay)
	assert.Equal(t, 15*time.Minute, cfg.LeaseDuration)
	assert.Equal(t, int32(25), cfg.DatabaseMaxConns)
	assert.Equal(t, time.Minute, cfg.RetryBackoffBase)
	assert.Equal(t, time.Hour, cfg.RetryBackoffMax)
	assert.Equal(t, []string{"eng.1", "esp.1", "ger.1", "ita.1", "fra.1", "usa.1"}, cfg.BackfillLeagues)
}

func TestLoad_MissingPassword(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no password", func(c *Config) { c.DatabasePassword = "" }, "DATABASE_PASSWORD"},
		{"zero max conns", func(c *Config) { c.DatabaseMaxConns = 0 }, "DATABASE_MAX_CONNS"},
		{"zero lease", func(c *Config) { c.LeaseDuration = 0 }, "LEASE_DURATION"},
		{"zero concurrency", func(c *Config) { c.DispatchConcurrency = 0 }, "DISPATCH_CONCURRENCY"},
		{"zero attempts", func(c *Config) { c.JobMaxAttempts = 0 }, "JOB_MAX_ATTEMPTS"},
		{"inverted seasons", func(c *Config) { c.BackfillFromSeason = 2025 }, "BACKFILL_FROM_SEASON"},
		{"production without admin key", func(c *Config) {
			c.AppEnv = "production"
			c.EnableAdminAPI = true
		}, "ADMIN_API_KEY"},
		{"production with admin api off", func(c *Config) {
			c.AppEnv = "production"
			c.EnableAdminAPI = false
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddresses(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db",
		DatabasePort:     5433,
		DatabaseUser:     "u",
		DatabasePassword: "p",
		DatabaseName:     "n",
		DatabaseSSLMode:  "require",
		RedisHost:        "cache",
		RedisPort:        6380,
	}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", cfg.DatabaseDSN())
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}

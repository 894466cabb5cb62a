package config_test

import (
	"testing"
	"time"

	"github.com/SignpostApp/landing/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	require := require.New(t)

	cfg, err := config.LoadConfig()
	require.NoError(err)
	require.Equal(":8080", cfg.ServerAddress)
	require.Equal("sqlite", cfg.DBDriver)
	require.Equal("sql", cfg.RateLimitBackend)
	require.Equal(10, cfg.GlobalLimit)
	require.Equal(3, cfg.DomainLimit)
	require.Equal(time.Minute, cfg.RateLimitWindow)
	require.Equal(30*time.Second, cfg.MaxClockSkew)
	require.Zero(cfg.LookupRPS)
	require.False(cfg.ExposeStats)
	require.Empty(cfg.KafkaBrokers)
	require.Equal("signpost.cv", cfg.Source)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	require := require.New(t)

	t.Setenv("WAITLIST_SERVER_ADDRESS", ":9090")
	t.Setenv("WAITLIST_DB_DRIVER", "postgres")
	t.Setenv("WAITLIST_DB_DSN", "postgres://localhost/waitlist")
	t.Setenv("WAITLIST_GLOBAL_LIMIT", "25")
	t.Setenv("WAITLIST_RATE_LIMIT_WINDOW", "2m")
	t.Setenv("WAITLIST_BLOCKED_DOMAINS", "spam.io,junk.io")
	t.Setenv("WAITLIST_LOOKUP_RPS", "0.5")
	t.Setenv("WAITLIST_SOURCE", "producthunt")

	cfg, err := config.LoadConfig()
	require.NoError(err)
	require.Equal(":9090", cfg.ServerAddress)
	require.Equal("postgres", cfg.DBDriver)
	require.Equal(25, cfg.GlobalLimit)
	require.Equal(2*time.Minute, cfg.RateLimitWindow)
	require.Equal([]string{"spam.io", "junk.io"}, cfg.BlockedDomains)
	require.Equal(0.5, cfg.LookupRPS)
	require.Equal("producthunt", cfg.Source)
}

func TestLoadConfigRejectsRedisWithoutAddr(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAITLIST_RATE_LIMIT_BACKEND", "redis")

	_, err := config.LoadConfig()
	require.ErrorContains(t, err, "REDIS_ADDR")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := config.Config{
		DBDriver:         "sqlite",
		DBDSN:            ":memory:",
		RateLimitBackend: "sql",
		GlobalLimit:      10,
		DomainLimit:      3,
		RateLimitWindow:  time.Minute,
		MaxClockSkew:     30 * time.Second,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"driver", func(c *config.Config) { c.DBDriver = "mysql" }},
		{"dsn", func(c *config.Config) { c.DBDSN = "" }},
		{"backend", func(c *config.Config) { c.RateLimitBackend = "memcached" }},
		{"limit", func(c *config.Config) { c.DomainLimit = 0 }},
		{"window", func(c *config.Config) { c.RateLimitWindow = 0 }},
		{"skew", func(c *config.Config) { c.MaxClockSkew = -time.Second }},
		{"lookup rps", func(c *config.Config) { c.LookupRPS = -1 }},
		{"kafka topic", func(c *config.Config) { c.KafkaBrokers = []string{"localhost:9092"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

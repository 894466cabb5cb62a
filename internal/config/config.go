package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress     string        `mapstructure:"SERVER_ADDRESS"`
	AllowedOrigins    []string      `mapstructure:"ALLOWED_ORIGINS"`
	HSTS              bool          `mapstructure:"HSTS"`
	ExposeStats       bool          `mapstructure:"EXPOSE_STATS"`
	LookupRPS         float64       `mapstructure:"LOOKUP_RPS"`
	LookupBurst       int           `mapstructure:"LOOKUP_BURST"`
	TrustProxyHeaders bool          `mapstructure:"TRUST_PROXY_HEADERS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	RateLimitBackend string        `mapstructure:"RATE_LIMIT_BACKEND"`
	GlobalLimit      int           `mapstructure:"GLOBAL_LIMIT"`
	DomainLimit      int           `mapstructure:"DOMAIN_LIMIT"`
	RateLimitWindow  time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	MaxClockSkew   time.Duration `mapstructure:"MAX_CLOCK_SKEW"`
	BlockedDomains []string      `mapstructure:"BLOCKED_DOMAINS"`
	CheckMX        bool          `mapstructure:"CHECK_MX"`
	Source         string        `mapstructure:"SOURCE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`
}

// LoadConfig reads WAITLIST_* environment variables, falling back to a .env
// file in the working directory and then to defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("ALLOWED_ORIGINS", []string{"https://signpost.cv", "https://www.signpost.cv"})
	v.SetDefault("HSTS", true)
	v.SetDefault("EXPOSE_STATS", false)
	v.SetDefault("LOOKUP_RPS", 0)
	v.SetDefault("LOOKUP_BURST", 5)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "waitlist.db")

	v.SetDefault("RATE_LIMIT_BACKEND", "sql")
	v.SetDefault("GLOBAL_LIMIT", 10)
	v.SetDefault("DOMAIN_LIMIT", 3)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")

	v.SetDefault("MAX_CLOCK_SKEW", "30s")
	v.SetDefault("BLOCKED_DOMAINS", []string{})
	v.SetDefault("CHECK_MX", false)
	v.SetDefault("SOURCE", "signpost.cv")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", []string{})
	v.SetDefault("KAFKA_TOPIC", "waitlist.joined")

	v.SetEnvPrefix("WAITLIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Ignore err if .env doesn't exist
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WithMessage(err, "unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("config: DB_DSN is required")
	}

	switch c.RateLimitBackend {
	case "sql":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("config: RATE_LIMIT_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return errors.Errorf("config: unsupported RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}

	if c.GlobalLimit <= 0 || c.DomainLimit <= 0 {
		return errors.New("config: GLOBAL_LIMIT and DOMAIN_LIMIT must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("config: RATE_LIMIT_WINDOW must be positive")
	}
	if c.MaxClockSkew <= 0 {
		return errors.New("config: MAX_CLOCK_SKEW must be positive")
	}
	if c.LookupRPS < 0 {
		return errors.New("config: LOOKUP_RPS must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("config: KAFKA_TOPIC is required with KAFKA_BROKERS")
	}

	return nil
}

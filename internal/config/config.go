package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Plan modes accepted by DEFAULT_PLAN_MODE
const (
	PlanModeStrict  = "strict"
	PlanModeLenient = "lenient"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all configuration for the template worker
type Config struct {
	WorkerID string `env:"WORKER_ID" envDefault:"template-1"`

	// Redis connection
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Edit requests come in on StreamKey; rebuilt templates go out on ResultStream
	StreamKey     string        `env:"STREAM_KEY" envDefault:"template.edit"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"template-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"template.rebuilt"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// Stored templates live under StorePrefix; a zero TTL keeps them forever
	StorePrefix string        `env:"STORE_PREFIX" envDefault:"template:doc:"`
	StoreTTL    time.Duration `env:"STORE_TTL" envDefault:"0s"`

	MaxNestingDepth int    `env:"MAX_NESTING_DEPTH" envDefault:"64"`
	CELEnabled      bool   `env:"CEL_ENABLED" envDefault:"true"`
	DefaultPlanMode string `env:"DEFAULT_PLAN_MODE" envDefault:"strict"`

	HealthPort int    `env:"HEALTH_PORT" envDefault:"8083"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	for name, value := range map[string]string{
		"WORKER_ID":      c.WorkerID,
		"REDIS_ADDR":     c.RedisAddr,
		"STREAM_KEY":     c.StreamKey,
		"CONSUMER_GROUP": c.ConsumerGroup,
		"RESULT_STREAM":  c.ResultStream,
		"STORE_PREFIX":   c.StorePrefix,
	} {
		check(strings.TrimSpace(value) != "", "%s is required", name)
	}

	check(c.StreamKey == "" || c.StreamKey != c.ResultStream, "STREAM_KEY and RESULT_STREAM must differ")
	check(c.BlockTime > 0, "BLOCK_TIME must be positive")
	check(c.StoreTTL >= 0, "STORE_TTL must be non-negative")
	check(c.MaxNestingDepth > 0, "MAX_NESTING_DEPTH must be positive")
	check(c.DefaultPlanMode == PlanModeStrict || c.DefaultPlanMode == PlanModeLenient,
		"DEFAULT_PLAN_MODE must be one of: %s, %s", PlanModeStrict, PlanModeLenient)
	check(c.HealthPort > 0 && c.HealthPort <= 65535, "HEALTH_PORT must be between 1 and 65535")
	check(isValidLogLevel(c.LogLevel), "LOG_LEVEL must be one of: %s", strings.Join(logLevels, ", "))

	return errors.Join(errs...)
}

func isValidLogLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, "+
			"ResultStream=%s, StorePrefix=%s, StoreTTL=%s, MaxNestingDepth=%d, CELEnabled=%v, "+
			"DefaultPlanMode=%s, HealthPort=%d, LogLevel=%s}",
		c.WorkerID, c.RedisAddr, c.RedisDB, c.StreamKey, c.ConsumerGroup,
		c.ResultStream, c.StorePrefix, c.StoreTTL, c.MaxNestingDepth, c.CELEnabled,
		c.DefaultPlanMode, c.HealthPort, c.LogLevel,
	)
}

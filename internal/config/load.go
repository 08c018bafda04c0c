package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the TASKHUB_ prefix with underscores,
// e.g. TASKHUB_DATABASE_URL or TASKHUB_BROKER_REDIS_ADDR.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"broker.redis_addr",
		"broker.redis_password",
		"directory.base_url",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("broker.partitions", 4)

	v.SetDefault("directory.timeout_ms", 2000)
	v.SetDefault("directory.rate_per_second", 50.0)
	v.SetDefault("directory.rate_burst", 10)
	v.SetDefault("directory.retry_attempts", 3)
	v.SetDefault("directory.retry_backoff_ms", 200)
	v.SetDefault("directory.breaker_failure_threshold", 5)
	v.SetDefault("directory.breaker_cooldown_ms", 30000)

	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("notify.retention_days", 30)

	v.SetDefault("sched.retention_cron", "0 0 * * *")
	v.SetDefault("sched.reminder_cron", "0 9 * * *")
	v.SetDefault("sched.overdue_interval", "@every 1m")
	v.SetDefault("sched.retry_interval", "@every 1m")
}

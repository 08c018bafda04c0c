package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Broker    BrokerConfig    `mapstructure:"broker"    validate:"required"`
	Directory DirectoryConfig `mapstructure:"directory" validate:"required"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Sched     SchedConfig     `mapstructure:"sched"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings needed to validate caller identity.
// Token issuance lives in the gateway; this service only verifies.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// BrokerConfig contains the notification broker settings.
type BrokerConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required"`
	RedisPassword string `mapstructure:"redis_password"`
	// Partitions is the number of streams the notification topic is split
	// into. Messages are keyed by recipient id, so one recipient always
	// lands on the same partition.
	Partitions int `mapstructure:"partitions" validate:"required,gt=0"`
}

// DirectoryConfig contains the user-directory client and resilience settings.
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// TimeoutMS bounds a single lookup attempt.
	TimeoutMS int `mapstructure:"timeout_ms" validate:"gt=0"`
	// RatePerSecond caps lookup calls issued to the directory.
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	// RateBurst is the limiter's burst allowance.
	RateBurst int `mapstructure:"rate_burst" validate:"gt=0"`
	// RetryAttempts bounds retries per lookup, backoff doubling each time.
	RetryAttempts int `mapstructure:"retry_attempts" validate:"gt=0"`
	// RetryBackoffMS is the initial retry backoff.
	RetryBackoffMS int `mapstructure:"retry_backoff_ms" validate:"gt=0"`
	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit.
	BreakerFailureThreshold int `mapstructure:"breaker_failure_threshold" validate:"gt=0"`
	// BreakerCooldownMS is how long the circuit stays open before probing.
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms" validate:"gt=0"`
}

// NotifyConfig contains publisher-side settings.
type NotifyConfig struct {
	// QueueSize bounds the in-memory publish queue.
	QueueSize int `mapstructure:"queue_size"`
	// WorkerCount is the number of publish workers draining the queue.
	WorkerCount int `mapstructure:"worker_count"`
	// RetentionDays is how long delivered notifications are kept.
	RetentionDays int `mapstructure:"retention_days"`
}

// SchedConfig contains the sweep cadences. Cron expressions for the daily
// sweeps, interval specs for the frequent ones. Cadence is deployment
// configuration, not a correctness requirement.
type SchedConfig struct {
	RetentionCron   string `mapstructure:"retention_cron"`
	ReminderCron    string `mapstructure:"reminder_cron"`
	OverdueInterval string `mapstructure:"overdue_interval"`
	RetryInterval   string `mapstructure:"retry_interval"`
}

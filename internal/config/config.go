// Package config handles application configuration loading and validation using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Points        PointsConfig        `mapstructure:"points"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver      string         `mapstructure:"driver"` // "postgres" or "sqlite"
	AutoMigrate bool           `mapstructure:"auto_migrate"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	SQLite      SQLiteConfig   `mapstructure:"sqlite"`
	Redis       RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN builds the libpq connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// URL builds the postgres:// URL used by the migration runner.
func (p *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// SQLiteConfig contains the SQLite file location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NotificationsConfig selects the notification sinks.
type NotificationsConfig struct {
	RedisInbox RedisInboxConfig `mapstructure:"redis_inbox"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
}

// RedisInboxConfig configures the per-user notification inbox kept in Redis.
type RedisInboxConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
	MaxItems  int64  `mapstructure:"max_items"`
	Channel   string `mapstructure:"channel"`
}

// WebhookConfig contains the staff chat webhook settings.
type WebhookConfig struct {
	URL      string `mapstructure:"url"`
	Channel  string `mapstructure:"channel"`
	Username string `mapstructure:"username"`
	Enabled  bool   `mapstructure:"enabled"`
}

// PointsConfig holds the point settings written to the singleton row on first start.
// Changes made at runtime through the API always win over these values.
type PointsConfig struct {
	AutoGrantEnabled    bool   `mapstructure:"auto_grant_enabled"`
	RecyclingPerKg      string `mapstructure:"recycling_per_kg"`
	OrganicPerKg        string `mapstructure:"organic_per_kg"`
	DonationPerPiece    string `mapstructure:"donation_per_piece"`
	PointValue          string `mapstructure:"point_value"`
	MinRedemptionPoints int64  `mapstructure:"min_redemption_points"`
}

// CatalogConfig points at the item catalog seed file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig contains the ledger reconciliation job settings.
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ReconcileCron string `mapstructure:"reconcile_cron"`
	Timezone      string `mapstructure:"timezone"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.sqlite.path", "points.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("notifications.redis_inbox.key_prefix", "notifications")
	v.SetDefault("notifications.redis_inbox.max_items", 100)
	v.SetDefault("notifications.redis_inbox.channel", "notifications:events")
	v.SetDefault("notifications.webhook.username", "Points Bot")

	v.SetDefault("points.auto_grant_enabled", true)
	v.SetDefault("points.recycling_per_kg", "10")
	v.SetDefault("points.organic_per_kg", "5")
	v.SetDefault("points.donation_per_piece", "20")
	v.SetDefault("points.point_value", "0.05")
	v.SetDefault("points.min_redemption_points", 100)

	v.SetDefault("scheduler.reconcile_cron", "0 3 * * *")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/points-ledger/")
	}

	// Server
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Database
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.auto_migrate", "DB_AUTO_MIGRATE")
	_ = v.BindEnv("database.sqlite.path", "SQLITE_PATH")
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Notifications
	_ = v.BindEnv("notifications.redis_inbox.enabled", "NOTIFY_REDIS_ENABLED")
	_ = v.BindEnv("notifications.webhook.url", "NOTIFY_WEBHOOK_URL")
	_ = v.BindEnv("notifications.webhook.channel", "NOTIFY_WEBHOOK_CHANNEL")
	_ = v.BindEnv("notifications.webhook.enabled", "NOTIFY_WEBHOOK_ENABLED")

	// Points defaults
	_ = v.BindEnv("points.auto_grant_enabled", "POINTS_AUTO_GRANT_ENABLED")

	// Catalog
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")

	// Scheduler
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.reconcile_cron", "SCHEDULER_RECONCILE_CRON")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// Logging
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if c.Notifications.RedisInbox.Enabled && c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required when the redis inbox is enabled")
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("notifications.webhook.url is required when the webhook is enabled")
	}

	for name, raw := range map[string]string{
		"points.recycling_per_kg":   c.Points.RecyclingPerKg,
		"points.organic_per_kg":     c.Points.OrganicPerKg,
		"points.donation_per_piece": c.Points.DonationPerPiece,
		"points.point_value":        c.Points.PointValue,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s must be a decimal: %w", name, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Scheduler.Enabled && c.Scheduler.ReconcileCron == "" {
		return fmt.Errorf("scheduler.reconcile_cron is required when the scheduler is enabled")
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "points.db", cfg.Database.SQLite.Path)
	assert.True(t, cfg.Points.AutoGrantEnabled)
	assert.Equal(t, "10", cfg.Points.RecyclingPerKg)
	assert.Equal(t, "0.05", cfg.Points.PointValue)
	assert.Equal(t, int64(100), cfg.Points.MinRedemptionPoints)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.ReconcileCron)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, int64(100), cfg.Notifications.RedisInbox.MaxItems)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_DB", "points")
	t.Setenv("POSTGRES_USER", "ledger")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "logging:\n  level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "postgres://ledger:@db.internal:5432/points?sslmode=disable", cfg.Database.Postgres.URL())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "points.db"}},
			Points: PointsConfig{
				RecyclingPerKg:   "10",
				OrganicPerKg:     "5",
				DonationPerPiece: "20",
				PointValue:       "0.05",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database.driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres" }, "database.postgres.host"},
		{"redis inbox without host", func(c *Config) { c.Notifications.RedisInbox.Enabled = true }, "database.redis.host"},
		{"webhook without url", func(c *Config) { c.Notifications.Webhook.Enabled = true }, "notifications.webhook.url"},
		{"bad rate", func(c *Config) { c.Points.OrganicPerKg = "five" }, "points.organic_per_kg"},
		{"negative rate", func(c *Config) { c.Points.PointValue = "-0.01" }, "points.point_value"},
		{"scheduler without cron", func(c *Config) { c.Scheduler.Enabled = true }, "scheduler.reconcile_cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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

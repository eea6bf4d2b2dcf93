//go:build integration

package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/internal/migrations"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// NewPostgres starts a disposable PostgreSQL container, applies the migrations and
// returns a connection pool. The container is removed when the test ends.
func NewPostgres(t *testing.T) *repository.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "points_test",
				"POSTGRES_USER":     "points",
				"POSTGRES_PASSWORD": "points",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Driver: "postgres",
		Postgres: config.PostgresConfig{
			Host:            host,
			Port:            port.Int(),
			Database:        "points_test",
			User:            "points",
			Password:        "points",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
	}

	log := logger.Nop()
	require.NoError(t, migrations.Up(cfg.Postgres.URL(), log), "migrate postgres")

	db, err := repository.NewDB(cfg, log)
	require.NoError(t, err, "connect to postgres")
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

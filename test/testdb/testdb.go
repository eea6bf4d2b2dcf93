// Package testdb builds isolated in-memory databases for package tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/repository"
)

// New opens a fresh, migrated in-memory SQLite database that is closed when the test ends.
func New(t *testing.T) *repository.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.OpenSQLite(dsn)
	require.NoError(t, err, "open test database")
	require.NoError(t, db.AutoMigrate(), "migrate test database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// CreateUser inserts a user with a unique email.
func CreateUser(t *testing.T, db *repository.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.org", name, uuid.NewString()[:8]),
		Role:  models.RoleUser,
	}
	require.NoError(t, repository.NewUserRepository(db).Create(user))
	return user
}

// DefaultSettings returns the settings used by most trigger tests.
func DefaultSettings() *models.PointSettings {
	return &models.PointSettings{
		AutoGrantEnabled:    true,
		RecyclingPerKg:      decimal.NewFromInt(10),
		OrganicPerKg:        decimal.NewFromInt(5),
		DonationPerPiece:    decimal.NewFromInt(20),
		PointValue:          decimal.RequireFromString("0.05"),
		MinRedemptionPoints: 100,
	}
}

// SeedSettings writes the settings row, applying mutate to the defaults first.
func SeedSettings(t *testing.T, db *repository.DB, mutate func(*models.PointSettings)) *models.PointSettings {
	t.Helper()

	settings := DefaultSettings()
	if mutate != nil {
		mutate(settings)
	}
	require.NoError(t, repository.NewSettingsRepository(db).Save(settings))
	return settings
}

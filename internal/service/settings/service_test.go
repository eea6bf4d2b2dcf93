package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/pkg/logger"
	"github.com/ecohood/points-ledger/test/testdb"
)

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(&config.PointsConfig{
		AutoGrantEnabled:    true,
		RecyclingPerKg:      "10",
		OrganicPerKg:        "5.5",
		DonationPerPiece:    "20",
		PointValue:          "0.05",
		MinRedemptionPoints: 100,
	})
	require.NoError(t, err)
	assert.True(t, s.AutoGrantEnabled)
	assert.True(t, s.OrganicPerKg.Equal(decimal.RequireFromString("5.5")))
	assert.True(t, s.PointValue.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, int64(100), s.MinRedemptionPoints)

	_, err = FromConfig(&config.PointsConfig{RecyclingPerKg: "ten"})
	assert.Error(t, err)
}

func TestSeedKeepsExistingRow(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(repository.NewSettingsRepository(db), logger.Nop())
	ctx := context.Background()

	first := testdb.DefaultSettings()
	require.NoError(t, svc.Seed(ctx, first))

	second := testdb.DefaultSettings()
	second.RecyclingPerKg = decimal.NewFromInt(99)
	require.NoError(t, svc.Seed(ctx, second))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.RecyclingPerKg.Equal(decimal.NewFromInt(10)))
}

func TestUpdate(t *testing.T) {
	db := testdb.New(t)
	testdb.SeedSettings(t, db, nil)
	svc := NewService(repository.NewSettingsRepository(db), logger.Nop())
	ctx := context.Background()

	disabled := false
	rate := decimal.RequireFromString("12.5")
	got, err := svc.Update(ctx, Update{AutoGrantEnabled: &disabled, RecyclingPerKg: &rate})
	require.NoError(t, err)
	assert.False(t, got.AutoGrantEnabled)
	assert.True(t, got.RecyclingPerKg.Equal(rate))
	assert.True(t, got.OrganicPerKg.Equal(decimal.NewFromInt(5)), "untouched fields keep their value")

	reloaded, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded.AutoGrantEnabled)
}

func TestUpdateRejectsNegativeValues(t *testing.T) {
	db := testdb.New(t)
	testdb.SeedSettings(t, db, nil)
	svc := NewService(repository.NewSettingsRepository(db), logger.Nop())

	negative := decimal.NewFromInt(-1)
	_, err := svc.Update(context.Background(), Update{PointValue: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	minPoints := int64(-5)
	_, err = svc.Update(context.Background(), Update{MinRedemptionPoints: &minPoints})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

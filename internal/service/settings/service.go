// Package settings manages the point settings singleton.
package settings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Repository interface for settings storage.
type Repository interface {
	Seed(defaults *models.PointSettings) error
	Get() (*models.PointSettings, error)
	Save(settings *models.PointSettings) error
}

// Service reads and updates point settings. Nothing is cached: every call hits the
// database so a change applies to the next trigger.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a new settings service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log.Component("settings")}
}

// FromConfig converts the configured defaults into a settings row.
func FromConfig(cfg *config.PointsConfig) (*models.PointSettings, error) {
	parse := func(name, raw string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid points.%s %q: %w", name, raw, err)
		}
		return d, nil
	}

	s := &models.PointSettings{
		AutoGrantEnabled:    cfg.AutoGrantEnabled,
		MinRedemptionPoints: cfg.MinRedemptionPoints,
	}
	var err error
	if s.RecyclingPerKg, err = parse("recycling_per_kg", cfg.RecyclingPerKg); err != nil {
		return nil, err
	}
	if s.OrganicPerKg, err = parse("organic_per_kg", cfg.OrganicPerKg); err != nil {
		return nil, err
	}
	if s.DonationPerPiece, err = parse("donation_per_piece", cfg.DonationPerPiece); err != nil {
		return nil, err
	}
	if s.PointValue, err = parse("point_value", cfg.PointValue); err != nil {
		return nil, err
	}
	return s, nil
}

// Seed writes the defaults on first start. An existing row is left untouched.
func (s *Service) Seed(_ context.Context, defaults *models.PointSettings) error {
	if err := s.repo.Seed(defaults); err != nil {
		return err
	}
	s.log.Debug().Msg("Point settings seeded")
	return nil
}

// Get returns the current settings.
func (s *Service) Get(_ context.Context) (*models.PointSettings, error) {
	return s.repo.Get()
}

// Update is a partial update of the settings. Nil fields keep their value.
type Update struct {
	AutoGrantEnabled    *bool            `json:"auto_grant_enabled"`
	RecyclingPerKg      *decimal.Decimal `json:"recycling_per_kg"`
	OrganicPerKg        *decimal.Decimal `json:"organic_per_kg"`
	DonationPerPiece    *decimal.Decimal `json:"donation_per_piece"`
	PointValue          *decimal.Decimal `json:"point_value"`
	MinRedemptionPoints *int64           `json:"min_redemption_points"`
}

// Update applies u and returns the stored settings.
func (s *Service) Update(_ context.Context, u Update) (*models.PointSettings, error) {
	for name, d := range map[string]*decimal.Decimal{
		"recycling_per_kg":   u.RecyclingPerKg,
		"organic_per_kg":     u.OrganicPerKg,
		"donation_per_piece": u.DonationPerPiece,
		"point_value":        u.PointValue,
	} {
		if d != nil && d.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative", apperrors.ErrInvalidInput, name)
		}
	}
	if u.MinRedemptionPoints != nil && *u.MinRedemptionPoints < 0 {
		return nil, fmt.Errorf("%w: min_redemption_points must not be negative", apperrors.ErrInvalidInput)
	}

	current, err := s.repo.Get()
	if err != nil {
		return nil, err
	}

	if u.AutoGrantEnabled != nil {
		current.AutoGrantEnabled = *u.AutoGrantEnabled
	}
	if u.RecyclingPerKg != nil {
		current.RecyclingPerKg = *u.RecyclingPerKg
	}
	if u.OrganicPerKg != nil {
		current.OrganicPerKg = *u.OrganicPerKg
	}
	if u.DonationPerPiece != nil {
		current.DonationPerPiece = *u.DonationPerPiece
	}
	if u.PointValue != nil {
		current.PointValue = *u.PointValue
	}
	if u.MinRedemptionPoints != nil {
		current.MinRedemptionPoints = *u.MinRedemptionPoints
	}

	if err := s.repo.Save(current); err != nil {
		return nil, err
	}

	s.log.Info().
		Bool("auto_grant_enabled", current.AutoGrantEnabled).
		Str("recycling_per_kg", current.RecyclingPerKg.String()).
		Str("organic_per_kg", current.OrganicPerKg.String()).
		Str("donation_per_piece", current.DonationPerPiece.String()).
		Str("point_value", current.PointValue.String()).
		Int64("min_redemption_points", current.MinRedemptionPoints).
		Msg("Point settings updated")

	return current, nil
}

package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/models"
)

// SettingsRepository reads and writes the singleton point settings row.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Seed writes defaults only if the singleton row does not exist yet.
func (r *SettingsRepository) Seed(defaults *models.PointSettings) error {
	defaults.ID = models.PointSettingsID
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(defaults).Error; err != nil {
		return fmt.Errorf("failed to seed point settings: %w", err)
	}
	return nil
}

// Get returns the current settings row. It is read fresh on every call.
func (r *SettingsRepository) Get() (*models.PointSettings, error) {
	var settings models.PointSettings
	if err := r.db.First(&settings, models.PointSettingsID).Error; err != nil {
		return nil, fmt.Errorf("failed to load point settings: %w", err)
	}
	return &settings, nil
}

// Save overwrites the singleton row.
func (r *SettingsRepository) Save(settings *models.PointSettings) error {
	settings.ID = models.PointSettingsID
	settings.UpdatedAt = time.Now().UTC()
	if err := r.db.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to save point settings: %w", err)
	}
	return nil
}

package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// PickupRepository handles pickup-related database operations.
type PickupRepository struct {
	db *DB
}

// NewPickupRepository creates a new pickup repository.
func NewPickupRepository(db *DB) *PickupRepository {
	return &PickupRepository{db: db}
}

// Create inserts a pickup together with its items.
func (r *PickupRepository) Create(pickup *models.Pickup) error {
	if err := r.db.Create(pickup).Error; err != nil {
		return fmt.Errorf("failed to create pickup: %w", err)
	}
	return nil
}

// GetByID retrieves a pickup with its items.
func (r *PickupRepository) GetByID(id uint) (*models.Pickup, error) {
	var pickup models.Pickup
	err := r.db.Preload("Items").First(&pickup, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPickupNotFound
		}
		return nil, fmt.Errorf("failed to get pickup %d: %w", id, err)
	}
	return &pickup, nil
}

// LockByID selects a pickup row for update and loads its items.
func (r *PickupRepository) LockByID(id uint) (*models.Pickup, error) {
	var pickup models.Pickup
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pickup, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPickupNotFound
		}
		return nil, fmt.Errorf("failed to lock pickup %d: %w", id, err)
	}
	if err := r.db.Where("pickup_id = ?", id).Order("id ASC").Find(&pickup.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load items of pickup %d: %w", id, err)
	}
	return &pickup, nil
}

// UpdateCompletion writes the status, completion time and awarded points of a pickup.
func (r *PickupRepository) UpdateCompletion(pickup *models.Pickup) error {
	err := r.db.Model(&models.Pickup{}).
		Where("id = ?", pickup.ID).
		Updates(map[string]interface{}{
			"status":         pickup.Status,
			"completed_at":   pickup.CompletedAt,
			"points_awarded": pickup.PointsAwarded,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update pickup %d: %w", pickup.ID, err)
	}
	return nil
}

// ListByUser returns the pickups of a user, newest first.
func (r *PickupRepository) ListByUser(userID uint) ([]models.Pickup, error) {
	var pickups []models.Pickup
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("scheduled_for DESC").
		Find(&pickups).Error
	return pickups, err
}

package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// DonationRepository handles donation-related database operations.
type DonationRepository struct {
	db *DB
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(db *DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a donation.
func (r *DonationRepository) Create(donation *models.Donation) error {
	if err := r.db.Create(donation).Error; err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

// GetByID retrieves a donation by ID.
func (r *DonationRepository) GetByID(id uint) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.First(&donation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to get donation %d: %w", id, err)
	}
	return &donation, nil
}

// LockByID selects a donation row for update.
func (r *DonationRepository) LockByID(id uint) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&donation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to lock donation %d: %w", id, err)
	}
	return &donation, nil
}

// UpdateReview writes the status and award marker of a donation.
func (r *DonationRepository) UpdateReview(donation *models.Donation) error {
	err := r.db.Model(&models.Donation{}).
		Where("id = ?", donation.ID).
		Updates(map[string]interface{}{
			"status":         donation.Status,
			"points_awarded": donation.PointsAwarded,
			"awarded_at":     donation.AwardedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update donation %d: %w", donation.ID, err)
	}
	return nil
}

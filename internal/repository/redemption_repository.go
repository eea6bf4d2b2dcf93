package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// RedemptionRepository handles cash-out request storage.
type RedemptionRepository struct {
	db *DB
}

// NewRedemptionRepository creates a new redemption repository.
func NewRedemptionRepository(db *DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// Create inserts a redemption request.
func (r *RedemptionRepository) Create(req *models.RedemptionRequest) error {
	if err := r.db.Create(req).Error; err != nil {
		return fmt.Errorf("failed to create redemption request: %w", err)
	}
	return nil
}

// GetByID retrieves a redemption request by ID.
func (r *RedemptionRepository) GetByID(id uint) (*models.RedemptionRequest, error) {
	var req models.RedemptionRequest
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to get redemption request %d: %w", id, err)
	}
	return &req, nil
}

// LockByID selects a redemption request for update.
func (r *RedemptionRepository) LockByID(id uint) (*models.RedemptionRequest, error) {
	var req models.RedemptionRequest
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to lock redemption request %d: %w", id, err)
	}
	return &req, nil
}

// UpdateStatus writes the status and completion time of a request.
func (r *RedemptionRepository) UpdateStatus(req *models.RedemptionRequest) error {
	err := r.db.Model(&models.RedemptionRequest{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{
			"status":       req.Status,
			"completed_at": req.CompletedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update redemption request %d: %w", req.ID, err)
	}
	return nil
}

// Delete hard-deletes a redemption request.
func (r *RedemptionRepository) Delete(id uint) error {
	res := r.db.Delete(&models.RedemptionRequest{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete redemption request %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrRedemptionNotFound
	}
	return nil
}

// ListByStatus returns requests with the given status, oldest first. An empty status
// returns every request.
func (r *RedemptionRepository) ListByStatus(status string) ([]models.RedemptionRequest, error) {
	query := r.db.Model(&models.RedemptionRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var reqs []models.RedemptionRequest
	err := query.Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}

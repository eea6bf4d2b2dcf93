package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Create creates a new badge in the database.
func (r *BadgeRepository) Create(badge *models.Badge) error {
	return r.db.Create(badge).Error
}

// GetByID retrieves a badge by its ID.
func (r *BadgeRepository) GetByID(id uint) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.First(&badge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBadgeNotFound
		}
		return nil, err
	}
	return &badge, nil
}

// GetByName retrieves a badge by its name.
func (r *BadgeRepository) GetByName(name string) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.Where("name = ?", name).First(&badge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBadgeNotFound
		}
		return nil, err
	}
	return &badge, nil
}

// GetAll retrieves all badges from the database.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("id ASC").Find(&badges).Error
	return badges, err
}

// AwardBadge inserts the (user, badge) pair.
// Returns apperrors.ErrBadgeAlreadyGranted if the pair already exists.
func (r *BadgeRepository) AwardBadge(userID, badgeID uint, grantedBy *uint) (*models.UserBadge, error) {
	exists, err := r.HasUserEarnedBadge(userID, badgeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrBadgeAlreadyGranted
	}

	userBadge := &models.UserBadge{
		UserID:    userID,
		BadgeID:   badgeID,
		GrantedBy: grantedBy,
		EarnedAt:  time.Now().UTC(),
	}
	if err := r.db.Create(userBadge).Error; err != nil {
		// The unique index catches a concurrent grant of the same pair.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrBadgeAlreadyGranted
		}
		return nil, fmt.Errorf("failed to award badge %d to user %d: %w", badgeID, userID, err)
	}
	return userBadge, nil
}

// GetUserBadges retrieves all badges earned by a user with badge details preloaded.
func (r *BadgeRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

// HasUserEarnedBadge checks if a user holds a specific badge.
func (r *BadgeRepository) HasUserEarnedBadge(userID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetBadgeHoldersCount returns the number of users holding a specific badge.
func (r *BadgeRepository) GetBadgeHoldersCount(badgeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("badge_id = ?", badgeID).
		Count(&count).Error
	return count, err
}

// RevokeUserBadge removes a badge from a user. Revoking a badge the user does not
// hold is not an error; the returned flag reports whether a row was removed.
func (r *BadgeRepository) RevokeUserBadge(userID, badgeID uint) (bool, error) {
	res := r.db.
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Delete(&models.UserBadge{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

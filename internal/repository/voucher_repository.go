package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
)

// VoucherRepository handles vouchers and their redemptions.
type VoucherRepository struct {
	db *DB
}

// NewVoucherRepository creates a new voucher repository.
func NewVoucherRepository(db *DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// Create inserts a voucher.
func (r *VoucherRepository) Create(voucher *models.Voucher) error {
	if err := r.db.Create(voucher).Error; err != nil {
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// GetByID retrieves a voucher by ID.
func (r *VoucherRepository) GetByID(id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher %d: %w", id, err)
	}
	return &voucher, nil
}

// LockByID selects a voucher row for update.
func (r *VoucherRepository) LockByID(id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&voucher, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to lock voucher %d: %w", id, err)
	}
	return &voucher, nil
}

// DecrementStock takes one unit of stock from a voucher that still has some.
func (r *VoucherRepository) DecrementStock(id uint) error {
	res := r.db.Model(&models.Voucher{}).
		Where("id = ? AND quantity > 0", id).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of voucher %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrVoucherUnavailable
	}
	return nil
}

// ListActive returns vouchers that can currently be redeemed.
func (r *VoucherRepository) ListActive(now time.Time) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.
		Where("status = ? AND quantity > 0", models.VoucherStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("points_required ASC, id ASC").
		Find(&vouchers).Error
	return vouchers, err
}

// CreateRedemption inserts a voucher redemption.
func (r *VoucherRepository) CreateRedemption(redemption *models.VoucherRedemption) error {
	if err := r.db.Create(redemption).Error; err != nil {
		return fmt.Errorf("failed to create voucher redemption: %w", err)
	}
	return nil
}

// LockRedemption selects a voucher redemption for update.
func (r *VoucherRepository) LockRedemption(id uint) (*models.VoucherRedemption, error) {
	var redemption models.VoucherRedemption
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&redemption, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrVoucherRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to lock voucher redemption %d: %w", id, err)
	}
	return &redemption, nil
}

// MarkProcessed stores the coupon code and processing time of a redemption.
func (r *VoucherRepository) MarkProcessed(redemption *models.VoucherRedemption) error {
	err := r.db.Model(&models.VoucherRedemption{}).
		Where("id = ?", redemption.ID).
		Updates(map[string]interface{}{
			"status":       redemption.Status,
			"coupon_code":  redemption.CouponCode,
			"processed_at": redemption.ProcessedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to process voucher redemption %d: %w", redemption.ID, err)
	}
	return nil
}

// ListRedemptionsByUser returns a user's voucher redemptions with voucher details, newest first.
func (r *VoucherRepository) ListRedemptionsByUser(userID uint) ([]models.VoucherRedemption, error) {
	var redemptions []models.VoucherRedemption
	err := r.db.Preload("Voucher").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&redemptions).Error
	return redemptions, err
}

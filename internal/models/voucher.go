package models

import (
	"time"
)

// Voucher is a partner discount coupon with finite stock.
type Voucher struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Partner        string     `gorm:"size:255" json:"partner"`
	PointsRequired int64      `gorm:"not null" json:"points_required"`
	Quantity       int        `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Voucher model.
func (Voucher) TableName() string {
	return "vouchers"
}

// Available reports whether the voucher can be redeemed at the given time.
func (v *Voucher) Available(now time.Time) bool {
	if v.Status != VoucherStatusActive || v.Quantity <= 0 {
		return false
	}
	return v.ExpiresAt == nil || now.Before(*v.ExpiresAt)
}

// VoucherRedemption records one exchange of points for a voucher.
type VoucherRedemption struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	VoucherID   uint       `gorm:"not null;index" json:"voucher_id"`
	Voucher     *Voucher   `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
	PointsSpent int64      `gorm:"not null" json:"points_spent"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	CouponCode  *string    `gorm:"size:64;uniqueIndex" json:"coupon_code,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for VoucherRedemption model.
func (VoucherRedemption) TableName() string {
	return "voucher_redemptions"
}

// Voucher status constants.
const (
	VoucherStatusActive   = "active"
	VoucherStatusInactive = "inactive"
)

// VoucherRedemption status constants.
const (
	VoucherRedemptionPending   = "pending"
	VoucherRedemptionProcessed = "processed"
)

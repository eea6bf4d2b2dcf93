package models

import (
	"time"
)

// PointsLogEntry is one immutable ledger movement.
type PointsLogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_points_log_user_created" json:"user_id"`
	Delta        int64     `gorm:"not null" json:"delta"`
	LogType      string    `gorm:"size:10;not null" json:"log_type"` // grant or deduct
	SourceType   string    `gorm:"size:20;not null;index:idx_points_log_source" json:"source_type"`
	SourceID     *string   `gorm:"size:64;index:idx_points_log_source" json:"source_id,omitempty"`
	Reason       string    `gorm:"type:text" json:"reason"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time `gorm:"index:idx_points_log_user_created" json:"created_at"`
}

// TableName specifies the table name for PointsLogEntry model.
func (PointsLogEntry) TableName() string {
	return "points_log"
}

// LogType constants.
const (
	LogTypeGrant  = "grant"
	LogTypeDeduct = "deduct"
)

// SourceType constants identify which trigger moved the points.
const (
	SourceAdmin      = "admin"
	SourcePickup     = "pickup"
	SourceDonation   = "donation"
	SourceRedemption = "redemption"
	SourceVoucher    = "voucher"
)

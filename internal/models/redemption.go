package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionRequest is a bank cash-out of reward points.
// PointsRedeemed and Amount are fixed when the request is created; the balance is
// only debited when staff mark the transfer completed.
type RedemptionRequest struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PointsRedeemed int64           `gorm:"not null" json:"points_redeemed"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BankName       string          `gorm:"size:100" json:"bank_name"`
	AccountHolder  string          `gorm:"size:255" json:"account_holder"`
	AccountNumber  string          `gorm:"size:64" json:"account_number"`
	Status         string          `gorm:"size:20;not null;index" json:"status"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for RedemptionRequest model.
func (RedemptionRequest) TableName() string {
	return "redemptions"
}

// Redemption status constants.
const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusCompleted = "completed"
	RedemptionStatusCancelled = "cancelled"
)

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointSettingsID is the primary key of the singleton settings row.
const PointSettingsID = 1

// PointSettings configures automatic grants and cash-out conversion.
type PointSettings struct {
	ID                  uint            `gorm:"primaryKey;autoIncrement:false" json:"-"`
	AutoGrantEnabled    bool            `gorm:"not null" json:"auto_grant_enabled"`
	RecyclingPerKg      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"recycling_per_kg"`
	OrganicPerKg        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"organic_per_kg"`
	DonationPerPiece    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"donation_per_piece"`
	PointValue          decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"point_value"`
	MinRedemptionPoints int64           `gorm:"not null;default:0" json:"min_redemption_points"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for PointSettings model.
func (PointSettings) TableName() string {
	return "point_settings"
}

// RateFor returns the per-kg rate for an item category. General waste earns nothing.
func (s *PointSettings) RateFor(category string) decimal.Decimal {
	switch category {
	case CategoryRecyclable:
		return s.RecyclingPerKg
	case CategoryOrganic:
		return s.OrganicPerKg
	default:
		return decimal.Zero
	}
}

package models

import (
	"time"
)

// Donation is a gift of reusable items (clothes, furniture, books).
type Donation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Description   string     `gorm:"type:text" json:"description"`
	Quantity      int        `gorm:"not null" json:"quantity"`
	Status        string     `gorm:"size:20;not null;index" json:"status"`
	PointsAwarded int64      `gorm:"not null;default:0" json:"points_awarded"`
	AwardedAt     *time.Time `json:"awarded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Donation model.
func (Donation) TableName() string {
	return "donations"
}

// Donation status constants.
const (
	DonationStatusPending  = "pending"
	DonationStatusReceived = "received"
	DonationStatusApproved = "approved"
	DonationStatusRejected = "rejected"
)

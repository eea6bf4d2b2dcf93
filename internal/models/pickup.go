package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType is a catalog entry that tags a collectible item with a reward category.
type ItemType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Category  string    `gorm:"size:20;not null" json:"category"`
	Unit      string    `gorm:"size:10;not null;default:kg" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ItemType model.
func (ItemType) TableName() string {
	return "item_types"
}

// Pickup is a scheduled waste collection at a resident's address.
type Pickup struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;index" json:"user_id"`
	User          *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Address       string       `gorm:"type:text" json:"address"`
	Status        string       `gorm:"size:20;not null;index" json:"status"`
	ScheduledFor  time.Time    `json:"scheduled_for"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	PointsAwarded int64        `gorm:"not null;default:0" json:"points_awarded"`
	Items         []PickupItem `gorm:"foreignKey:PickupID" json:"items,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Pickup model.
func (Pickup) TableName() string {
	return "pickups"
}

// PickupItem is one line of a pickup. Category is resolved through the catalog when the
// pickup is created and never re-derived from the name afterwards.
type PickupItem struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	PickupID uint            `gorm:"not null;index" json:"pickup_id"`
	ItemName string          `gorm:"size:100;not null" json:"item_name"`
	Category string          `gorm:"size:20;not null" json:"category"`
	Quantity decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
}

// TableName specifies the table name for PickupItem model.
func (PickupItem) TableName() string {
	return "pickup_items"
}

// Pickup status constants.
const (
	PickupStatusScheduled = "scheduled"
	PickupStatusCompleted = "completed"
	PickupStatusCancelled = "cancelled"
)

// Item category constants.
const (
	CategoryRecyclable = "recyclable"
	CategoryOrganic    = "organic"
	CategoryGeneral    = "general"
)

package models

import (
	"time"
)

// User represents a portal resident or staff member.
// Identity is owned by the user directory; the ledger only references it.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Role      string    `gorm:"size:20;default:user" json:"role"` // 'user' or 'admin'
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserBalance holds the current points total of a user.
// It must always equal the sum of the user's PointsLogEntry deltas and is
// only written through the ledger service.
type UserBalance struct {
	UserID        uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User          *User     `gorm:"foreignKey:UserID" json:"-"`
	PointsBalance int64     `gorm:"not null;default:0;check:points_balance >= 0" json:"points_balance"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserBalance model.
func (UserBalance) TableName() string {
	return "user_balances"
}

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

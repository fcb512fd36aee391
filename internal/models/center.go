package models

import (
	"time"
)

// Center is an independently operated branch.
// PasswordHash holds a bcrypt hash and is never serialized.
type Center struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ManagerName  string    `json:"managerName,omitempty"`
	Address      string    `json:"address,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Center model
func (Center) TableName() string {
	return "centers"
}

// UnknownCenterName is shown when an activity references a center that no longer exists
const UnknownCenterName = "unknown center"

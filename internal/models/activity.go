package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Category is the closed set of activity kinds. It is resolved once when a record
// is written and stored as-is; readers never re-interpret it.
type Category string

const (
	CategoryInventory   Category = "inventory"
	CategorySales       Category = "sales"
	CategoryMaintenance Category = "maintenance"
	CategoryCustomer    Category = "customer"
	CategoryTechnician  Category = "technician"
	CategoryLogin       Category = "login"
	CategoryLogout      Category = "logout"
	CategorySession     Category = "session"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryInventory,
	CategorySales,
	CategoryMaintenance,
	CategoryCustomer,
	CategoryTechnician,
	CategoryLogin,
	CategoryLogout,
	CategorySession,
	CategoryOther,
}

// ParseCategory maps free-form input (including legacy aliases) onto a Category.
// Unknown values become CategoryOther.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inventory":
		return CategoryInventory
	case "sales", "sale":
		return CategorySales
	case "maintenance":
		return CategoryMaintenance
	case "customer":
		return CategoryCustomer
	case "technician":
		return CategoryTechnician
	case "login":
		return CategoryLogin
	case "logout":
		return CategoryLogout
	case "session", "session_start", "session_end":
		return CategorySession
	default:
		return CategoryOther
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ActivityRecord is one immutable audit entry in a center's own log.
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type ActivityRecord struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID    string         `gorm:"not null;index:idx_center_activities_center_ts,priority:1" json:"centerId"`
	ActorID     string         `json:"actorId"`
	ActorName   string         `json:"actorName"`
	Timestamp   time.Time      `gorm:"not null;index:idx_center_activities_center_ts,priority:2" json:"timestamp"`
	Category    Category       `gorm:"type:varchar(32);not null;index" json:"category"`
	Action      string         `gorm:"not null" json:"action"`
	Description string         `json:"description"`
	TargetID    string         `json:"targetId,omitempty"`
	TargetName  string         `json:"targetName,omitempty"`
	Details     datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TableName specifies the table name for ActivityRecord model
func (ActivityRecord) TableName() string {
	return "center_activities"
}

// GlobalActivity is the cross-center copy of an ActivityRecord read by the admin views.
// LocalID points back at the center-scoped record it mirrors.
type GlobalActivity struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	LocalID     string         `gorm:"type:uuid;uniqueIndex" json:"localId"`
	CenterID    string         `gorm:"not null;index" json:"centerId"`
	CenterName  string         `json:"centerName"`
	ActorID     string         `json:"actorId"`
	ActorName   string         `json:"actorName"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Category    Category       `gorm:"type:varchar(32);not null;index" json:"category"`
	Action      string         `gorm:"not null" json:"action"`
	Description string         `json:"description"`
	TargetID    string         `json:"targetId,omitempty"`
	TargetName  string         `json:"targetName,omitempty"`
	Details     datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TableName specifies the table name for GlobalActivity model
func (GlobalActivity) TableName() string {
	return "global_activities"
}

// Mirror builds the global copy of a center-scoped record
func (a ActivityRecord) Mirror(id, centerName string) GlobalActivity {
	return GlobalActivity{
		ID:          id,
		LocalID:     a.ID,
		CenterID:    a.CenterID,
		CenterName:  centerName,
		ActorID:     a.ActorID,
		ActorName:   a.ActorName,
		Timestamp:   a.Timestamp,
		Category:    a.Category,
		Action:      a.Action,
		Description: a.Description,
		TargetID:    a.TargetID,
		TargetName:  a.TargetName,
		Details:     a.Details,
	}
}

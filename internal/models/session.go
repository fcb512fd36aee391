package models

import (
	"time"
)

// ActiveSessionIndex is the partial unique index that allows a single open session per center
const ActiveSessionIndex = "ux_center_sessions_active"

// CenterSession is one continuous period of use of a center.
// Open (IsActive) -> Closed; a closed session is never reopened.
type CenterSession struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	CenterID     string     `gorm:"not null;index:idx_center_sessions_center_start,priority:1" json:"centerId"`
	CenterName   string     `json:"centerName"`
	SessionStart time.Time  `gorm:"not null;index:idx_center_sessions_center_start,priority:2,sort:desc" json:"sessionStart"`
	SessionEnd   *time.Time `json:"sessionEnd,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	EndedBy      string     `json:"endedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for CenterSession model
func (CenterSession) TableName() string {
	return "center_sessions"
}

// DurationMinutes returns whole minutes between start and end (or now while open).
// The result is truncated and never negative.
func (s CenterSession) DurationMinutes(now time.Time) int64 {
	end := now
	if s.SessionEnd != nil {
		end = *s.SessionEnd
	}
	d := end.Sub(s.SessionStart)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// Window returns the [start, end] interval covered by the session; end is nil while open
func (s CenterSession) Window() (time.Time, *time.Time) {
	return s.SessionStart, s.SessionEnd
}

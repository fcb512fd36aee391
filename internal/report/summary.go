package report

import (
	"strings"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
)

// Summary tallies sessions and activities
type Summary struct {
	TotalSessions   int                     `json:"totalSessions"`
	ActiveSessions  int                     `json:"activeSessions"`
	EndedSessions   int                     `json:"endedSessions"`
	TotalActivities int                     `json:"totalActivities"`
	ByCategory      map[models.Category]int `json:"byCategory"`
	ByCenter        map[string]int          `json:"byCenter"`
	ByActor         map[string]int          `json:"byActor"`
	ByTarget        map[string]int          `json:"byTarget"`
}

// Summarize counts sessions by state and activities by category, center, actor and target
func Summarize(sessions []SessionWithStats, activities []ActivityWithCenter) Summary {
	s := Summary{
		TotalSessions:   len(sessions),
		TotalActivities: len(activities),
		ByCategory:      make(map[models.Category]int),
		ByCenter:        make(map[string]int),
		ByActor:         make(map[string]int),
		ByTarget:        make(map[string]int),
	}
	for _, sess := range sessions {
		if sess.IsActive {
			s.ActiveSessions++
		} else {
			s.EndedSessions++
		}
	}
	for _, a := range activities {
		s.ByCategory[a.Category]++
		s.ByCenter[a.CenterName]++
		s.ByActor[a.ActorName]++
		if a.TargetName != "" {
			s.ByTarget[a.TargetName]++
		}
	}
	return s
}

// Session status filter values
const (
	StatusAll    = "all"
	StatusActive = "active"
	StatusEnded  = "ended"
)

// SessionFilter narrows a session list. Zero fields match everything.
type SessionFilter struct {
	Status   string
	CenterID string
	Search   string
	// Date keeps sessions that started on the same calendar day, in Date's location
	Date time.Time
}

// FilterSessions returns the sessions matching f, preserving order
func FilterSessions(sessions []SessionWithStats, f SessionFilter) []SessionWithStats {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]SessionWithStats, 0, len(sessions))
	for _, s := range sessions {
		switch f.Status {
		case StatusActive:
			if !s.IsActive {
				continue
			}
		case StatusEnded:
			if s.IsActive {
				continue
			}
		}
		if f.CenterID != "" && s.CenterID != f.CenterID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.CenterName), search) {
			continue
		}
		if !f.Date.IsZero() && !sameDay(s.SessionStart, f.Date) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ActivityFilter narrows an activity list. Zero fields match everything.
type ActivityFilter struct {
	Category models.Category
	CenterID string
	Search   string
}

// FilterActivities returns the activities matching f, preserving order.
// Search matches description, action, actor and target case-insensitively.
func FilterActivities(activities []ActivityWithCenter, f ActivityFilter) []ActivityWithCenter {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]ActivityWithCenter, 0, len(activities))
	for _, a := range activities {
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.CenterID != "" && a.CenterID != f.CenterID {
			continue
		}
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesSearch(a ActivityWithCenter, search string) bool {
	for _, field := range []string{a.Description, a.Action, a.ActorName, a.TargetName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

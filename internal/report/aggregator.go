// Package report builds the administrator's cross-center views: session
// history with activity counts, the global activity feed, summaries and the
// business report, plus their PDF and XLSX exports.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

const (
	// SessionsPerCenter caps how many recent sessions LoadAllSessions reads per center
	SessionsPerCenter = 50
	// DefaultCenterActivities is the LoadCenterActivities limit when none is given
	DefaultCenterActivities = 100
)

// TimeRange selects the window of the global activity feed
type TimeRange string

const (
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeAll   TimeRange = "all"
)

// ParseTimeRange maps a query value onto a TimeRange, defaulting to RangeAll
func ParseTimeRange(s string) TimeRange {
	switch TimeRange(strings.ToLower(strings.TrimSpace(s))) {
	case RangeToday:
		return RangeToday
	case RangeWeek:
		return RangeWeek
	case RangeMonth:
		return RangeMonth
	default:
		return RangeAll
	}
}

// Window returns the lower bound (nil for no bound) and record cap of r at now.
// today and month are calendar boundaries in loc; week is a rolling 7 days.
func (r TimeRange) Window(now time.Time, loc *time.Location) (*time.Time, int) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	switch r {
	case RangeToday:
		from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return &from, 1000
	case RangeWeek:
		from := now.Add(-7 * 24 * time.Hour)
		return &from, 2000
	case RangeMonth:
		from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return &from, 5000
	default:
		return nil, 1000
	}
}

// SessionWithStats is a session plus what happened during it
type SessionWithStats struct {
	models.CenterSession
	ActivitiesCount int64 `json:"activitiesCount"`
	DurationMinutes int64 `json:"durationMinutes"`
}

// ActivityWithCenter is a global activity whose CenterName was resolved
// against the current center list.
type ActivityWithCenter = models.GlobalActivity

// Options tune the Aggregator
type Options struct {
	Now      func() time.Time
	Location *time.Location
}

// Aggregator reads across all centers
type Aggregator struct {
	st  *store.Store
	log *zap.Logger
	now func() time.Time
	loc *time.Location
}

// NewAggregator creates an Aggregator
func NewAggregator(st *store.Store, log *zap.Logger, opts Options) *Aggregator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Aggregator{st: st, log: log, now: opts.Now, loc: opts.Location}
}

// Now returns the aggregator's clock reading
func (a *Aggregator) Now() time.Time {
	return a.now()
}

// LoadAllSessions walks the centers in order and returns their recent sessions
// with activity counts, newest first. A center whose reads fail is logged and
// left out; only a failure to list centers is returned.
func (a *Aggregator) LoadAllSessions(ctx context.Context) ([]SessionWithStats, error) {
	centers, err := a.st.Centers.ListCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}

	now := a.now()
	var out []SessionWithStats
	for _, c := range centers {
		stats, err := a.centerSessions(ctx, c.ID, now)
		if err != nil {
			a.log.Error("failed to load center sessions",
				zap.String("center_id", c.ID),
				zap.String("collection", "center_sessions"),
				zap.Error(err))
			continue
		}
		out = append(out, stats...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SessionStart.After(out[j].SessionStart)
	})
	return out, nil
}

// LoadSessionsInRange is LoadAllSessions narrowed to the sessions that overlap
// r's window, so it pairs with LoadGlobalActivities for the same r. A session
// still open, or one that ended inside the window, overlaps it.
func (a *Aggregator) LoadSessionsInRange(ctx context.Context, r TimeRange) ([]SessionWithStats, error) {
	sessions, err := a.LoadAllSessions(ctx)
	if err != nil {
		return nil, err
	}
	from, _ := r.Window(a.now(), a.loc)
	if from == nil {
		return sessions, nil
	}

	out := sessions[:0]
	for _, s := range sessions {
		if s.SessionEnd == nil || !s.SessionEnd.Before(*from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (a *Aggregator) centerSessions(ctx context.Context, centerID string, now time.Time) ([]SessionWithStats, error) {
	sessions, err := a.st.Sessions.ListSessions(ctx, centerID, SessionsPerCenter)
	if err != nil {
		return nil, err
	}

	out := make([]SessionWithStats, 0, len(sessions))
	for _, s := range sessions {
		to := s.SessionEnd
		if to == nil {
			to = &now
		}
		n, err := a.st.Activities.CountLocal(ctx, centerID, s.SessionStart, to)
		if err != nil {
			return nil, fmt.Errorf("count activities of session %s: %w", s.ID, err)
		}
		out = append(out, SessionWithStats{
			CenterSession:   s,
			ActivitiesCount: n,
			DurationMinutes: s.DurationMinutes(now),
		})
	}
	return out, nil
}

// LoadGlobalActivities returns the global feed for r, newest first
func (a *Aggregator) LoadGlobalActivities(ctx context.Context, r TimeRange) ([]ActivityWithCenter, error) {
	from, limit := r.Window(a.now(), a.loc)

	activities, err := a.st.Activities.ListGlobal(ctx, store.ActivityQuery{From: from, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list global activities: %w", err)
	}

	centers, err := a.st.Centers.ListCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	names := make(map[string]string, len(centers))
	for _, c := range centers {
		names[c.ID] = c.Name
	}

	for i := range activities {
		name, ok := names[activities[i].CenterID]
		if !ok {
			name = models.UnknownCenterName
		}
		activities[i].CenterName = name
	}
	return activities, nil
}

// LoadCenterActivities returns a center's most recent activities
func (a *Aggregator) LoadCenterActivities(ctx context.Context, centerID string, limit int) ([]models.ActivityRecord, error) {
	if limit <= 0 {
		limit = DefaultCenterActivities
	}
	return a.st.Activities.ListLocal(ctx, centerID, store.ActivityQuery{Limit: limit})
}

// LoadSessionActivities returns the activities recorded during one session, newest first
func (a *Aggregator) LoadSessionActivities(ctx context.Context, centerID, sessionID string) ([]models.ActivityRecord, error) {
	s, err := a.st.Sessions.GetSession(ctx, centerID, sessionID)
	if err != nil {
		return nil, err
	}
	to := s.SessionEnd
	if to == nil {
		now := a.now()
		to = &now
	}
	from := s.SessionStart
	return a.st.Activities.ListLocal(ctx, centerID, store.ActivityQuery{From: &from, To: to})
}

// Location is the zone calendar windows are computed in
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

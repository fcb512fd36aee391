// Package session manages the single open working session of each center.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when ending a session that already ended
var ErrSessionClosed = store.ErrSessionNotOpen

// EndedBy values
const (
	EndedByUser  = "user"
	EndedByAdmin = "admin"
	EndedBySweep = "timeout"
)

// Manager opens and closes center sessions and records both in the activity log
type Manager struct {
	sessions store.SessionStore
	centers  store.CenterStore
	activity activity.Recorder
	log      *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager. now may be nil.
func NewManager(sessions store.SessionStore, centers store.CenterStore, rec activity.Recorder,
	log *zap.Logger, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{sessions: sessions, centers: centers, activity: rec, log: log, now: now}
}

// GetActive returns the center's open session, or nil when there is none
func (m *Manager) GetActive(ctx context.Context, centerID string) (*models.CenterSession, error) {
	return m.sessions.ActiveSession(ctx, centerID)
}

// Start opens a new session. It fails with store.ErrActiveSessionExists when
// the center already has one.
func (m *Manager) Start(ctx context.Context, actor auth.Principal) (*models.CenterSession, error) {
	if actor.CenterID == "" {
		return nil, fmt.Errorf("start session: no center")
	}

	name := actor.CenterName
	if c, err := m.centers.GetCenter(ctx, actor.CenterID); err == nil {
		name = c.Name
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load center %s: %w", actor.CenterID, err)
	}
	if name == "" {
		name = models.UnknownCenterName
	}

	sess := &models.CenterSession{
		ID:           uuid.NewString(),
		CenterID:     actor.CenterID,
		CenterName:   name,
		SessionStart: m.now(),
		IsActive:     true,
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	m.log.Info("session started", zap.String("center_id", sess.CenterID), zap.String("session_id", sess.ID))
	m.activity.Log(ctx, actor.InCenter(sess.CenterID, sess.CenterName), activity.Entry{
		Category:    models.CategorySession,
		Action:      "session_start",
		Description: "session started",
		TargetID:    sess.ID,
		Details:     map[string]string{"sessionId": sess.ID},
		Timestamp:   sess.SessionStart,
	})
	return sess, nil
}

// EnsureActive returns the open session or starts one. A failed lookup is an
// error, never treated as "no session".
func (m *Manager) EnsureActive(ctx context.Context, actor auth.Principal) (*models.CenterSession, error) {
	active, err := m.sessions.ActiveSession(ctx, actor.CenterID)
	if err != nil {
		return nil, fmt.Errorf("look up active session: %w", err)
	}
	if active != nil {
		return active, nil
	}

	sess, err := m.Start(ctx, actor)
	if errors.Is(err, store.ErrActiveSessionExists) {
		// lost the race to a concurrent start
		active, err = m.sessions.ActiveSession(ctx, actor.CenterID)
		if err != nil {
			return nil, fmt.Errorf("look up active session: %w", err)
		}
		if active == nil {
			return nil, store.ErrActiveSessionExists
		}
		return active, nil
	}
	return sess, err
}

// End closes one of the actor's center sessions
func (m *Manager) End(ctx context.Context, actor auth.Principal, sessionID string) (*models.CenterSession, error) {
	return m.close(ctx, actor, actor.CenterID, sessionID, EndedByUser)
}

// ForceEnd lets an administrator close any center's session
func (m *Manager) ForceEnd(ctx context.Context, admin auth.Principal, centerID, sessionID string) (*models.CenterSession, error) {
	return m.close(ctx, admin, centerID, sessionID, EndedByAdmin)
}

func (m *Manager) close(ctx context.Context, actor auth.Principal, centerID, sessionID, endedBy string) (*models.CenterSession, error) {
	sess, err := m.sessions.CloseSession(ctx, centerID, sessionID, m.now(), endedBy)
	if err != nil {
		return sess, err
	}

	m.log.Info("session ended",
		zap.String("center_id", centerID),
		zap.String("session_id", sessionID),
		zap.String("ended_by", endedBy))
	m.activity.Log(ctx, actor.InCenter(sess.CenterID, sess.CenterName), activity.Entry{
		Category:    models.CategorySession,
		Action:      "session_end",
		Description: "session ended by " + endedBy,
		TargetID:    sess.ID,
		Details: map[string]interface{}{
			"sessionId":       sess.ID,
			"durationMinutes": sess.DurationMinutes(m.now()),
			"endedBy":         endedBy,
		},
		Timestamp: *sess.SessionEnd,
	})
	return sess, nil
}

// Sweep closes sessions that have been open longer than maxAge and returns how many it closed
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	active, err := m.sessions.ListActiveSessions(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	system := auth.Principal{Role: auth.RoleAdmin, UserID: "system", Name: "system"}
	closed := 0
	for _, s := range active {
		if now.Sub(s.SessionStart) < maxAge {
			continue
		}
		_, err := m.close(ctx, system, s.CenterID, s.ID, EndedBySweep)
		if errors.Is(err, store.ErrSessionNotOpen) {
			continue
		}
		if err != nil {
			m.log.Error("failed to close stale session",
				zap.String("center_id", s.CenterID),
				zap.String("session_id", s.ID),
				zap.Error(err))
			continue
		}
		closed++
	}
	return closed, nil
}

// RunSweeper sweeps every interval until ctx is cancelled
func (m *Manager) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx, maxAge)
			if err != nil && ctx.Err() == nil {
				m.log.Error("session sweep failed", zap.Error(err))
			} else if n > 0 {
				m.log.Info("closed stale sessions", zap.Int("count", n))
			}
		}
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/activity"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var riyadh = auth.Principal{Role: auth.RoleCenter, UserID: "riyadh", Email: "ops@riyadh.sa", CenterID: "riyadh"}

func setup(t *testing.T) (*Manager, *store.MemoryStore, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}
	_, ms := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, ms.CreateCenter(ctx, &models.Center{ID: "riyadh", Name: "Riyadh Center", Email: "r@x.sa"}))
	require.NoError(t, ms.CreateCenter(ctx, &models.Center{ID: "jeddah", Name: "Jeddah Center", Email: "j@x.sa"}))

	rec := activity.NewLogger(ms, zap.NewNop(), activity.WithClock(clk.Now))
	return NewManager(ms, ms, rec, zap.NewNop(), clk.Now), ms, clk
}

func TestStartAndEnd(t *testing.T) {
	m, ms, clk := setup(t)
	ctx := context.Background()

	sess, err := m.Start(ctx, riyadh)
	require.NoError(t, err)
	assert.Equal(t, "Riyadh Center", sess.CenterName)
	assert.True(t, sess.IsActive)

	active, err := m.GetActive(ctx, "riyadh")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, sess.ID, active.ID)

	clk.Advance(95 * time.Second)
	ended, err := m.End(ctx, riyadh, sess.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.SessionEnd)
	assert.False(t, ended.SessionEnd.Before(ended.SessionStart))
	assert.Equal(t, int64(1), ended.DurationMinutes(clk.Now()))
	assert.Equal(t, EndedByUser, ended.EndedBy)

	active, err = m.GetActive(ctx, "riyadh")
	require.NoError(t, err)
	assert.Nil(t, active)

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, local, 2)
	assert.Equal(t, "session_end", local[0].Action)
	assert.Equal(t, "session_start", local[1].Action)
	assert.Equal(t, models.CategorySession, local[0].Category)
}

func TestStartTwiceFails(t *testing.T) {
	m, ms, _ := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, riyadh)
	require.NoError(t, err)
	_, err = m.Start(ctx, riyadh)
	assert.ErrorIs(t, err, store.ErrActiveSessionExists)
	assert.Equal(t, 1, ms.ActiveCount("riyadh"))
}

func TestConcurrentStartYieldsOneSession(t *testing.T) {
	m, ms, _ := setup(t)
	ctx := context.Background()

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		other   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Start(ctx, riyadh)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else {
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	for _, err := range other {
		assert.ErrorIs(t, err, store.ErrActiveSessionExists)
	}
	assert.Equal(t, 1, ms.ActiveCount("riyadh"))
}

func TestConcurrentEnsureActiveShareSession(t *testing.T) {
	m, ms, _ := setup(t)
	ctx := context.Background()

	const n = 16
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.EnsureActive(ctx, riyadh)
			if assert.NoError(t, err) {
				ids <- s.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
	assert.Equal(t, 1, ms.ActiveCount("riyadh"))
}

func TestSerialStartEndKeepsAtMostOneActive(t *testing.T) {
	m, ms, clk := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s, err := m.Start(ctx, riyadh)
		require.NoError(t, err)
		assert.Equal(t, 1, ms.ActiveCount("riyadh"))
		clk.Advance(time.Minute)
		_, err = m.End(ctx, riyadh, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, ms.ActiveCount("riyadh"))
	}

	all, err := ms.ListSessions(ctx, "riyadh", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for _, s := range all {
		require.NotNil(t, s.SessionEnd)
		assert.False(t, s.SessionEnd.Before(s.SessionStart))
		assert.GreaterOrEqual(t, s.DurationMinutes(clk.Now()), int64(0))
	}
}

func TestEnsureActiveLookupErrorIsNotAbsence(t *testing.T) {
	m, ms, _ := setup(t)
	ctx := context.Background()

	ms.FailOn(store.OpActiveSession, "riyadh", errors.New("timeout"))
	_, err := m.EnsureActive(ctx, riyadh)
	require.Error(t, err)
	assert.Equal(t, 0, ms.ActiveCount("riyadh"), "no orphan session is created")
}

func TestEnsureActiveReusesOpenSession(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()

	first, err := m.EnsureActive(ctx, riyadh)
	require.NoError(t, err)
	second, err := m.EnsureActive(ctx, riyadh)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEndTwice(t *testing.T) {
	m, _, clk := setup(t)
	ctx := context.Background()

	s, err := m.Start(ctx, riyadh)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = m.End(ctx, riyadh, s.ID)
	require.NoError(t, err)

	_, err = m.End(ctx, riyadh, s.ID)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestEndOtherCentersSession(t *testing.T) {
	m, _, _ := setup(t)
	ctx := context.Background()

	jeddah := auth.Principal{Role: auth.RoleCenter, UserID: "jeddah", CenterID: "jeddah"}
	s, err := m.Start(ctx, jeddah)
	require.NoError(t, err)

	_, err = m.End(ctx, riyadh, s.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestForceEndLogsUnderCenter(t *testing.T) {
	m, ms, clk := setup(t)
	ctx := context.Background()

	s, err := m.Start(ctx, riyadh)
	require.NoError(t, err)
	clk.Advance(time.Hour)

	admin := auth.Principal{Role: auth.RoleAdmin, UserID: "admin", Name: "admin"}
	ended, err := m.ForceEnd(ctx, admin, "riyadh", s.ID)
	require.NoError(t, err)
	assert.Equal(t, EndedByAdmin, ended.EndedBy)

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	require.NotEmpty(t, local)
	assert.Equal(t, "admin", local[0].ActorName)
	assert.Equal(t, "session_end", local[0].Action)
}

func TestSweepClosesStaleSessions(t *testing.T) {
	m, ms, clk := setup(t)
	ctx := context.Background()

	_, err := m.Start(ctx, riyadh)
	require.NoError(t, err)
	clk.Advance(20 * time.Hour)
	_, err = m.Start(ctx, auth.Principal{Role: auth.RoleCenter, CenterID: "jeddah"})
	require.NoError(t, err)
	clk.Advance(5 * time.Hour)

	n, err := m.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, ms.ActiveCount("riyadh"))
	assert.Equal(t, 1, ms.ActiveCount("jeddah"))
}

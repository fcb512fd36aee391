package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/models"
)

func newSession(id, centerID string, start time.Time) *models.CenterSession {
	return &models.CenterSession{
		ID:           id,
		CenterID:     centerID,
		CenterName:   centerID,
		SessionStart: start,
		IsActive:     true,
	}
}

func TestMemoryCreateSession_OneActivePerCenter(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Now()

	require.NoError(t, ms.CreateSession(ctx, newSession("a", "riyadh", now)))
	err := ms.CreateSession(ctx, newSession("b", "riyadh", now))
	assert.ErrorIs(t, err, ErrActiveSessionExists)

	// other centers are independent
	require.NoError(t, ms.CreateSession(ctx, newSession("c", "jeddah", now)))

	// closing frees the slot
	_, err = ms.CloseSession(ctx, "riyadh", "a", now.Add(time.Minute), "user")
	require.NoError(t, err)
	require.NoError(t, ms.CreateSession(ctx, newSession("d", "riyadh", now.Add(2*time.Minute))))
	assert.Equal(t, 1, ms.ActiveCount("riyadh"))
}

func TestMemoryCreateSession_Concurrent(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- ms.CreateSession(ctx, newSession(string(rune('a'+i)), "riyadh", time.Now()))
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrActiveSessionExists)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, ms.ActiveCount("riyadh"))
}

func TestMemoryCloseSession(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	start := time.Now()
	require.NoError(t, ms.CreateSession(ctx, newSession("a", "riyadh", start)))

	_, err := ms.CloseSession(ctx, "jeddah", "a", start, "user")
	assert.ErrorIs(t, err, ErrNotFound, "wrong center must not see the session")

	sess, err := ms.CloseSession(ctx, "riyadh", "a", start.Add(time.Hour), "user")
	require.NoError(t, err)
	assert.False(t, sess.IsActive)
	assert.Equal(t, "user", sess.EndedBy)

	again, err := ms.CloseSession(ctx, "riyadh", "a", start.Add(2*time.Hour), "admin")
	assert.ErrorIs(t, err, ErrSessionNotOpen)
	assert.Equal(t, start.Add(time.Hour), *again.SessionEnd, "closed session keeps its first end")
}

func TestMemoryFailOn(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	boom := errors.New("boom")
	ms.FailOn(OpAppendGlobal, "riyadh", boom)

	rec := &models.ActivityRecord{ID: "1", CenterID: "riyadh", Timestamp: time.Now()}
	require.NoError(t, ms.AppendLocal(ctx, rec))
	assert.ErrorIs(t, ms.AppendGlobal(ctx, &models.GlobalActivity{ID: "g1", LocalID: "1", CenterID: "riyadh"}), boom)
	assert.NoError(t, ms.AppendGlobal(ctx, &models.GlobalActivity{ID: "g2", LocalID: "2", CenterID: "jeddah"}))

	ms.ClearFailures()
	assert.NoError(t, ms.AppendGlobal(ctx, &models.GlobalActivity{ID: "g3", LocalID: "1", CenterID: "riyadh"}))
}

func TestMemoryListLocal_WindowAndOrder(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{-48 * time.Hour, -time.Hour, 0, time.Hour} {
		require.NoError(t, ms.AppendLocal(ctx, &models.ActivityRecord{
			ID:        string(rune('a' + i)),
			CenterID:  "riyadh",
			Timestamp: base.Add(offset),
			Category:  models.CategorySales,
		}))
	}

	from := base.Add(-2 * time.Hour)
	to := base
	got, err := ms.ListLocal(ctx, "riyadh", ActivityQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	n, err := ms.CountLocal(ctx, "riyadh", from, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemoryLocalWithoutMirror(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()
	now := time.Now()

	a := models.ActivityRecord{ID: "a", CenterID: "riyadh", Timestamp: now}
	b := models.ActivityRecord{ID: "b", CenterID: "riyadh", Timestamp: now.Add(-time.Minute)}
	require.NoError(t, ms.AppendLocal(ctx, &a))
	require.NoError(t, ms.AppendLocal(ctx, &b))
	g := a.Mirror("ga", "Riyadh")
	require.NoError(t, ms.AppendGlobal(ctx, &g))

	missing, err := ms.LocalWithoutMirror(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "b", missing[0].ID)
}

func TestMemoryRecords_CenterScoped(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecords[models.Technician]()

	require.NoError(t, r.Create(ctx, models.Technician{ID: "t1", CenterID: "riyadh", Name: "Ali"}))
	require.NoError(t, r.Create(ctx, models.Technician{ID: "t2", CenterID: "jeddah", Name: "Omar"}))

	_, err := r.Get(ctx, "jeddah", "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := r.List(ctx, "riyadh")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "t2", all[0].ID, "newest first")

	assert.ErrorIs(t, r.Update(ctx, models.Technician{ID: "t1", CenterID: "jeddah"}), ErrNotFound)
	require.NoError(t, r.Delete(ctx, "riyadh", "t1"))
	assert.ErrorIs(t, r.Delete(ctx, "riyadh", "t1"), ErrNotFound)
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ms := NewMemoryStore()
	_, err := ms.ListCenters(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryAppendGlobal_RejectsDuplicateMirror(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	a := models.ActivityRecord{ID: "a", CenterID: "riyadh", Timestamp: time.Now()}
	require.NoError(t, ms.AppendLocal(ctx, &a))
	first := a.Mirror("g1", "Riyadh")
	require.NoError(t, ms.AppendGlobal(ctx, &first))

	second := a.Mirror("g2", "Riyadh")
	assert.ErrorIs(t, ms.AppendGlobal(ctx, &second), ErrDuplicate)
	assert.Equal(t, 1, ms.GlobalCount("riyadh"))
}

func TestMemoryInventory_AdjustQuantity(t *testing.T) {
	ctx := context.Background()
	inv := NewMemoryInventory()
	require.NoError(t, inv.Create(ctx, models.InventoryItem{ID: "i1", CenterID: "riyadh", Name: "Fan", Quantity: 2}))

	item, err := inv.AdjustQuantity(ctx, "riyadh", "i1", -2)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	item, err = inv.AdjustQuantity(ctx, "riyadh", "i1", -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, item.Quantity)

	_, err = inv.AdjustQuantity(ctx, "jeddah", "i1", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	item, err = inv.AdjustQuantity(ctx, "riyadh", "i1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
}

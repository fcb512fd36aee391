package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

func TestReconcile_RepairsMissingMirror(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	require.NoError(t, ms.CreateCenter(ctx, &models.Center{ID: "riyadh", Name: "Riyadh Center", Email: "r@x.sa"}))
	l := NewLogger(ms, zap.NewNop())

	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "first"})
	ms.FailOn(store.OpAppendGlobal, "riyadh", errors.New("global down"))
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "second"})
	ms.ClearFailures()

	require.Equal(t, 2, ms.LocalCount("riyadh"))
	require.Equal(t, 1, ms.GlobalCount("riyadh"))

	r := NewReconciler(ms, ms, zap.NewNop())
	r.Grace = 0

	n, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, ms.GlobalCount("riyadh"))

	global, err := ms.ListGlobal(ctx, store.ActivityQuery{CenterID: "riyadh"})
	require.NoError(t, err)
	for _, g := range global {
		assert.Equal(t, "Riyadh Center", g.CenterName)
	}

	// nothing left to do
	n, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcile_GraceSkipsFreshRecords(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	ms.FailOn(store.OpAppendGlobal, "", errors.New("global down"))
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})
	ms.ClearFailures()

	r := NewReconciler(ms, ms, zap.NewNop())
	r.Grace = time.Hour

	n, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcile_UnknownCenter(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	ms.FailOn(store.OpAppendGlobal, "", errors.New("global down"))
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})
	ms.ClearFailures()

	r := NewReconciler(ms, ms, zap.NewNop())
	r.Grace = 0
	_, err := r.Reconcile(ctx)
	require.NoError(t, err)

	global, err := ms.ListGlobal(ctx, store.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, models.UnknownCenterName, global[0].CenterName)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	_, ms := store.NewMemory()
	r := NewReconciler(ms, ms, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

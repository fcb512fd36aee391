package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var riyadh = auth.Principal{
	Role:       auth.RoleCenter,
	UserID:     "riyadh",
	Email:      "ops@riyadh.sa",
	CenterID:   "riyadh",
	CenterName: "Riyadh Center",
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []models.GlobalActivity
	fail error
}

func (p *recordingPublisher) Publish(ctx context.Context, a models.GlobalActivity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, a)
	return p.fail
}

func (p *recordingPublisher) received() []models.GlobalActivity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.GlobalActivity(nil), p.got...)
}

// blockingPublisher holds every Publish call until release is closed
type blockingPublisher struct {
	recordingPublisher
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, a models.GlobalActivity) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.recordingPublisher.Publish(ctx, a)
}

func runLogger(t *testing.T, l *Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go l.Run(ctx)
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestLog_WritesBothLogs(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	pub := &recordingPublisher{}
	l := NewLogger(ms, zap.NewNop(), WithClock(fixedClock()), WithPublisher(pub))
	runLogger(t, l)

	l.Log(ctx, riyadh, Entry{
		Category:   models.CategoryInventory,
		Action:     "added item",
		TargetID:   "item-1",
		TargetName: "Filter",
		Details:    map[string]int{"quantity": 4},
	})

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, local, 1)
	rec := local[0]
	assert.Equal(t, "ops", rec.ActorName)
	assert.Equal(t, "added item", rec.Description, "description defaults to action")
	assert.Equal(t, fixedClock()(), rec.Timestamp)
	assert.JSONEq(t, `{"quantity":4}`, string(rec.Details))

	global, err := ms.ListGlobal(ctx, store.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, rec.ID, global[0].LocalID)
	assert.Equal(t, "Riyadh Center", global[0].CenterName)

	require.Eventually(t, func() bool { return len(pub.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, global[0].ID, pub.received()[0].ID)
}

func TestLog_NoCenterIsNoop(t *testing.T) {
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	l.Log(context.Background(), auth.Principal{Role: auth.RoleAdmin}, Entry{Action: "x"})

	all, err := ms.ListGlobal(context.Background(), store.ActivityQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLog_Backdated(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop(), WithClock(fixedClock()))

	past := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale", Timestamp: past})

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, past, local[0].Timestamp)
}

func TestLog_UnknownCategoryBecomesOther(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	l.Log(ctx, riyadh, Entry{Category: "session_start", Action: "a"})
	l.Log(ctx, riyadh, Entry{Category: "weird", Action: "b"})

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	cats := map[string]models.Category{}
	for _, r := range local {
		cats[r.Action] = r.Category
	}
	assert.Equal(t, models.CategorySession, cats["a"])
	assert.Equal(t, models.CategoryOther, cats["b"])
}

func TestLog_DuplicateCallsAreNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop(), WithClock(fixedClock()))

	e := Entry{Category: models.CategoryCustomer, Action: "added customer", TargetID: "c1"}
	l.Log(ctx, riyadh, e)
	l.Log(ctx, riyadh, e)

	assert.Equal(t, 2, ms.LocalCount("riyadh"))
	assert.Equal(t, 2, ms.GlobalCount("riyadh"))
}

func TestLog_CountsMatchWithoutFailures(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	jeddah := riyadh.InCenter("jeddah", "Jeddah Center")
	for i := 0; i < 5; i++ {
		l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})
	}
	for i := 0; i < 3; i++ {
		l.Log(ctx, jeddah, Entry{Category: models.CategorySales, Action: "sale"})
	}

	for _, c := range []string{"riyadh", "jeddah"} {
		assert.Equal(t, ms.LocalCount(c), ms.GlobalCount(c), c)
	}
	assert.Equal(t, 5, ms.LocalCount("riyadh"))
}

func TestLog_GlobalFailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	core, logs := observer.New(zapcore.InfoLevel)
	pub := &recordingPublisher{}
	l := NewLogger(ms, zap.New(core), WithPublisher(pub))

	ms.FailOn(store.OpAppendGlobal, "riyadh", errors.New("global down"))
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})

	assert.Equal(t, 1, ms.LocalCount("riyadh"))
	assert.Equal(t, 0, ms.GlobalCount("riyadh"))
	assert.Empty(t, l.queue, "nothing is published without a global copy")

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "global_activities", errs[0].ContextMap()["collection"])
}

func TestLog_LocalFailureKeepsGlobal(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLogger(ms, zap.New(core))

	ms.FailOn(store.OpAppendLocal, "riyadh", errors.New("local down"))
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})

	assert.Equal(t, 0, ms.LocalCount("riyadh"))
	assert.Equal(t, 1, ms.GlobalCount("riyadh"))
	assert.Equal(t, 1, logs.FilterMessage("failed to write center activity").Len())
}

func TestLog_PublisherErrorIsLoggedOnly(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	core, logs := observer.New(zapcore.InfoLevel)
	pub := &recordingPublisher{fail: errors.New("broker gone")}
	l := NewLogger(ms, zap.New(core), WithPublisher(pub))
	runLogger(t, l)

	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})

	assert.Equal(t, 1, ms.GlobalCount("riyadh"))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("failed to publish activity").Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLog_SlowPublisherDoesNotDelayLog(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	pub := &blockingPublisher{release: make(chan struct{})}
	l := NewLogger(ms, zap.NewNop(), WithPublisher(pub))
	runLogger(t, l)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "sale"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log waited for the publisher")
	}
	assert.Equal(t, 3, ms.GlobalCount("riyadh"))
	assert.Empty(t, pub.received())

	close(pub.release)
	assert.Eventually(t, func() bool { return len(pub.received()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestLog_FullQueueDropsWithoutBlocking(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLogger(ms, zap.New(core), WithPublisher(&recordingPublisher{}), WithQueueSize(1))

	// no Run loop, so the queue never drains
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "a"})
	l.Log(ctx, riyadh, Entry{Category: models.CategorySales, Action: "b"})

	assert.Equal(t, 2, ms.GlobalCount("riyadh"))
	assert.Len(t, l.queue, 1)
	assert.Equal(t, 1, logs.FilterMessage("publish queue full, dropping activity").Len())
}

func TestLog_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	l := NewLogger(ms, zap.NewNop())

	l.Log(ctx, riyadh, Entry{
		Category: models.CategoryInventory,
		Action:   "updated item",
		Details:  Change{Old: map[string]int{"quantity": 1}, New: map[string]int{"quantity": 3}},
	})

	local, err := ms.ListLocal(ctx, "riyadh", store.ActivityQuery{})
	require.NoError(t, err)
	var got struct {
		Old map[string]int `json:"old"`
		New map[string]int `json:"new"`
	}
	require.NoError(t, json.Unmarshal(local[0].Details, &got))
	assert.Equal(t, 3, got.New["quantity"])
}

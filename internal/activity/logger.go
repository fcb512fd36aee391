// Package activity writes the audit trail. Every entry goes to the center's own
// log and to the global log as two independent writes.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Publisher receives every activity that reached the global log
type Publisher interface {
	Publish(ctx context.Context, a models.GlobalActivity) error
}

// Entry is what a caller wants recorded
type Entry struct {
	Category    models.Category
	Action      string
	Description string
	TargetID    string
	TargetName  string
	Details     interface{}
	// Timestamp backdates the record when non-zero
	Timestamp time.Time
}

// Recorder is implemented by Logger; services depend on it
type Recorder interface {
	Log(ctx context.Context, actor auth.Principal, e Entry)
}

// DefaultQueueSize bounds the activities waiting for publishers
const DefaultQueueSize = 256

// Logger records activities. Publishing happens on the goroutine running
// Run, so a slow publisher never holds up Log.
type Logger struct {
	store      store.ActivityStore
	log        *zap.Logger
	now        func() time.Time
	publishers []Publisher
	queueSize  int
	queue      chan models.GlobalActivity
}

// Option configures a Logger
type Option func(*Logger)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithPublisher adds a publisher for successfully mirrored activities
func WithPublisher(p Publisher) Option {
	return func(l *Logger) { l.publishers = append(l.publishers, p) }
}

// WithQueueSize sets how many activities may wait for publishers before
// new ones are dropped
func WithQueueSize(n int) Option {
	return func(l *Logger) { l.queueSize = n }
}

// NewLogger creates a Logger
func NewLogger(st store.ActivityStore, log *zap.Logger, opts ...Option) *Logger {
	l := &Logger{store: st, log: log, now: time.Now, queueSize: DefaultQueueSize}
	for _, o := range opts {
		o(l)
	}
	if l.queueSize < 1 {
		l.queueSize = 1
	}
	l.queue = make(chan models.GlobalActivity, l.queueSize)
	return l
}

// Run hands queued activities to the publishers until ctx is cancelled
func (l *Logger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-l.queue:
			l.publish(ctx, a)
		}
	}
}

func (l *Logger) publish(ctx context.Context, a models.GlobalActivity) {
	for _, p := range l.publishers {
		if err := p.Publish(ctx, a); err != nil {
			l.log.Warn("failed to publish activity", zap.String("activity_id", a.ID), zap.Error(err))
		}
	}
}

// Log records e for actor. It never fails the caller: a missing center is a
// no-op and write failures are logged. The local and global writes are not
// transactional, so one may succeed without the other; Reconciler repairs a
// missing global copy.
func (l *Logger) Log(ctx context.Context, actor auth.Principal, e Entry) {
	if actor.CenterID == "" {
		return
	}

	rec := l.build(actor, e)

	if err := l.store.AppendLocal(ctx, &rec); err != nil {
		l.log.Error("failed to write center activity",
			zap.String("center_id", rec.CenterID),
			zap.String("collection", "center_activities"),
			zap.String("action", rec.Action),
			zap.Error(err))
	}

	global := rec.Mirror(uuid.NewString(), centerNameOf(actor))
	if err := l.store.AppendGlobal(ctx, &global); err != nil {
		l.log.Error("failed to write global activity",
			zap.String("center_id", rec.CenterID),
			zap.String("collection", "global_activities"),
			zap.String("action", rec.Action),
			zap.Error(err))
		return
	}

	if len(l.publishers) == 0 {
		return
	}
	select {
	case l.queue <- global:
	default:
		l.log.Warn("publish queue full, dropping activity",
			zap.String("activity_id", global.ID),
			zap.Int("queue_size", l.queueSize))
	}
}

func (l *Logger) build(actor auth.Principal, e Entry) models.ActivityRecord {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	category := e.Category
	if !category.Valid() {
		category = models.ParseCategory(string(category))
	}
	desc := e.Description
	if desc == "" {
		desc = e.Action
	}

	return models.ActivityRecord{
		ID:          uuid.NewString(),
		CenterID:    actor.CenterID,
		ActorID:     actor.UserID,
		ActorName:   actor.ActorName(),
		Timestamp:   ts,
		Category:    category,
		Action:      e.Action,
		Description: desc,
		TargetID:    e.TargetID,
		TargetName:  e.TargetName,
		Details:     l.encodeDetails(e.Details),
	}
}

func (l *Logger) encodeDetails(details interface{}) datatypes.JSON {
	switch d := details.(type) {
	case nil:
		return nil
	case datatypes.JSON:
		return d
	case json.RawMessage:
		return datatypes.JSON(d)
	}
	raw, err := json.Marshal(details)
	if err != nil {
		l.log.Warn("dropping unencodable activity details", zap.Error(err))
		return nil
	}
	return datatypes.JSON(raw)
}

func centerNameOf(p auth.Principal) string {
	if p.CenterName != "" {
		return p.CenterName
	}
	return models.UnknownCenterName
}

// Change is the details payload of an update
type Change struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

// Reconciler copies center activities that never reached the global log
type Reconciler struct {
	activities store.ActivityStore
	centers    store.CenterStore
	log        *zap.Logger
	now        func() time.Time

	// BatchSize caps records repaired per pass
	BatchSize int
	// Grace skips records younger than this so in-flight Log calls finish their own mirror
	Grace time.Duration
}

// NewReconciler creates a Reconciler
func NewReconciler(activities store.ActivityStore, centers store.CenterStore, log *zap.Logger) *Reconciler {
	return &Reconciler{
		activities: activities,
		centers:    centers,
		log:        log,
		now:        time.Now,
		BatchSize:  500,
		Grace:      time.Minute,
	}
}

// Reconcile writes the missing global copies and returns how many it repaired
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	missing, err := r.activities.LocalWithoutMirror(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	names := make(map[string]string)
	centers, err := r.centers.ListCenters(ctx)
	if err != nil {
		r.log.Warn("reconcile without center names", zap.Error(err))
	}
	for _, c := range centers {
		names[c.ID] = c.Name
	}

	cutoff := r.now().Add(-r.Grace)
	repaired := 0
	for _, rec := range missing {
		if r.Grace > 0 && rec.CreatedAt.After(cutoff) {
			continue
		}
		name, ok := names[rec.CenterID]
		if !ok {
			name = models.UnknownCenterName
		}
		g := rec.Mirror(uuid.NewString(), name)
		if err := r.activities.AppendGlobal(ctx, &g); err != nil {
			r.log.Error("failed to repair global activity",
				zap.String("center_id", rec.CenterID),
				zap.String("collection", "global_activities"),
				zap.String("local_id", rec.ID),
				zap.Error(err))
			continue
		}
		repaired++
	}
	if repaired > 0 {
		r.log.Info("repaired missing global activities", zap.Int("count", repaired))
	}
	return repaired, nil
}

// Run reconciles every interval until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reconcile failed", zap.Error(err))
			}
		}
	}
}

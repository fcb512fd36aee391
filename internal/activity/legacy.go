package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/auth"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// legacyNamespace derives stable record ids from exported document ids so a
// second migration run finds the records it already wrote.
var legacyNamespace = uuid.MustParse("6f1c2a8e-3d4b-5e6f-8a9b-0c1d2e3f4a5b")

// LegacyTime accepts the timestamp encodings found in old exports: RFC 3339
// strings, epoch milliseconds, and {"seconds","nanoseconds"} objects.
type LegacyTime struct {
	time.Time
}

func (t *LegacyTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("legacy timestamp %q: %w", s, err)
		}
		t.Time = parsed
	case '{':
		var ts struct {
			Seconds     int64 `json:"seconds"`
			Nanoseconds int64 `json:"nanoseconds"`
		}
		if err := json.Unmarshal(b, &ts); err != nil {
			return err
		}
		t.Time = time.Unix(ts.Seconds, ts.Nanoseconds).UTC()
	default:
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("legacy timestamp %s: %w", b, err)
		}
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}

// LegacyActivity is one exported activity document in either of the two old
// shapes: {activityType, performedBy} or {type, userName}.
type LegacyActivity struct {
	ID           string          `json:"id"`
	CenterID     string          `json:"centerId"`
	CenterName   string          `json:"centerName"`
	UserID       string          `json:"userId"`
	UserName     string          `json:"userName"`
	PerformedBy  string          `json:"performedBy"`
	PerformedID  string          `json:"performedById"`
	Type         string          `json:"type"`
	ActivityType string          `json:"activityType"`
	Action       string          `json:"action"`
	Description  string          `json:"description"`
	TargetID     string          `json:"targetId"`
	TargetName   string          `json:"targetName"`
	Details      json.RawMessage `json:"details"`
	Timestamp    LegacyTime      `json:"timestamp"`
}

// Canonical converts the document to the current record shape
func (a LegacyActivity) Canonical() models.ActivityRecord {
	kind := a.ActivityType
	if kind == "" {
		kind = a.Type
	}

	actor := auth.Principal{Name: a.UserName}
	if strings.Contains(a.PerformedBy, "@") {
		actor.Email = a.PerformedBy
	} else if actor.Name == "" {
		actor.Name = a.PerformedBy
	}
	actorID := a.UserID
	if actorID == "" {
		actorID = a.PerformedID
	}

	desc := a.Description
	if desc == "" {
		desc = a.Action
	}

	var details datatypes.JSON
	if len(a.Details) > 0 && string(a.Details) != "null" {
		details = datatypes.JSON(a.Details)
	}

	return models.ActivityRecord{
		ID:          LegacyRecordID(a.ID),
		CenterID:    a.CenterID,
		ActorID:     actorID,
		ActorName:   actor.ActorName(),
		Timestamp:   a.Timestamp.Time,
		Category:    models.ParseCategory(kind),
		Action:      a.Action,
		Description: desc,
		TargetID:    a.TargetID,
		TargetName:  a.TargetName,
		Details:     details,
	}
}

// LegacyRecordID is the record id a legacy document migrates to
func LegacyRecordID(legacyID string) string {
	return uuid.NewSHA1(legacyNamespace, []byte("local:"+legacyID)).String()
}

func legacyMirrorID(legacyID string) string {
	return uuid.NewSHA1(legacyNamespace, []byte("global:"+legacyID)).String()
}

// MigrationResult counts what MigrateLegacy did
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// MigrateLegacy writes each legacy document once into both logs. Documents that
// were migrated by an earlier run are skipped.
func MigrateLegacy(ctx context.Context, activities store.ActivityStore, centers store.CenterStore,
	docs []LegacyActivity, log *zap.Logger) (MigrationResult, error) {
	var res MigrationResult

	names := make(map[string]string)
	list, err := centers.ListCenters(ctx)
	if err != nil {
		return res, fmt.Errorf("list centers: %w", err)
	}
	for _, c := range list {
		names[c.ID] = c.Name
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if doc.ID == "" || doc.CenterID == "" || doc.Timestamp.IsZero() {
			log.Warn("skipping incomplete legacy activity", zap.String("legacy_id", doc.ID), zap.String("center_id", doc.CenterID))
			res.Failed++
			continue
		}

		rec := doc.Canonical()
		exists, err := activities.HasLocal(ctx, rec.ID)
		if err != nil {
			return res, fmt.Errorf("check %s: %w", doc.ID, err)
		}
		if exists {
			res.Skipped++
			continue
		}

		if err := activities.AppendLocal(ctx, &rec); err != nil {
			log.Error("failed to migrate legacy activity", zap.String("legacy_id", doc.ID), zap.Error(err))
			res.Failed++
			continue
		}

		name := names[doc.CenterID]
		if name == "" {
			name = doc.CenterName
		}
		if name == "" {
			name = models.UnknownCenterName
		}
		g := rec.Mirror(legacyMirrorID(doc.ID), name)
		if err := activities.AppendGlobal(ctx, &g); err != nil {
			// the reconciler picks this up later
			log.Error("failed to mirror legacy activity",
				zap.String("legacy_id", doc.ID),
				zap.String("collection", "global_activities"),
				zap.Error(err))
		}
		res.Migrated++
	}
	return res, nil
}

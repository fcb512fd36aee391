package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

const legacyExport = `[
  {"id": "a1", "centerId": "riyadh", "activityType": "sales", "performedBy": "ahmed@riyadh.sa",
   "action": "sold 2 filters", "timestamp": "2023-11-02T10:00:00Z", "details": {"qty": 2}},
  {"id": "a2", "centerId": "riyadh", "type": "session_start", "userName": "Ahmed",
   "action": "session started", "timestamp": {"seconds": 1698919200, "nanoseconds": 0}},
  {"id": "a3", "centerId": "jeddah", "type": "inventory", "action": "stock check", "timestamp": 1698919200000},
  {"id": "", "centerId": "jeddah", "type": "inventory", "action": "broken"}
]`

func TestLegacyCanonical(t *testing.T) {
	var docs []LegacyActivity
	require.NoError(t, json.Unmarshal([]byte(legacyExport), &docs))
	require.Len(t, docs, 4)

	a := docs[0].Canonical()
	assert.Equal(t, models.CategorySales, a.Category)
	assert.Equal(t, "ahmed", a.ActorName)
	assert.Equal(t, "sold 2 filters", a.Description)
	assert.Equal(t, time.Date(2023, 11, 2, 10, 0, 0, 0, time.UTC), a.Timestamp)
	assert.JSONEq(t, `{"qty":2}`, string(a.Details))

	b := docs[1].Canonical()
	assert.Equal(t, models.CategorySession, b.Category)
	assert.Equal(t, "Ahmed", b.ActorName)
	assert.Equal(t, int64(1698919200), b.Timestamp.Unix())

	c := docs[2].Canonical()
	assert.Equal(t, "unknown user", c.ActorName)
	assert.Equal(t, int64(1698919200), c.Timestamp.Unix())

	assert.Equal(t, LegacyRecordID("a1"), a.ID)
	assert.NotEqual(t, LegacyRecordID("a1"), LegacyRecordID("a2"))
}

func TestMigrateLegacy_RunsOnce(t *testing.T) {
	ctx := context.Background()
	_, ms := store.NewMemory()
	require.NoError(t, ms.CreateCenter(ctx, &models.Center{ID: "riyadh", Name: "Riyadh Center", Email: "r@x.sa"}))

	var docs []LegacyActivity
	require.NoError(t, json.Unmarshal([]byte(legacyExport), &docs))

	res, err := MigrateLegacy(ctx, ms, ms, docs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Migrated: 3, Skipped: 0, Failed: 1}, res)
	assert.Equal(t, 2, ms.LocalCount("riyadh"))
	assert.Equal(t, 2, ms.GlobalCount("riyadh"))

	global, err := ms.ListGlobal(ctx, store.ActivityQuery{CenterID: "jeddah"})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, models.UnknownCenterName, global[0].CenterName)

	again, err := MigrateLegacy(ctx, ms, ms, docs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Migrated: 0, Skipped: 3, Failed: 1}, again)
	assert.Equal(t, 2, ms.LocalCount("riyadh"))
}

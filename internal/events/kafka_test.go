package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/models"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish_KeyedByCenter(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, "center-activities", zap.NewNop())

	ts := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	a := models.GlobalActivity{
		ID:         "g1",
		LocalID:    "l1",
		CenterID:   "riyadh",
		CenterName: "Riyadh Center",
		Category:   models.CategorySales,
		Action:     "added sale",
		Timestamp:  ts,
	}
	require.NoError(t, p.Publish(context.Background(), a))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "riyadh", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	assert.Equal(t, "sales", string(msg.Headers[0].Value))

	var got models.GlobalActivity
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "g1", got.ID)
	assert.Equal(t, "Riyadh Center", got.CenterName)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, "center-activities", zap.NewNop())

	err := p.Publish(context.Background(), models.GlobalActivity{ID: "g1", CenterID: "riyadh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

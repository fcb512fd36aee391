package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/centerhub/internal/models"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("center"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsActivity(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	a := models.GlobalActivity{ID: "g1", CenterID: "riyadh", CenterName: "Riyadh Center", Action: "added item"}
	require.NoError(t, hub.Publish(context.Background(), a))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, MessageActivity, msg.Type)
	require.NotNil(t, msg.Activity)
	assert.Equal(t, "g1", msg.Activity.ID)
	assert.Equal(t, "Riyadh Center", msg.Activity.CenterName)
}

func TestHub_CenterFilter(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "?center=jeddah")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, models.GlobalActivity{ID: "r1", CenterID: "riyadh"}))
	require.NoError(t, hub.Publish(ctx, models.GlobalActivity{ID: "j1", CenterID: "jeddah"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "j1", msg.Activity.ID)
}

func TestHub_AnswersPing(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"PING"}`)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PONG"}`, string(raw))
}

func TestHub_PublishAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// the buffer may still accept a few messages; fill it until the stop is seen
	var err error
	for i := 0; i < 300 && err == nil; i++ {
		err = hub.Publish(context.Background(), models.GlobalActivity{ID: "x"})
	}
	assert.ErrorIs(t, err, ErrHubStopped)
}

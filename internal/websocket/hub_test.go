package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func newFakeClient(hub *Hub, buffer int) *Client {
	return &Client{Hub: hub, ID: uuid.New(), Send: make(chan []byte, buffer)}
}

func decode(t *testing.T, frame []byte) (string, json.RawMessage) {
	t.Helper()
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &env))
	return env.Type, env.Data
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, _ := runHub(t)
	a, b := newFakeClient(hub, 4), newFakeClient(hub, 4)
	require.True(t, hub.add(a))
	require.True(t, hub.add(b))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.ConversationUpdated("p1", []model.Message{{ID: "m1", Role: model.RoleBot, Content: "hi"}})

	for _, c := range []*Client{a, b} {
		typ, data := decode(t, <-c.Send)
		assert.Equal(t, constant.EventConversationUpdated, typ)
		var payload ConversationPayload
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "p1", payload.Key)
		assert.Equal(t, "hi", payload.Messages[0].Content)
	}
}

func TestEnvelopeTypes(t *testing.T) {
	hub, _ := runHub(t)
	c := newFakeClient(hub, 8)
	require.True(t, hub.add(c))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Navigate("/user/p1")
	hub.TabsUpdated(model.TabSnapshot{ActiveTabID: "p1"})
	hub.DeliverToast(model.Toast{ID: "t1"})
	hub.DeliverLogEntry(model.NotificationLogEntry{ID: "e1"})

	var types []string
	for i := 0; i < 4; i++ {
		typ, _ := decode(t, <-c.Send)
		types = append(types, typ)
	}
	assert.Equal(t, []string{
		constant.EventNavigate,
		constant.EventTabsUpdated,
		constant.EventToast,
		constant.EventNotificationLog,
	}, types)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub, _ := runHub(t)
	c := newFakeClient(hub, 1)
	require.True(t, hub.add(c))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Navigate("/")
	hub.Navigate("/user/p1")

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	<-c.Send
	_, open := <-c.Send
	assert.False(t, open)
}

func TestRunStopsAndClosesClients(t *testing.T) {
	hub, cancel := runHub(t)
	c := newFakeClient(hub, 1)
	require.True(t, hub.add(c))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.add(newFakeClient(hub, 1)))
}

type inboundRecorder struct {
	frames chan []byte
}

func (r *inboundRecorder) HandleInbound(_ uuid.UUID, frame []byte) {
	r.frames <- frame
}

func TestInboundFramesReachHandler(t *testing.T) {
	hub, _ := runHub(t)
	rec := &inboundRecorder{frames: make(chan []byte, 1)}
	hub.SetInboundHandler(rec)

	hub.handleInbound(uuid.New(), []byte(`{"type":"route"}`))
	assert.JSONEq(t, `{"type":"route"}`, string(<-rec.frames))
}

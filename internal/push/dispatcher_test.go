package push

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/event"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/metrics"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/session"
)

func newTestDispatcher() (*Dispatcher, *session.Registry) {
	registry := session.NewRegistry()
	return NewDispatcher(registry, zap.NewNop(), metrics.NewRegistry()), registry
}

func decodeFrame(t *testing.T, c *session.Conn) event.Envelope {
	t.Helper()
	select {
	case payload := <-c.SendQueue:
		var env event.Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	default:
		t.Fatal("no frame queued")
		return event.Envelope{}
	}
}

func TestNotifyOfflineUser(t *testing.T) {
	d, _ := newTestDispatcher()

	result := d.Notify(999, &event.Notification{Title: "hi"})

	assert.False(t, result.Delivered)
	assert.Zero(t, result.Connections)
}

func TestNotifyFansOutToAllDevices(t *testing.T) {
	d, registry := newTestDispatcher()
	phone := session.NewConn(7, 4)
	laptop := session.NewConn(7, 4)
	registry.Register(7, phone)
	registry.Register(7, laptop)

	n := &event.Notification{
		ID:         31,
		Title:      "Order shipped",
		Message:    "Your order #1209 is on its way",
		Type:       "order",
		ActionLink: "/orders/1209",
		Metadata:   map[string]any{"orderId": float64(1209)},
	}
	result := d.Notify(7, n)

	assert.True(t, result.Delivered)
	assert.Equal(t, 2, result.Connections)

	for _, c := range []*session.Conn{phone, laptop} {
		env := decodeFrame(t, c)
		assert.Equal(t, event.NewNotification, env.Event)

		var data struct {
			Type         string              `json:"type"`
			Notification *event.Notification `json:"notification"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "new_notification", data.Type)
		assert.Equal(t, n, data.Notification)
	}
}

func TestNotifyCount(t *testing.T) {
	d, registry := newTestDispatcher()
	c := session.NewConn(3, 4)
	registry.Register(3, c)

	result := d.NotifyCount(3, "pending_tickets", 0)

	assert.True(t, result.Delivered)
	assert.Equal(t, 1, result.Connections)

	env := decodeFrame(t, c)
	assert.Equal(t, event.AdminCountUpdate, env.Event)
	assert.JSONEq(t, `{"type":"pending_tickets","count":0}`, string(env.Data))
}

func TestNotifyToleratesClosingHandle(t *testing.T) {
	d, registry := newTestDispatcher()
	live := session.NewConn(9, 4)
	dying := session.NewConn(9, 4)
	registry.Register(9, live)
	registry.Register(9, dying)
	dying.Close() // socket vanished between snapshot and emit

	result := d.Notify(9, &event.Notification{Title: "x"})

	// Delivered as long as one handle accepted; count reflects the snapshot.
	assert.True(t, result.Delivered)
	assert.Equal(t, 2, result.Connections)
	assert.Len(t, live.SendQueue, 1)
	assert.Empty(t, dying.SendQueue)
}

func TestNotifyAllHandlesDead(t *testing.T) {
	d, registry := newTestDispatcher()
	dying := session.NewConn(9, 4)
	registry.Register(9, dying)
	dying.Close()

	result := d.Notify(9, &event.Notification{Title: "x"})

	assert.False(t, result.Delivered)
	assert.Equal(t, 1, result.Connections)
}

func TestBusIngressHandle(t *testing.T) {
	d, registry := newTestDispatcher()
	c := session.NewConn(12, 4)
	registry.Register(12, c)

	ing := &Ingress{dispatcher: d, logger: zap.NewNop()}

	ing.Handle([]byte(`{"userId":12,"notification":{"title":"Sale","message":"20% off"}}`))
	env := decodeFrame(t, c)
	assert.Equal(t, event.NewNotification, env.Event)

	ing.Handle([]byte(`{"userId":12,"type":"cart","count":3}`))
	env = decodeFrame(t, c)
	assert.Equal(t, event.AdminCountUpdate, env.Event)

	// Malformed or incomplete messages are dropped without side effects.
	ing.Handle([]byte(`not json`))
	ing.Handle([]byte(`{"notification":{"title":"x"}}`))
	ing.Handle([]byte(`{"userId":12}`))
	assert.Empty(t, c.SendQueue)
}

// Package push fans delivery requests out to a user's live connections.
package push

import (
	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/event"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/metrics"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/session"
)

// Result reports the outcome of one delivery request. Connections is the size
// of the registry snapshot taken before emitting; a handle that died between
// snapshot and emit is still counted, so the figure can overstate actual
// delivery.
type Result struct {
	Delivered   bool
	Connections int
}

// Dispatcher resolves recipients in the registry and emits events to them.
// Delivery is fire-and-forget: a push to an offline user is a no-op and
// nothing is queued or retried.
type Dispatcher struct {
	registry *session.Registry
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// NewDispatcher wires a dispatcher to the shared registry.
func NewDispatcher(registry *session.Registry, logger *zap.Logger, metricsRegistry *metrics.Registry) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger, metrics: metricsRegistry}
}

// Notify emits a new_notification event to every open connection of a user.
func (d *Dispatcher) Notify(userID int64, n *event.Notification) Result {
	return d.fanOut(userID, event.NotificationEvent(n))
}

// NotifyCount emits an admin_count_update event carrying a counter kind and
// value, for badge updates where a full notification is unnecessary.
func (d *Dispatcher) NotifyCount(userID int64, kind string, count int) Result {
	return d.fanOut(userID, event.CountEvent(kind, count))
}

func (d *Dispatcher) fanOut(userID int64, env event.Envelope) Result {
	d.metrics.Pushes.PushRequests.Inc()

	conns := d.registry.ConnectionsFor(userID)
	if len(conns) == 0 {
		d.metrics.Pushes.OfflinePushes.Inc()
		return Result{}
	}

	payload, err := env.Encode()
	if err != nil {
		d.logger.Error("encode push event", zap.String("event", env.Event), zap.Error(err))
		return Result{}
	}

	accepted := 0
	for _, c := range conns {
		if c.TrySend(payload) {
			accepted++
			d.metrics.Pushes.EventsDelivered.Inc()
		} else {
			// Handle is closing or backed up; its own teardown unregisters it.
			d.metrics.Pushes.EventsDropped.Inc()
		}
	}

	d.logger.Debug("push fanned out",
		zap.Int64("user_id", userID),
		zap.String("event", env.Event),
		zap.Int("connections", len(conns)),
		zap.Int("accepted", accepted))

	return Result{Delivered: accepted > 0, Connections: len(conns)}
}

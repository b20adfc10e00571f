package push

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/event"
)

// busRequest is the delivery-request shape accepted on the bus. It mirrors
// the control-plane bodies: a notification push carries "notification", a
// counter push carries "type" and "count".
type busRequest struct {
	UserID       *int64              `json:"userId"`
	Notification *event.Notification `json:"notification,omitempty"`
	Type         string              `json:"type,omitempty"`
	Count        *int                `json:"count,omitempty"`
}

// Ingress subscribes to a NATS subject and hands decoded delivery requests to
// the dispatcher. It is an alternative entry point for the trusted backend;
// the HTTP control plane stays authoritative and the ingress is disabled by
// default.
type Ingress struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewIngress connects to the configured NATS server.
func NewIngress(cfg config.NATSConfig, dispatcher *Dispatcher, logger *zap.Logger) (*Ingress, error) {
	ing := &Ingress{dispatcher: dispatcher, logger: logger}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	ing.conn = conn

	return ing, nil
}

// Subscribe starts consuming delivery requests from the subject.
func (i *Ingress) Subscribe(subject string) error {
	sub, err := i.conn.Subscribe(subject, func(msg *nats.Msg) {
		i.Handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	i.sub = sub
	i.logger.Info("nats ingress subscribed", zap.String("subject", subject))
	return nil
}

// Handle decodes one bus message and dispatches it. Malformed messages are
// logged and dropped; the bus has no reply channel for validation errors.
func (i *Ingress) Handle(data []byte) {
	var req busRequest
	if err := json.Unmarshal(data, &req); err != nil {
		i.logger.Warn("malformed bus push request", zap.Error(err))
		return
	}
	if req.UserID == nil {
		i.logger.Warn("bus push request missing userId")
		return
	}

	switch {
	case req.Notification != nil:
		i.dispatcher.Notify(*req.UserID, req.Notification)
	case req.Type != "" && req.Count != nil:
		i.dispatcher.NotifyCount(*req.UserID, req.Type, *req.Count)
	default:
		i.logger.Warn("bus push request missing payload", zap.Int64("user_id", *req.UserID))
	}
}

// Close drains the subscription and closes the connection.
func (i *Ingress) Close() {
	if i.sub != nil {
		_ = i.sub.Unsubscribe()
	}
	if i.conn != nil {
		i.conn.Close()
	}
}

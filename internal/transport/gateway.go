// Package transport accepts client WebSocket connections and drives them
// through the authenticate-then-register lifecycle.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/auth"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/event"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/metrics"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/session"
)

// Verifier resolves a bearer token to an identity, or nil when the token is
// invalid or the backend cannot be reached.
type Verifier interface {
	Verify(ctx context.Context, token string) *auth.Identity
}

// Gateway upgrades inbound connections and relays frames for their lifetime.
type Gateway struct {
	cfg      config.WebSocketConfig
	logger   *zap.Logger
	verifier Verifier
	registry *session.Registry
	metrics  *metrics.Registry
	upgrader websocket.Upgrader
	limiter  *rate.Limiter

	verifyTimeout time.Duration
}

// NewGateway builds the WebSocket handler. Connections are only accepted from
// the single configured origin; requests without an Origin header (non-browser
// clients, health probes) pass the check.
func NewGateway(cfg config.Config, logger *zap.Logger, verifier Verifier, registry *session.Registry, metricsRegistry *metrics.Registry) *Gateway {
	allowed := cfg.CORS.AllowedOrigin
	return &Gateway{
		cfg:      cfg.WebSocket,
		logger:   logger,
		verifier: verifier,
		registry: registry,
		metrics:  metricsRegistry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowed
			},
		},
		limiter:       rate.NewLimiter(rate.Limit(cfg.WebSocket.HandshakeRate), cfg.WebSocket.HandshakeBurst),
		verifyTimeout: cfg.Auth.VerifyTimeout,
	}
}

// ServeHTTP handles one websocket request for its whole lifetime.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !g.limiter.Allow() {
		http.Error(w, "Too many connection attempts", http.StatusTooManyRequests)
		return
	}

	// Handshake-time credential; never a protocol message.
	token := r.URL.Query().Get("token")

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.metrics.Connections.UpgradeErrors.Inc()
		g.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	g.serveConn(wsConn, token)
}

func (g *Gateway) serveConn(wsConn *websocket.Conn, token string) {
	defer wsConn.Close()

	if token == "" {
		g.rejectConn(wsConn, "Authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.verifyTimeout)
	ident := g.verifier.Verify(ctx, token)
	cancel()
	if ident == nil {
		g.rejectConn(wsConn, "Invalid authentication token")
		return
	}

	conn := session.NewConn(ident.ID, g.cfg.SendChannelSize)

	// Queue the confirmation before the handle becomes visible to fan-out:
	// the fresh queue always has room, so this cannot block behind a push
	// that lands before the writer starts, and the confirmation stays the
	// first frame the client sees. Exactly one per successful connection.
	confirmation, err := event.ConnectedEvent(event.User{
		ID:       ident.ID,
		UserName: ident.UserName,
		Role:     ident.Role,
	}).Encode()
	if err != nil {
		g.logger.Error("encode connected event", zap.Error(err))
		return
	}
	conn.SendQueue <- confirmation

	g.registry.Register(ident.ID, conn)
	g.metrics.Connections.ActiveConnections.Inc()
	g.metrics.Connections.ConnectedUsers.Set(float64(g.registry.Users()))
	g.logger.Info("client connected",
		zap.Int64("user_id", ident.ID),
		zap.Uint64("conn_id", conn.ID))

	defer func() {
		conn.Close()
		g.registry.Unregister(ident.ID, conn)
		g.metrics.Connections.ActiveConnections.Dec()
		g.metrics.Connections.ConnectedUsers.Set(float64(g.registry.Users()))
		g.logger.Info("client disconnected",
			zap.Int64("user_id", ident.ID),
			zap.Uint64("conn_id", conn.ID))
	}()

	writerCtx, stopWriter := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writePump(writerCtx, conn, wsConn)
	}()

	g.readPump(conn, wsConn)
	stopWriter()
	<-writerDone
}

// rejectConn emits a terminal error event and closes the transport. The
// client must reconnect with a valid credential; there is no in-process retry.
func (g *Gateway) rejectConn(wsConn *websocket.Conn, message string) {
	g.metrics.Connections.AuthFailures.Inc()

	payload, err := event.ErrorEvent(message).Encode()
	if err == nil {
		_ = wsConn.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
		_ = wsConn.WriteMessage(websocket.TextMessage, payload)
	}
	_ = wsConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(g.cfg.WriteWait))
}

// readPump consumes inbound frames until the transport closes. Clients send
// nothing but keepalive pings; business traffic flows strictly server to
// client.
func (g *Gateway) readPump(conn *session.Conn, wsConn *websocket.Conn) {
	wsConn.SetReadLimit(g.cfg.MaxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		_, message, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.logger.Debug("read error", zap.Uint64("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		_ = wsConn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))

		var env event.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			g.logger.Debug("unparseable client frame", zap.Uint64("conn_id", conn.ID))
			continue
		}

		switch env.Event {
		case event.Ping:
			pong, err := event.PongEvent().Encode()
			if err == nil {
				conn.TrySend(pong)
			}
		default:
			g.logger.Debug("ignoring client event",
				zap.Uint64("conn_id", conn.ID),
				zap.String("event", env.Event))
		}
	}
}

// writePump drains the send queue onto the wire and keeps the transport-level
// ping/pong cycle alive. Exits on write error or when the reader stops.
func (g *Gateway) writePump(ctx context.Context, conn *session.Conn, wsConn *websocket.Conn) {
	pingPeriod := g.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-conn.SendQueue:
			_ = wsConn.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := wsConn.WriteMessage(websocket.TextMessage, payload); err != nil {
				g.logger.Debug("write error", zap.Uint64("conn_id", conn.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

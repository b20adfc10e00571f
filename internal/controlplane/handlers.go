// Package controlplane exposes the backend-to-relay HTTP interface used to
// request pushes. It trusts the network boundary; there is no caller
// authentication beyond that.
package controlplane

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/event"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/push"
)

// Server holds the control-plane handlers.
type Server struct {
	cfg        config.CORSConfig
	dispatcher *push.Dispatcher
	logger     *zap.Logger
}

// NewServer builds the control-plane handler set.
func NewServer(cfg config.CORSConfig, dispatcher *push.Dispatcher, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

// Routes registers the control-plane endpoints on the shared relay mux. The
// root pattern doubles as the catch-all 404 for unknown paths.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/notify", s.guard(s.handleNotify))
	mux.HandleFunc("/notify-count", s.guard(s.handleNotifyCount))
	mux.HandleFunc("/", s.guard(s.handleNotFound))
}

type notifyRequest struct {
	UserID       *int64              `json:"userId"`
	Notification *event.Notification `json:"notification"`
}

type notifyCountRequest struct {
	UserID *int64 `json:"userId"`
	Type   string `json:"type"`
	Count  *int   `json:"count"`
}

type deliveryResponse struct {
	Message     string `json:"message"`
	Delivered   bool   `json:"delivered"`
	Connections *int   `json:"connections,omitempty"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.handleNotFound(w, r)
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == nil || req.Notification == nil {
		s.writeError(w, http.StatusBadRequest, "userId and notification are required")
		return
	}

	result := s.dispatcher.Notify(*req.UserID, req.Notification)
	s.writeDelivery(w, result, "Notification sent")
}

func (s *Server) handleNotifyCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.handleNotFound(w, r)
		return
	}

	var req notifyCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Zero is a valid count; only an absent field is rejected.
	if req.UserID == nil || req.Type == "" || req.Count == nil {
		s.writeError(w, http.StatusBadRequest, "userId, type and count are required")
		return
	}

	result := s.dispatcher.NotifyCount(*req.UserID, req.Type, *req.Count)
	s.writeDelivery(w, result, "Count update sent")
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// guard wraps a handler with CORS headers, preflight handling, and panic
// recovery. A panic becomes a generic 500; detail stays in the server log.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in control-plane handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				s.writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) writeDelivery(w http.ResponseWriter, result push.Result, message string) {
	resp := deliveryResponse{}
	if result.Delivered {
		resp.Message = message
		resp.Delivered = true
		connections := result.Connections
		resp.Connections = &connections
	} else {
		resp.Message = "User not connected"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write control-plane response", zap.Error(err))
	}
}

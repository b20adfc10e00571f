// Package auth resolves bearer credentials against the main backend.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
)

const verifyPath = "/api/auth/verify"

// Identity is the user resolved from a valid token. It lives only for the
// duration of the connection that triggered the lookup.
type Identity struct {
	ID       int64  `json:"id"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

// Verifier validates tokens by calling the backend's verification endpoint.
type Verifier struct {
	client    *http.Client
	verifyURL string
	logger    *zap.Logger
}

// NewVerifier builds a verifier for the configured backend. The HTTP client
// carries the configured timeout so a hung backend reads as a failed
// verification instead of wedging the connection attempt.
func NewVerifier(cfg config.AuthConfig, logger *zap.Logger) *Verifier {
	return &Verifier{
		client:    &http.Client{Timeout: cfg.VerifyTimeout},
		verifyURL: strings.TrimRight(cfg.BackendURL, "/") + verifyPath,
		logger:    logger,
	}
}

// Verify performs a single round trip to the backend. It returns the resolved
// identity, or nil on any failure: transport error, non-2xx status, or a
// malformed body. It never distinguishes those cases to the caller; the relay
// fails closed.
func (v *Verifier) Verify(ctx context.Context, token string) *Identity {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.verifyURL, nil)
	if err != nil {
		v.logger.Error("build verify request", zap.Error(err))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug("token verification request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Debug("token verification rejected", zap.Int("status", resp.StatusCode))
		return nil
	}

	var body struct {
		User *Identity `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		v.logger.Warn("malformed verification response", zap.Error(err))
		return nil
	}
	if body.User == nil || body.User.ID == 0 {
		return nil
	}

	return body.User
}

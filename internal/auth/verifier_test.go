package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
)

func newTestVerifier(t *testing.T, handler http.HandlerFunc) *Verifier {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	return NewVerifier(config.AuthConfig{
		BackendURL:    backend.URL,
		VerifyTimeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestVerifyResolvesIdentity(t *testing.T) {
	var gotAuth string
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":42,"user_name":"virgel","role":"admin"}}`))
	})

	ident := v.Verify(context.Background(), "tok-abc")
	require.NotNil(t, ident)
	assert.Equal(t, int64(42), ident.ID)
	assert.Equal(t, "virgel", ident.UserName)
	assert.Equal(t, "admin", ident.Role)
	assert.Equal(t, "Bearer tok-abc", gotAuth)
}

func TestVerifyRejectsNonSuccessStatus(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	assert.Nil(t, v.Verify(context.Background(), "bad-token"))
}

func TestVerifyRejectsMalformedBody(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"user": not-json`))
	})

	assert.Nil(t, v.Verify(context.Background(), "tok"))
}

func TestVerifyRejectsMissingUser(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	})

	assert.Nil(t, v.Verify(context.Background(), "tok"))
}

func TestVerifyFailsClosedOnUnreachableBackend(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close() // deliberately dead

	v := NewVerifier(config.AuthConfig{
		BackendURL:    backend.URL,
		VerifyTimeout: time.Second,
	}, zap.NewNop())

	assert.Nil(t, v.Verify(context.Background(), "tok"))
}

func TestVerifyTreatsHangAsFailure(t *testing.T) {
	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Nil(t, v.Verify(ctx, "tok"))
	assert.Less(t, time.Since(start), time.Second)
}

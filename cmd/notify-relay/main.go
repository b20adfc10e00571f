package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/auth"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/config"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/controlplane"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/logging"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/metrics"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/push"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/session"
	"github.com/capstonevirgel-ship-it/rapollo-ecommerce-sub001/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := metrics.NewRegistry()
	go metrics.NewSystemSampler(metricsRegistry, 15*time.Second).Run(ctx)

	registry := session.NewRegistry()
	verifier := auth.NewVerifier(cfg.Auth, logger)
	dispatcher := push.NewDispatcher(registry, logger, metricsRegistry)

	mux := http.NewServeMux()
	mux.Handle(cfg.WebSocket.Path, transport.NewGateway(cfg, logger, verifier, registry, metricsRegistry))
	controlplane.NewServer(cfg.CORS, dispatcher, logger).Routes(mux)

	// No read/write timeouts on the relay listener: websocket connections on
	// the same port stay open indefinitely. Per-frame deadlines live in the
	// gateway.
	relayServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	if cfg.NATS.Enabled {
		ingress, err := push.NewIngress(cfg.NATS, dispatcher, logger)
		if err != nil {
			logger.Fatal("nats ingress start failed", zap.Error(err))
		}
		if err := ingress.Subscribe(cfg.NATS.Subject); err != nil {
			logger.Fatal("nats subscribe failed", zap.Error(err))
		}
		defer ingress.Close()
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("relay listening", zap.String("addr", relayServer.Addr))
		errCh <- relayServer.ListenAndServe()
	}()

	var diagServer *http.Server
	if cfg.Metrics.Enabled {
		diagServer = newDiagnosticsServer(cfg, registry, metricsRegistry)
		go func() {
			logger.Info("diagnostics listening", zap.String("addr", diagServer.Addr))
			errCh <- diagServer.ListenAndServe()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := relayServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("relay shutdown error", zap.Error(err))
	}
	if diagServer != nil {
		if err := diagServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("diagnostics shutdown error", zap.Error(err))
		}
	}
	logger.Info("relay stopped")
}

func newDiagnosticsServer(cfg config.Config, registry *session.Registry, metricsRegistry *metrics.Registry) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "healthy",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"connections": registry.Len(),
			"users":       registry.Users(),
		})
	})
	mux.Handle("/metrics", metricsRegistry.Handler())

	return &http.Server{
		Addr:         cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

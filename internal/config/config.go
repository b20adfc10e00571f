package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the notification relay.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	NATS      NATSConfig      `mapstructure:"nats"`
}

// ServerConfig contains network level settings for the relay listener.
// The websocket path and the control-plane endpoints share this port.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AuthConfig points the relay at the main backend's token-validation endpoint.
type AuthConfig struct {
	BackendURL    string        `mapstructure:"backend_url"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
}

// CORSConfig holds the single origin allowed to open client connections.
type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// WebSocketConfig controls connection lifecycle behaviour.
type WebSocketConfig struct {
	Path            string        `mapstructure:"path"`
	SendChannelSize int           `mapstructure:"send_channel_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	HandshakeRate   float64       `mapstructure:"handshake_rate"`
	HandshakeBurst  int           `mapstructure:"handshake_burst"`
}

// MetricsConfig controls the Prometheus/diagnostics listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NATSConfig configures the optional bus ingress for push requests.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 6001)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("auth.backend_url", "http://localhost:3000")
	v.SetDefault("auth.verify_timeout", 5*time.Second)

	v.SetDefault("cors.allowed_origin", "http://localhost:3000")

	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.send_channel_size", 64)
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.write_wait", 10*time.Second)
	v.SetDefault("websocket.handshake_rate", 50)
	v.SetDefault("websocket.handshake_burst", 100)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9100")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "rapollo.notify")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)

	v.SetConfigName("relay")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Attempt to read config file (optional)
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.WebSocket.SendChannelSize <= 0 {
		cfg.WebSocket.SendChannelSize = 64
	}
	if cfg.WebSocket.PongWait <= 0 {
		cfg.WebSocket.PongWait = 60 * time.Second
	}
	if cfg.Auth.VerifyTimeout <= 0 {
		cfg.Auth.VerifyTimeout = 5 * time.Second
	}

	return cfg, nil
}

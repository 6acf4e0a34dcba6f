package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Push transports understood by the client.
const (
	TransportWebSocket = "ws"
	TransportRedis     = "redis"
)

// Config holds client configuration loaded from environment variables.
type Config struct {
	APIURL         string        `env:"API_URL" envDefault:"http://localhost:3000"`
	PushURL        string        `env:"PUSH_URL"`
	PushTransport  string        `env:"PUSH_TRANSPORT" envDefault:"ws"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Token          string        `env:"TOKEN"`
	TokenFile      string        `env:"TOKEN_FILE"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	BannerDuration time.Duration `env:"BANNER_DURATION" envDefault:"3s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string        `env:"LOG_FILE"`
	Dev            bool          `env:"DEV"`
}

// Load reads configuration from CONQUEST_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CONQUEST_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	switch c.PushTransport {
	case TransportWebSocket, TransportRedis:
	default:
		return fmt.Errorf("unknown push transport %q", c.PushTransport)
	}
	if c.BannerDuration <= 0 {
		return fmt.Errorf("banner duration must be positive, got %s", c.BannerDuration)
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url must be http(s), got %q", c.APIURL)
	}
	return nil
}

// WebSocketURL returns the push endpoint, derived from the API URL when unset.
func (c *Config) WebSocketURL() string {
	if c.PushURL != "" {
		return c.PushURL
	}
	return strings.Replace(strings.TrimRight(c.APIURL, "/"), "http", "ws", 1) + "/ws"
}

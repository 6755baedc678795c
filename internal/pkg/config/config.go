package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Map       MapConfig       `mapstructure:"map"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// UpstreamConfig points at the backend transit API that owns the data.
type UpstreamConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	BusPollSeconds   int    `mapstructure:"bus_poll_seconds"`   // live bus snapshot interval
	ETAPollSeconds   int    `mapstructure:"eta_poll_seconds"`   // per-bus ETA interval
	ETAIdleSeconds   int    `mapstructure:"eta_idle_seconds"`   // reap ETA pollers idle this long
	PollLiveBuses    bool   `mapstructure:"poll_live_buses"`    // api polls upstream itself when no broker feed
}

// MapConfig tunes the coordinate pipeline and the derived viewport.
type MapConfig struct {
	DedupeEpsilon  float64 `mapstructure:"dedupe_epsilon"`  // degrees
	AnchorLat      float64 `mapstructure:"anchor_lat"`      // home-city fallback center
	AnchorLng      float64 `mapstructure:"anchor_lng"`
	BoundsPadding  float64 `mapstructure:"bounds_padding"`  // degrees added around route bounds
	HighlightBusID string  `mapstructure:"highlight_bus_id"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults. The anchor is the service's home-city center, used when a
	// route has no drawable polyline.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("upstream.base_url", "http://localhost:8001/api")
	v.SetDefault("upstream.bus_poll_seconds", 5)
	v.SetDefault("upstream.eta_poll_seconds", 10)
	v.SetDefault("upstream.eta_idle_seconds", 120)
	v.SetDefault("upstream.poll_live_buses", true)
	v.SetDefault("map.dedupe_epsilon", 1e-6)
	v.SetDefault("map.anchor_lat", 28.6139)
	v.SetDefault("map.anchor_lng", 77.2090)
	v.SetDefault("map.bounds_padding", 0.01)
	v.SetDefault("map.highlight_bus_id", "")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRANSITLENS_UPSTREAM_BASE_URL → upstream.base_url
	v.SetEnvPrefix("TRANSITLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("upstream.base_url must be an absolute URL, got %q", c.Upstream.BaseURL))
	}
	if c.Upstream.BusPollSeconds <= 0 {
		errs = append(errs, "upstream.bus_poll_seconds must be positive")
	}
	if c.Upstream.ETAPollSeconds <= 0 {
		errs = append(errs, "upstream.eta_poll_seconds must be positive")
	}
	if c.Upstream.ETAIdleSeconds <= 0 {
		errs = append(errs, "upstream.eta_idle_seconds must be positive")
	}
	if c.Map.DedupeEpsilon <= 0 {
		errs = append(errs, "map.dedupe_epsilon must be positive")
	}
	if c.Map.AnchorLat < -90 || c.Map.AnchorLat > 90 {
		errs = append(errs, fmt.Sprintf("map.anchor_lat must be in [-90, 90], got %g", c.Map.AnchorLat))
	}
	if c.Map.AnchorLng < -180 || c.Map.AnchorLng > 180 {
		errs = append(errs, fmt.Sprintf("map.anchor_lng must be in [-180, 180], got %g", c.Map.AnchorLng))
	}
	if c.Map.BoundsPadding < 0 {
		errs = append(errs, "map.bounds_padding must not be negative")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from FLOW_* environment variables.
type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	// AllowedOrigins are host patterns for CORS and websocket upgrades.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"localhost:5173,localhost:3000"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	// DevTokens enables the unauthenticated token endpoint.
	DevTokens bool `envconfig:"DEV_TOKENS" default:"true"`

	// Engine defaults for every flow session.
	MinZoom              float64       `envconfig:"MIN_ZOOM" default:"0.5"`
	MaxZoom              float64       `envconfig:"MAX_ZOOM" default:"2"`
	NodeOrigin           []float64     `envconfig:"NODE_ORIGIN" default:"0,0"`
	SnapToGrid           bool          `envconfig:"SNAP_TO_GRID" default:"false"`
	SnapGrid             []float64     `envconfig:"SNAP_GRID" default:"15,15"`
	NodeDragThreshold    float64       `envconfig:"NODE_DRAG_THRESHOLD" default:"1"`
	AutoPanSpeed         float64       `envconfig:"AUTO_PAN_SPEED" default:"15"`
	ElevateNodesOnSelect bool          `envconfig:"ELEVATE_NODES_ON_SELECT" default:"true"`
	SelectNodesOnDrag    bool          `envconfig:"SELECT_NODES_ON_DRAG" default:"true"`
	PanOnScrollSpeed     float64       `envconfig:"PAN_ON_SCROLL_SPEED" default:"0.5"`
	FrameInterval        time.Duration `envconfig:"FRAME_INTERVAL" default:"16ms"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("flow", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.NodeOrigin) != 2 {
		return fmt.Errorf("node origin needs two values, got %d", len(c.NodeOrigin))
	}
	if len(c.SnapGrid) != 2 {
		return fmt.Errorf("snap grid needs two values, got %d", len(c.SnapGrid))
	}
	if c.MinZoom <= 0 || c.MaxZoom < c.MinZoom {
		return fmt.Errorf("invalid zoom range [%g, %g]", c.MinZoom, c.MaxZoom)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

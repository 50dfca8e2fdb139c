// Package config loads the runtime configuration: a YAML file, an optional
// .env overlay, and struct-tag validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Platform selects the gate endpoint and login flavor.
	Platform string `yaml:"platform" validate:"oneof=qq wx"`
	// GateURL overrides the platform's default gate endpoint when set.
	GateURL string `yaml:"gate_url" validate:"omitempty,url"`

	Farm      FarmConfig      `yaml:"farm"`
	Friends   FriendsConfig   `yaml:"friends"`
	Warehouse WarehouseConfig `yaml:"warehouse"`

	HeartbeatSeconds int `yaml:"heartbeat_seconds" validate:"min=0"`

	// DataDir holds the action journal and any frame captures.
	DataDir string `yaml:"data_dir"`
	// CaptureFrames enables raw wire-frame capture under DataDir.
	CaptureFrames bool `yaml:"capture_frames"`
}

type FarmConfig struct {
	IntervalSeconds      int  `yaml:"interval_seconds" validate:"min=0"`
	ForceLowestLevelCrop bool `yaml:"force_lowest_level_crop"`
}

type FriendsConfig struct {
	IntervalSeconds int  `yaml:"interval_seconds" validate:"min=0"`
	HelpOnlyWithExp bool `yaml:"help_only_with_exp"`
	StealEnabled    bool `yaml:"steal_enabled"`
	EnableSabotage  bool `yaml:"enable_sabotage"`
}

type WarehouseConfig struct {
	IntervalSeconds int `yaml:"interval_seconds" validate:"min=0"`
	MinQuantity     int `yaml:"min_quantity" validate:"min=0"`
}

func Default() Config {
	return Config{
		Platform:         "qq",
		HeartbeatSeconds: 25,
		DataDir:          "data",
		Farm: FarmConfig{
			IntervalSeconds: 60,
		},
		Friends: FriendsConfig{
			IntervalSeconds: 300,
			HelpOnlyWithExp: true,
			StealEnabled:    true,
		},
		Warehouse: WarehouseConfig{
			IntervalSeconds: 60,
			MinQuantity:     1,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overlays FARMHAND_* environment variables. Call after godotenv
// has populated the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FARMHAND_PLATFORM"); v != "" {
		c.Platform = v
	}
	if v := os.Getenv("FARMHAND_GATE_URL"); v != "" {
		c.GateURL = v
	}
	if v := os.Getenv("FARMHAND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v, ok := envInt("FARMHAND_FARM_INTERVAL"); ok {
		c.Farm.IntervalSeconds = v
	}
	if v, ok := envInt("FARMHAND_FRIEND_INTERVAL"); ok {
		c.Friends.IntervalSeconds = v
	}
	if v, ok := envBool("FARMHAND_CAPTURE_FRAMES"); ok {
		c.CaptureFrames = v
	}
	if v, ok := envBool("FARMHAND_STEAL_ENABLED"); ok {
		c.Friends.StealEnabled = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Normalize clamps intervals to their floors. Zero values fall back to the
// defaults rather than busy-looping.
func (c *Config) Normalize() {
	d := Default()
	if c.Farm.IntervalSeconds <= 0 {
		c.Farm.IntervalSeconds = d.Farm.IntervalSeconds
	}
	if c.Friends.IntervalSeconds <= 0 {
		c.Friends.IntervalSeconds = d.Friends.IntervalSeconds
	}
	if c.Warehouse.IntervalSeconds <= 0 {
		c.Warehouse.IntervalSeconds = d.Warehouse.IntervalSeconds
	}
	if c.HeartbeatSeconds <= 0 {
		c.HeartbeatSeconds = d.HeartbeatSeconds
	}
	if c.Warehouse.MinQuantity < 1 {
		c.Warehouse.MinQuantity = 1
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) FarmInterval() time.Duration {
	return time.Duration(c.Farm.IntervalSeconds) * time.Second
}

func (c *Config) FriendInterval() time.Duration {
	return time.Duration(c.Friends.IntervalSeconds) * time.Second
}

func (c *Config) WarehouseInterval() time.Duration {
	return time.Duration(c.Warehouse.IntervalSeconds) * time.Second
}

func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

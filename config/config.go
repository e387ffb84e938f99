// Package config provides configuration loading and access for the substrate runner.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runner configuration parameters.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Channels  []ChannelDecl   `yaml:"channels"`
	Diffusion DiffusionConfig `yaml:"diffusion"`
	Noise     NoiseConfig     `yaml:"noise"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Run       RunConfig       `yaml:"run"`
}

// GridConfig holds the substrate grid dimensions and element type.
type GridConfig struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	ElemType      string `yaml:"elem_type"`      // float32 or int32
	ReservedDepth int    `yaml:"reserved_depth"` // depth slots reserved ahead of all channels
}

// ChannelDecl declares one substrate channel. Declaration order is layout
// order, which is why channels are a list rather than a map.
type ChannelDecl struct {
	Name     string        `yaml:"name"`
	ElemType string        `yaml:"elem_type"` // empty = grid elem_type
	Depth    int           `yaml:"depth"`     // slots per cell (default 1)
	Bounds   []float64     `yaml:"bounds"`    // [min, max]; empty = (-1, 1)
	Subs     []ChannelDecl `yaml:"subchannels"`
}

// DiffusionConfig holds the diffusion/regrowth kernel parameters.
type DiffusionConfig struct {
	Resource string  `yaml:"resource"` // channel receiving diffusion
	Capacity string  `yaml:"capacity"` // regrowth target channel
	Rate     float64 `yaml:"rate"`     // diffusion strength per second
	Regrow   float64 `yaml:"regrow"`   // regrowth rate toward capacity per second
}

// NoiseConfig holds FBM seeding parameters.
type NoiseConfig struct {
	Scale      float64 `yaml:"scale"`
	Octaves    int     `yaml:"octaves"`
	Lacunarity float64 `yaml:"lacunarity"`
	Gain       float64 `yaml:"gain"`
	Contrast   float64 `yaml:"contrast"`
	Seed       int64   `yaml:"seed"`
}

// ParallelConfig holds the kernel worker pool parameters.
type ParallelConfig struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // ticks per stats window
}

// RunConfig holds run-loop parameters.
type RunConfig struct {
	Ticks int     `yaml:"ticks"`
	DT    float64 `yaml:"dt"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// A user channel list replaces the default list wholesale; merging
		// two ordered layouts would scramble the slot assignment.
		cfg.Channels = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if cfg.Channels == nil {
			base := &Config{}
			if err := yaml.Unmarshal(defaultsYAML, base); err != nil {
				return nil, fmt.Errorf("parsing embedded defaults: %w", err)
			}
			cfg.Channels = base.Channels
		}
	}

	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

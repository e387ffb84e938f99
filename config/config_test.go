package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/reef/substrate"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.Width != 256 || cfg.Grid.Height != 256 {
		t.Errorf("grid = %dx%d, want 256x256", cfg.Grid.Width, cfg.Grid.Height)
	}
	if len(cfg.Channels) != 3 {
		t.Fatalf("channels = %d, want 3", len(cfg.Channels))
	}
	want := []string{"resource", "capacity", "signal"}
	for i, name := range want {
		if cfg.Channels[i].Name != name {
			t.Errorf("channel[%d] = %q, want %q", i, cfg.Channels[i].Name, name)
		}
	}
	if cfg.Diffusion.Resource != "resource" || cfg.Diffusion.Rate != 0.10 {
		t.Errorf("diffusion = %+v", cfg.Diffusion)
	}
}

func TestLoadUserOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	user := `
grid:
  width: 32
  height: 16
channels:
  - name: heat
    depth: 2
`
	if err := os.WriteFile(path, []byte(user), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.Width != 32 || cfg.Grid.Height != 16 {
		t.Errorf("grid = %dx%d, want 32x16", cfg.Grid.Width, cfg.Grid.Height)
	}
	// User channel list replaces the defaults wholesale.
	if len(cfg.Channels) != 1 || cfg.Channels[0].Name != "heat" {
		t.Errorf("channels = %+v, want only heat", cfg.Channels)
	}
	// Untouched sections keep their defaults.
	if cfg.Noise.Octaves != 4 {
		t.Errorf("noise octaves = %d, want default 4", cfg.Noise.Octaves)
	}
}

func TestLoadUserWithoutChannelsKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("run:\n  ticks: 5\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Ticks != 5 {
		t.Errorf("ticks = %d, want 5", cfg.Run.Ticks)
	}
	if len(cfg.Channels) != 3 {
		t.Errorf("channels = %d, want default 3", len(cfg.Channels))
	}
}

func TestBuild(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Grid.Width = 8
	cfg.Grid.Height = 8

	s, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Allocated() {
		t.Fatal("Build must return an unallocated substrate")
	}
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	// resource(1) + capacity(1) + signal.rgb(3) + signal.phase(1)
	if s.TotalDepth() != 6 {
		t.Errorf("TotalDepth = %d, want 6", s.TotalDepth())
	}
	ix, _ := s.Index()
	inds, err := ix.Indices(substrate.Sub("signal", "rgb"))
	if err != nil {
		t.Fatalf("Indices(signal.rgb): %v", err)
	}
	if len(inds) != 3 || inds[0] != 2 {
		t.Errorf("signal.rgb = %v, want [2 3 4]", inds)
	}

	ch, err := s.Channel("resource")
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if ch.Bounds.Min != 0 || ch.Bounds.Max != 1 {
		t.Errorf("resource bounds = %+v, want [0, 1]", ch.Bounds)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"bad elem type", func(c *Config) { c.Grid.ElemType = "float64" }},
		{"bad bounds", func(c *Config) { c.Channels[0].Bounds = []float64{1} }},
		{"deep nesting", func(c *Config) {
			c.Channels[2].Subs[0].Subs = []ChannelDecl{{Name: "deeper"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.edit(cfg)
			if _, err := Build(cfg); err == nil {
				t.Error("Build succeeded, want error")
			}
		})
	}
}

package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/reef/substrate"
)

func newTestSubstrate(t *testing.T) *substrate.Substrate {
	t.Helper()
	s, err := substrate.New(4, 4, substrate.Float32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = s.RegisterAll([]substrate.Decl{
		{Name: "resource", Spec: substrate.ChannelSpec{}},
		{Name: "signal", Spec: substrate.ChannelSpec{Subs: []substrate.SubSpec{
			{Name: "rgb", Depth: 3},
		}}},
	})
	if err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return s
}

func TestComputeChannelStats(t *testing.T) {
	s := newTestSubstrate(t)

	vals := substrate.NewTensor2D(4, 4)
	for i := range vals.Data {
		vals.Data[i] = float32(i + 1) // 1..16
	}
	if err := s.Write(substrate.C("resource"), vals); err != nil {
		t.Fatalf("Write: %v", err)
	}

	cs, err := StatsFor(s, substrate.C("resource"))
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}
	if cs.Min != 1 || cs.Max != 16 {
		t.Errorf("min/max = %v/%v, want 1/16", cs.Min, cs.Max)
	}
	if math.Abs(cs.Mean-8.5) > 0.001 {
		t.Errorf("mean = %v, want 8.5", cs.Mean)
	}
	if cs.Std <= 0 {
		t.Errorf("std = %v, want > 0", cs.Std)
	}
	if cs.P50 < cs.P10 || cs.P90 < cs.P50 {
		t.Errorf("percentiles out of order: %v %v %v", cs.P10, cs.P50, cs.P90)
	}
}

func TestStatsZeroedChannel(t *testing.T) {
	s := newTestSubstrate(t)

	cs, err := StatsFor(s, substrate.Sub("signal", "rgb"))
	if err != nil {
		t.Fatalf("StatsFor: %v", err)
	}
	if cs.Min != 0 || cs.Max != 0 || cs.Mean != 0 {
		t.Errorf("zeroed channel stats = %+v", cs)
	}
}

func TestCollectorWindow(t *testing.T) {
	s := newTestSubstrate(t)

	c, err := NewCollector(s, 10, substrate.C("resource"), substrate.Sub("signal", "rgb"))
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	for tick := 1; tick < 10; tick++ {
		recs, err := c.Collect(tick)
		if err != nil {
			t.Fatalf("Collect(%d): %v", tick, err)
		}
		if recs != nil {
			t.Fatalf("Collect(%d) = %v, want nil inside window", tick, recs)
		}
	}

	recs, err := c.Collect(10)
	if err != nil {
		t.Fatalf("Collect(10): %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Channel != "resource" || recs[1].Channel != "signal.rgb" {
		t.Errorf("channels = %q, %q", recs[0].Channel, recs[1].Channel)
	}
	if recs[0].Tick != 10 {
		t.Errorf("tick = %d, want 10", recs[0].Tick)
	}
}

func TestCollectorUnknownRef(t *testing.T) {
	s := newTestSubstrate(t)
	if _, err := NewCollector(s, 10, substrate.C("nope")); err == nil {
		t.Error("NewCollector with unknown ref succeeded, want error")
	}
}

func TestOutputManagerCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	recs := []ChannelStats{
		{Tick: 10, Channel: "resource", Mean: 0.5},
		{Tick: 10, Channel: "signal.rgb", Mean: 0.25},
	}
	if err := om.WriteStats(recs); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.WriteStats([]ChannelStats{{Tick: 20, Channel: "resource", Mean: 0.75}}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "channels.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3 rows:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "channel") || !strings.Contains(lines[0], "mean") {
		t.Errorf("header = %q", lines[0])
	}
	// The second batch must not repeat the header.
	if strings.Contains(lines[3], "channel,") {
		t.Errorf("repeated header: %q", lines[3])
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}
	// All methods are nil-safe.
	if err := om.WriteStats([]ChannelStats{{}}); err != nil {
		t.Errorf("WriteStats on nil: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

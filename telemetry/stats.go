// Package telemetry computes and records per-channel statistics of a
// running substrate.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/reef/substrate"
)

// ChannelStats holds aggregated statistics for one channel over one window.
type ChannelStats struct {
	Tick    int     `csv:"tick"`
	Channel string  `csv:"channel"`
	Min     float64 `csv:"min"`
	Max     float64 `csv:"max"`
	Mean    float64 `csv:"mean"`
	Std     float64 `csv:"std"`
	P10     float64 `csv:"p10"`
	P50     float64 `csv:"p50"`
	P90     float64 `csv:"p90"`
}

// ComputeChannelStats samples a resolved view into summary statistics.
// The scratch slice is reused across calls when large enough.
func ComputeChannelStats(v *substrate.View, scratch []float64) (ChannelStats, []float64) {
	n := v.W * v.H * v.Depth()
	if cap(scratch) < n {
		scratch = make([]float64, n)
	}
	scratch = scratch[:0]
	for d := 0; d < v.Depth(); d++ {
		for _, val := range v.Plane(d) {
			scratch = append(scratch, float64(val))
		}
	}
	if len(scratch) == 0 {
		return ChannelStats{}, scratch
	}

	s := ChannelStats{
		Mean: stat.Mean(scratch, nil),
		Std:  stat.StdDev(scratch, nil),
	}
	s.Min, s.Max = scratch[0], scratch[0]
	for _, val := range scratch[1:] {
		if val < s.Min {
			s.Min = val
		}
		if val > s.Max {
			s.Max = val
		}
	}

	sort.Float64s(scratch)
	s.P10 = stat.Quantile(0.10, stat.Empirical, scratch, nil)
	s.P50 = stat.Quantile(0.50, stat.Empirical, scratch, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, scratch, nil)
	return s, scratch
}

// StatsFor computes stats for a single reference against the substrate.
func StatsFor(s *substrate.Substrate, ref substrate.Ref) (ChannelStats, error) {
	v, err := s.Read(ref)
	if err != nil {
		return ChannelStats{}, err
	}
	cs, _ := ComputeChannelStats(v, nil)
	cs.Channel = ref.String()
	return cs, nil
}

// LogValue implements slog.LogValuer for structured logging.
func (s ChannelStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", s.Tick),
		slog.String("channel", s.Channel),
		slog.Float64("min", s.Min),
		slog.Float64("max", s.Max),
		slog.Float64("mean", s.Mean),
		slog.Float64("std", s.Std),
		slog.Float64("p10", s.P10),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
	)
}

// LogStats logs the channel stats using slog.
func (s ChannelStats) LogStats() {
	slog.Info("stats",
		"tick", s.Tick,
		"channel", s.Channel,
		"min", s.Min,
		"max", s.Max,
		"mean", s.Mean,
		"std", s.Std,
		"p10", s.P10,
		"p50", s.P50,
		"p90", s.P90,
	)
}

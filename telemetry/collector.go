package telemetry

import (
	"github.com/pthm-cable/reef/substrate"
)

// Collector samples a fixed set of channel references at the end of each
// stats window. The reference set is resolved once at construction so the
// hot path performs no name lookups.
type Collector struct {
	sub     *substrate.Substrate
	refs    []substrate.Ref
	window  int
	scratch []float64
}

// NewCollector creates a collector over the given references, sampling
// every window ticks. The substrate must be allocated; unknown references
// fail here rather than mid-run.
func NewCollector(sub *substrate.Substrate, window int, refs ...substrate.Ref) (*Collector, error) {
	ix, err := sub.Index()
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if _, err := ix.Indices(ref); err != nil {
			return nil, err
		}
	}
	if window < 1 {
		window = 1
	}
	return &Collector{sub: sub, refs: refs, window: window}, nil
}

// Collect samples all tracked references if tick closes a window.
// Returns nil between window boundaries.
func (c *Collector) Collect(tick int) ([]ChannelStats, error) {
	if tick%c.window != 0 {
		return nil, nil
	}
	out := make([]ChannelStats, 0, len(c.refs))
	for _, ref := range c.refs {
		v, err := c.sub.Read(ref)
		if err != nil {
			return nil, err
		}
		var cs ChannelStats
		cs, c.scratch = ComputeChannelStats(v, c.scratch)
		cs.Tick = tick
		cs.Channel = ref.String()
		out = append(out, cs)
	}
	return out, nil
}

// Window returns the collector's window size in ticks.
func (c *Collector) Window() int { return c.window }

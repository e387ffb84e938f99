package substrate

import "fmt"

// Channel is the metadata record for one named channel (or sub-channel).
// Bounds and Meta are descriptive only; the layout planner derives the
// channel's depth from its registration spec, and allocation links the
// channel to its slice of the backing store.
type Channel struct {
	Name   string
	Type   ElemType
	Bounds Bounds

	// Meta is an open documentation/provenance map. It carries no
	// load-bearing state: shape, type and offsets live in typed fields.
	Meta map[string]any

	depth int
	init  *Tensor
	subs  []*Channel

	slice *Slice
}

// Depth returns the number of depth slots the channel occupies per cell,
// including all of its sub-channels.
func (c *Channel) Depth() int { return c.depth }

// Subs returns the ordered sub-channels, or nil for a plain channel.
func (c *Channel) Subs() []*Channel { return c.subs }

// Sub returns the named sub-channel, or nil.
func (c *Channel) Sub(name string) *Channel {
	for _, sc := range c.subs {
		if sc.Name == name {
			return sc
		}
	}
	return nil
}

// Slice returns the channel's linked region of the backing store.
// Fails with ErrNotAllocated before the substrate has allocated.
func (c *Channel) Slice() (*Slice, error) {
	if c.slice == nil {
		return nil, fmt.Errorf("%w: channel %q has no linked memory", ErrNotAllocated, c.Name)
	}
	return c.slice, nil
}

// Data returns the channel's contiguous zero-copy window of the backing
// store. Fails with ErrNotAllocated before allocation.
func (c *Channel) Data() ([]float32, error) {
	s, err := c.Slice()
	if err != nil {
		return nil, err
	}
	return s.Data(), nil
}

// Slice is a channel's region of the backing store: the half-open plane
// range [Lo, Hi) along the depth axis. Because the store is depth-major,
// the region is one contiguous subslice of the shared buffer.
type Slice struct {
	Lo, Hi int
	mem    []float32
	w, h   int
}

// Data returns the region as a zero-copy subslice of the backing store.
func (s *Slice) Data() []float32 {
	n := s.w * s.h
	return s.mem[s.Lo*n : s.Hi*n]
}

// Plane returns the i-th plane of the region (plane Lo+i of the store).
func (s *Slice) Plane(i int) []float32 {
	n := s.w * s.h
	p := s.Lo + i
	return s.mem[p*n : (p+1)*n]
}

// Len returns the number of depth slots in the region.
func (s *Slice) Len() int { return s.Hi - s.Lo }

// SubSpec declares one sub-channel at registration time. Exactly one of
// Depth (>= 1) or Init determines the slot count; when Init is present its
// trailing dimension wins and its grid prefix must match the substrate.
type SubSpec struct {
	Name   string
	Type   ElemType
	Depth  int
	Bounds *Bounds
	Init   *Tensor
}

// ChannelSpec declares one top-level channel at registration time.
// A channel with Subs is a pure grouping: it must not carry its own
// Depth or Init, and nesting stops at one level.
type ChannelSpec struct {
	Type   ElemType
	Depth  int
	Bounds *Bounds
	Meta   map[string]any
	Init   *Tensor
	Subs   []SubSpec
}

// Decl pairs a channel name with its spec for ordered batch registration.
type Decl struct {
	Name string
	Spec ChannelSpec
}

// slotCount resolves the declared depth of a plain (sub-)channel spec:
// Init's trailing dimension when present, the explicit Depth otherwise,
// defaulting to 1.
func slotCount(depth int, init *Tensor) int {
	if init != nil {
		return init.Slots()
	}
	if depth == 0 {
		return 1
	}
	return depth
}

func boundsOrDefault(b *Bounds) Bounds {
	if b == nil {
		return DefaultBounds
	}
	return *b
}

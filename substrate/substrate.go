package substrate

import (
	"fmt"
	"log/slog"
)

// Substrate owns the grid dimensions, the ordered channel registry, the
// backing store and the index resolver. Channels are registered while the
// substrate is unallocated; Allocate packs them into one contiguous buffer
// and freezes the registry. The transition is one-way.
//
// The substrate assumes a single coordinating owner per simulation step.
// There is no locking: after allocation the registry and index are
// immutable, and concurrent kernels touching disjoint depth ranges are
// non-overlapping by the layout planner's disjointness invariant.
type Substrate struct {
	w, h     int
	elem     ElemType
	reserved int

	channels []*Channel
	byName   map[string]*Channel

	mem        []float32
	totalDepth int
	index      *Index
}

// New creates an unallocated substrate for a w x h grid with the given
// global element type.
func New(w, h int, elem ElemType) (*Substrate, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions (%d, %d)", ErrInvalidShape, w, h)
	}
	return &Substrate{
		w:      w,
		h:      h,
		elem:   elem,
		byName: make(map[string]*Channel),
	}, nil
}

// W returns the grid width.
func (s *Substrate) W() int { return s.w }

// H returns the grid height.
func (s *Substrate) H() int { return s.h }

// Elem returns the global element type of the backing store.
func (s *Substrate) Elem() ElemType { return s.elem }

// Allocated reports whether the backing store exists.
func (s *Substrate) Allocated() bool { return s.mem != nil }

// TotalDepth returns the depth of the backing store. Zero before allocation.
func (s *Substrate) TotalDepth() int { return s.totalDepth }

// ReservedDepth returns the reserved prefix depth.
func (s *Substrate) ReservedDepth() int { return s.reserved }

// ReserveDepth reserves n depth slots at the front of the store, before any
// channel's run. Fails with ErrAlreadyAllocated once the store exists.
func (s *Substrate) ReserveDepth(n int) error {
	if s.mem != nil {
		return fmt.Errorf("%w: cannot reserve depth", ErrAlreadyAllocated)
	}
	if n < 0 {
		return fmt.Errorf("%w: reserved depth %d", ErrInvalidShape, n)
	}
	s.reserved = n
	return nil
}

// Channel returns the named channel descriptor.
func (s *Substrate) Channel(name string) (*Channel, error) {
	ch, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// Channels returns the channel names in registration order.
func (s *Substrate) Channels() []string {
	out := make([]string, len(s.channels))
	for i, ch := range s.channels {
		out[i] = ch.Name
	}
	return out
}

// Index returns the resolver. Fails with ErrNotAllocated before Allocate.
func (s *Substrate) Index() (*Index, error) {
	if s.index == nil {
		return nil, fmt.Errorf("%w: index not built", ErrNotAllocated)
	}
	return s.index, nil
}

// Register adds one channel. Fails with ErrAlreadyAllocated after
// allocation, ErrDuplicateName on name collisions and ErrInvalidShape when
// a declared shape does not fit the grid.
func (s *Substrate) Register(name string, spec ChannelSpec) error {
	if err := s.validate(name, spec, nil); err != nil {
		return err
	}
	s.commit(name, spec)
	return nil
}

// RegisterAll registers channels in declaration order. Every declaration is
// validated before any is committed, so a failure leaves no partially
// registered set observable by later lookups.
func (s *Substrate) RegisterAll(decls []Decl) error {
	pending := make(map[string]bool, len(decls))
	for _, d := range decls {
		if err := s.validate(d.Name, d.Spec, pending); err != nil {
			return err
		}
		pending[d.Name] = true
	}
	for _, d := range decls {
		s.commit(d.Name, d.Spec)
	}
	return nil
}

func (s *Substrate) validate(name string, spec ChannelSpec, pending map[string]bool) error {
	if s.mem != nil {
		return fmt.Errorf("%w: cannot register channel %q", ErrAlreadyAllocated, name)
	}
	if name == "" {
		return fmt.Errorf("%w: empty channel name", ErrInvalidShape)
	}
	if _, ok := s.byName[name]; ok || pending[name] {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	if len(spec.Subs) > 0 {
		// Grouping channel: depth comes from the sub-channels alone.
		if spec.Init != nil || spec.Depth != 0 {
			return fmt.Errorf("%w: channel %q declares both sub-channels and its own data",
				ErrInvalidShape, name)
		}
		seen := make(map[string]bool, len(spec.Subs))
		for _, sub := range spec.Subs {
			if sub.Name == "" {
				return fmt.Errorf("%w: channel %q has an unnamed sub-channel", ErrInvalidShape, name)
			}
			if seen[sub.Name] {
				return fmt.Errorf("%w: %q.%q", ErrDuplicateName, name, sub.Name)
			}
			seen[sub.Name] = true
			if err := s.validatePlain(name+"."+sub.Name, sub.Depth, sub.Init); err != nil {
				return err
			}
		}
		return nil
	}
	return s.validatePlain(name, spec.Depth, spec.Init)
}

// validatePlain checks a plain (sub-)channel's declared shape: depth must be
// positive and any initial data must be a 2- or 3-D tensor whose leading
// (W, H) prefix matches the grid.
func (s *Substrate) validatePlain(path string, depth int, init *Tensor) error {
	if depth < 0 {
		return fmt.Errorf("%w: channel %q declares depth %d", ErrInvalidShape, path, depth)
	}
	if init == nil {
		return nil
	}
	if err := init.validate(); err != nil {
		return fmt.Errorf("channel %q: %w", path, err)
	}
	if init.W != s.w || init.H != s.h {
		return fmt.Errorf("%w: channel %q initial data is (%d, %d), grid is (%d, %d)",
			ErrInvalidShape, path, init.W, init.H, s.w, s.h)
	}
	if depth != 0 && init.Slots() != depth {
		return fmt.Errorf("%w: channel %q declares depth %d but initial data has %d",
			ErrInvalidShape, path, depth, init.Slots())
	}
	return nil
}

func (s *Substrate) commit(name string, spec ChannelSpec) {
	ch := &Channel{
		Name:   name,
		Type:   spec.Type,
		Bounds: boundsOrDefault(spec.Bounds),
		Meta:   spec.Meta,
		depth:  slotCount(spec.Depth, spec.Init),
		init:   spec.Init,
	}
	for _, sub := range spec.Subs {
		ch.subs = append(ch.subs, &Channel{
			Name:   sub.Name,
			Type:   sub.Type,
			Bounds: boundsOrDefault(sub.Bounds),
			depth:  slotCount(sub.Depth, sub.Init),
			init:   sub.Init,
		})
	}
	s.channels = append(s.channels, ch)
	s.byName[name] = ch
}

// Allocate builds the zero-initialized backing store, copies each channel's
// initial data into its assigned planes, links every descriptor's slice and
// freezes the index. Element-type coercions during the copy are surfaced as
// returned CastWarnings (and logged) rather than failing the call.
//
// Fails with ErrAlreadyAllocated on repeat calls. On success every channel
// slice is a valid, non-overlapping zero-copy view into the one buffer.
func (s *Substrate) Allocate() ([]CastWarning, error) {
	if s.mem != nil {
		return nil, fmt.Errorf("%w: cannot allocate twice", ErrAlreadyAllocated)
	}

	index, totalDepth, err := planLayout(s.channels, s.reserved)
	if err != nil {
		return nil, err
	}

	mem := make([]float32, s.w*s.h*totalDepth)
	var warnings []CastWarning

	for _, ch := range s.channels {
		r, err := index.RangeOf(C(ch.Name))
		if err != nil {
			return nil, err
		}
		ch.slice = &Slice{Lo: r.Lo, Hi: r.Hi, mem: mem, w: s.w, h: s.h}

		if len(ch.subs) == 0 {
			if w, err := s.copyInit(ch.Name, ch, ch.slice); err != nil {
				return nil, err
			} else if w != nil {
				warnings = append(warnings, *w)
			}
			continue
		}
		for _, sc := range ch.subs {
			sr, err := index.RangeOf(Sub(ch.Name, sc.Name))
			if err != nil {
				return nil, err
			}
			sc.slice = &Slice{Lo: sr.Lo, Hi: sr.Hi, mem: mem, w: s.w, h: s.h}
			if w, err := s.copyInit(ch.Name+"."+sc.Name, sc, sc.slice); err != nil {
				return nil, err
			} else if w != nil {
				warnings = append(warnings, *w)
			}
		}
	}

	s.mem = mem
	s.totalDepth = totalDepth
	s.index = index
	return warnings, nil
}

// copyInit moves a channel's initial data into its linked planes, casting
// to the store's element type when the declared types differ.
func (s *Substrate) copyInit(path string, ch *Channel, dst *Slice) (*CastWarning, error) {
	t := ch.init
	if t == nil {
		return nil, nil
	}
	if t.W != s.w || t.H != s.h {
		return nil, fmt.Errorf("%w: channel %q initial data is (%d, %d), grid is (%d, %d)",
			ErrShapeMismatch, path, t.W, t.H, s.w, s.h)
	}
	if t.Slots() != dst.Len() {
		return nil, fmt.Errorf("%w: channel %q initial data has depth %d, assigned %d slots",
			ErrShapeMismatch, path, t.Slots(), dst.Len())
	}

	var warning *CastWarning
	cast := t.Type != s.elem
	if cast {
		warning = &CastWarning{Channel: path, From: t.Type, To: s.elem}
		slog.Warn("casting channel initial data", "channel", path,
			"from", t.Type.String(), "to", s.elem.String())
	}

	for d := 0; d < t.Slots(); d++ {
		src := t.Plane(d)
		plane := dst.Plane(d)
		if cast && s.elem == Int32 {
			for i, v := range src {
				plane[i] = float32(int32(v))
			}
			continue
		}
		copy(plane, src)
	}
	return warning, nil
}

// Mem returns the whole backing store. Direct mutation through it is
// permitted but bypasses every shape check. Fails with ErrNotAllocated
// before allocation.
func (s *Substrate) Mem() ([]float32, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("%w: no backing store", ErrNotAllocated)
	}
	return s.mem, nil
}

// plane returns depth plane p of the backing store.
func (s *Substrate) plane(p int) []float32 {
	n := s.w * s.h
	return s.mem[p*n : (p+1)*n]
}

// Read resolves the references (host mode) and returns a zero-copy view of
// the buffer at those depth slots, retaining the grid axes. Fails with
// ErrNotAllocated before allocation.
func (s *Substrate) Read(refs ...Ref) (*View, error) {
	if s.mem == nil {
		return nil, fmt.Errorf("%w: cannot read %v", ErrNotAllocated, refs)
	}
	inds, err := s.index.AppendIndicesInto(nil, refs...)
	if err != nil {
		return nil, err
	}
	planes := make([][]float32, len(inds))
	for i, p := range inds {
		planes[i] = s.plane(p)
	}
	return &View{W: s.w, H: s.h, planes: planes}, nil
}

// Write resolves the reference and copies value into the buffer in place.
// The value's shape must match the resolved (W, H, depth) slice exactly; a
// 2-D value is accepted when the resolved range is a single slot. Fails
// with ErrShapeMismatch otherwise and ErrNotAllocated before allocation.
func (s *Substrate) Write(ref Ref, value *Tensor) error {
	if s.mem == nil {
		return fmt.Errorf("%w: cannot write %s", ErrNotAllocated, ref)
	}
	inds, err := s.index.Indices(ref)
	if err != nil {
		return err
	}
	if value.W != s.w || value.H != s.h {
		return fmt.Errorf("%w: writing %s: value is (%d, %d), grid is (%d, %d)",
			ErrShapeMismatch, ref, value.W, value.H, s.w, s.h)
	}
	// A trailing singleton depth axis is squeezed when the range has length 1.
	if len(inds) == 1 {
		if value.Slots() != 1 {
			return fmt.Errorf("%w: writing %s: value has depth %d, expected 1",
				ErrShapeMismatch, ref, value.Slots())
		}
	} else if value.Slots() != len(inds) {
		return fmt.Errorf("%w: writing %s: value has depth %d, expected %d",
			ErrShapeMismatch, ref, value.Slots(), len(inds))
	}

	for d, p := range inds {
		copy(s.plane(p), value.Plane(d))
	}
	return nil
}

// View is a zero-copy window over the backing store at an ordered set of
// resolved depth slots. Planes alias substrate memory: writes through a
// plane are immediately visible to every other view of the same slots.
type View struct {
	W, H   int
	planes [][]float32
}

// Depth returns the number of resolved slots in the view.
func (v *View) Depth() int { return len(v.planes) }

// Plane returns the d-th resolved plane (len W*H, cell (x, y) at y*W+x).
func (v *View) Plane(d int) []float32 { return v.planes[d] }

// At returns the value at grid cell (x, y), view slot d.
func (v *View) At(x, y, d int) float32 { return v.planes[d][y*v.W+x] }

// Set stores val at grid cell (x, y), view slot d, writing through to the
// backing store.
func (v *View) Set(x, y, d int, val float32) { v.planes[d][y*v.W+x] = val }

// Tensor copies the view out into a standalone tensor.
func (v *View) Tensor() *Tensor {
	t := NewTensor(v.W, v.H, len(v.planes))
	for d, p := range v.planes {
		copy(t.Plane(d), p)
	}
	return t
}

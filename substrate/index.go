package substrate

import (
	"fmt"
	"strings"
)

// Ref is a symbolic reference into the index: a channel name, optionally
// narrowed to one or more of its sub-channels. A Ref with multiple Subs
// resolves to the concatenation of the sub-channel ranges in list order.
type Ref struct {
	Chan string
	Subs []string
}

// C references a whole top-level channel.
func C(name string) Ref { return Ref{Chan: name} }

// Sub references one or more sub-channels of a channel, in the given order.
func Sub(name string, subs ...string) Ref { return Ref{Chan: name, Subs: subs} }

// ParseRef parses a "channel" or "channel.subchannel" path.
func ParseRef(path string) Ref {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return Sub(path[:i], path[i+1:])
	}
	return C(path)
}

func (r Ref) String() string {
	if len(r.Subs) == 0 {
		return r.Chan
	}
	return r.Chan + "." + strings.Join(r.Subs, ",")
}

// Range is a half-open [Lo, Hi) run of depth slots.
type Range struct {
	Lo, Hi int
}

// Len returns the number of slots in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// IndexVec is the device-resident form of a resolved reference: an
// immutable int32 vector sized for upload into a kernel's index buffer.
type IndexVec struct {
	inds []int32
}

// Len returns the number of slot indices.
func (v IndexVec) Len() int { return len(v.inds) }

// At returns the i-th slot index.
func (v IndexVec) At(i int) int32 { return v.inds[i] }

// Int32s returns a copy of the indices, keeping the vector immutable.
func (v IndexVec) Int32s() []int32 {
	out := make([]int32, len(v.inds))
	copy(out, v.inds)
	return out
}

type indexEntry struct {
	r        Range
	inds     []int
	vec      IndexVec
	subs     map[string]*indexEntry
	subOrder []string
}

// Index resolves symbolic channel references into depth-slot indices. It is
// built exactly once during allocation, then frozen; afterwards it is
// immutable shared state, safe for any number of concurrent readers.
//
// Host lookups for single references return precomputed slices with no
// allocation; compound lists go through AppendIndicesInto so steady-state
// resolution stays allocation-free with a reused destination buffer.
type Index struct {
	entries map[string]*indexEntry
	order   []string
	frozen  bool
}

func newIndex() *Index {
	return &Index{entries: make(map[string]*indexEntry)}
}

// add registers a channel range while the index is under construction.
// Once frozen the index is read-only and add fails with ErrReadOnlyIndex.
func (ix *Index) add(name string, r Range) error {
	if ix.frozen {
		return fmt.Errorf("%w: cannot add %q", ErrReadOnlyIndex, name)
	}
	ix.entries[name] = &indexEntry{
		r:    r,
		inds: rangeIndices(r),
		vec:  IndexVec{inds: rangeIndices32(r)},
		subs: make(map[string]*indexEntry),
	}
	ix.order = append(ix.order, name)
	return nil
}

// addSub registers a sub-channel range under an existing channel.
func (ix *Index) addSub(parent, name string, r Range) error {
	if ix.frozen {
		return fmt.Errorf("%w: cannot add %q.%q", ErrReadOnlyIndex, parent, name)
	}
	e, ok := ix.entries[parent]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, parent)
	}
	e.subs[name] = &indexEntry{
		r:    r,
		inds: rangeIndices(r),
		vec:  IndexVec{inds: rangeIndices32(r)},
	}
	e.subOrder = append(e.subOrder, name)
	return nil
}

func (ix *Index) freeze() { ix.frozen = true }

func (ix *Index) lookup(name string) (*indexEntry, error) {
	e, ok := ix.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return e, nil
}

func (ix *Index) lookupSub(parent, name string) (*indexEntry, error) {
	e, err := ix.lookup(parent)
	if err != nil {
		return nil, err
	}
	se, ok := e.subs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no sub-channel %q", ErrUnknownChannel, parent, name)
	}
	return se, nil
}

// Indices resolves a reference to its ordered slot indices (host form).
// For single references the returned slice is the resolver's precomputed
// backing array and must be treated as read-only; a multi-sub reference
// concatenates in list order into a fresh slice.
func (ix *Index) Indices(ref Ref) ([]int, error) {
	switch len(ref.Subs) {
	case 0:
		e, err := ix.lookup(ref.Chan)
		if err != nil {
			return nil, err
		}
		return e.inds, nil
	case 1:
		e, err := ix.lookupSub(ref.Chan, ref.Subs[0])
		if err != nil {
			return nil, err
		}
		return e.inds, nil
	default:
		return ix.AppendIndicesInto(nil, ref)
	}
}

// AppendIndicesInto resolves a list of references and appends their slot
// indices to dst in list order. With a reused dst of sufficient capacity
// the call does not allocate.
func (ix *Index) AppendIndicesInto(dst []int, refs ...Ref) ([]int, error) {
	for _, ref := range refs {
		if len(ref.Subs) == 0 {
			e, err := ix.lookup(ref.Chan)
			if err != nil {
				return nil, err
			}
			dst = append(dst, e.inds...)
			continue
		}
		for _, sub := range ref.Subs {
			e, err := ix.lookupSub(ref.Chan, sub)
			if err != nil {
				return nil, err
			}
			dst = append(dst, e.inds...)
		}
	}
	return dst, nil
}

// IndexVec resolves a reference to its device-resident index vector.
// Only single channel or single sub-channel references have a device form;
// compound references fail with ErrUnsupportedIndexMode.
func (ix *Index) IndexVec(ref Ref) (IndexVec, error) {
	switch len(ref.Subs) {
	case 0:
		e, err := ix.lookup(ref.Chan)
		if err != nil {
			return IndexVec{}, err
		}
		return e.vec, nil
	case 1:
		e, err := ix.lookupSub(ref.Chan, ref.Subs[0])
		if err != nil {
			return IndexVec{}, err
		}
		return e.vec, nil
	default:
		return IndexVec{}, fmt.Errorf("%w: no device form for compound reference %s",
			ErrUnsupportedIndexMode, ref)
	}
}

// RangeOf returns the contiguous plane range of a whole channel or of a
// single sub-channel, for kernels that slice the store directly.
func (ix *Index) RangeOf(ref Ref) (Range, error) {
	switch len(ref.Subs) {
	case 0:
		e, err := ix.lookup(ref.Chan)
		if err != nil {
			return Range{}, err
		}
		return e.r, nil
	case 1:
		e, err := ix.lookupSub(ref.Chan, ref.Subs[0])
		if err != nil {
			return Range{}, err
		}
		return e.r, nil
	default:
		return Range{}, fmt.Errorf("%w: no single range for compound reference %s",
			ErrUnsupportedIndexMode, ref)
	}
}

// Channels returns the top-level channel names in registration order.
func (ix *Index) Channels() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// SubChannels returns the sub-channel names of a channel in registration
// order, or an empty slice for a plain channel.
func (ix *Index) SubChannels(name string) ([]string, error) {
	e, err := ix.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.subOrder))
	copy(out, e.subOrder)
	return out, nil
}

// NameAt returns the channel path owning the given depth slot, e.g. "b.x".
// Returns "" for slots in the reserved prefix.
func (ix *Index) NameAt(slot int) string {
	for _, name := range ix.order {
		e := ix.entries[name]
		if slot < e.r.Lo || slot >= e.r.Hi {
			continue
		}
		for _, sub := range e.subOrder {
			se := e.subs[sub]
			if slot >= se.r.Lo && slot < se.r.Hi {
				return name + "." + sub
			}
		}
		return name
	}
	return ""
}

func rangeIndices(r Range) []int {
	out := make([]int, 0, r.Len())
	for i := r.Lo; i < r.Hi; i++ {
		out = append(out, i)
	}
	return out
}

func rangeIndices32(r Range) []int32 {
	out := make([]int32, 0, r.Len())
	for i := r.Lo; i < r.Hi; i++ {
		out = append(out, int32(i))
	}
	return out
}

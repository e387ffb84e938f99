// Package substrate implements the memory model for cellular-automaton
// experiments: a dense 2D grid whose cells hold named channels packed into
// one contiguous depth-major buffer, with a name-based index resolver and
// zero-copy views for collaborating kernels.
package substrate

// ElemType tags the numeric element type of a channel or of the backing
// store. Storage is always float32; the tag drives validation and the
// allocation-time cast warning.
type ElemType uint8

const (
	Float32 ElemType = iota
	Int32
)

// String returns the type name used in manifests and config files.
func (t ElemType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	}
	return "unknown"
}

// Bounds is the descriptive (min, max) value range of a channel. It is
// metadata for downstream normalization and visualization code; writes are
// not clamped against it.
type Bounds struct {
	Min float32
	Max float32
}

// DefaultBounds is used when a channel declares no bounds.
var DefaultBounds = Bounds{Min: -1, Max: 1}

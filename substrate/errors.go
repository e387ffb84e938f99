package substrate

import (
	"errors"
	"fmt"
)

// Error taxonomy of the substrate core. All are fatal to the triggering call
// and wrapped with channel/shape context via fmt.Errorf("%w: ...").
// Lifecycle violations (ErrAlreadyAllocated, ErrNotAllocated) are programmer
// errors; no retry applies.
var (
	ErrAlreadyAllocated     = errors.New("substrate already allocated")
	ErrNotAllocated         = errors.New("substrate not allocated")
	ErrDuplicateName        = errors.New("duplicate channel name")
	ErrUnknownChannel       = errors.New("unknown channel")
	ErrInvalidShape         = errors.New("invalid channel shape")
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrUnsupportedIndexMode = errors.New("unsupported index mode")
	ErrReadOnlyIndex        = errors.New("index is read-only")
)

// CastWarning records a non-fatal element-type coercion applied while
// copying a channel's initial data into the backing store during allocation.
type CastWarning struct {
	Channel string
	From    ElemType
	To      ElemType
}

func (w CastWarning) String() string {
	return fmt.Sprintf("channel %q: cast %s to %s", w.Channel, w.From, w.To)
}

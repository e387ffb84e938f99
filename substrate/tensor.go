package substrate

import "fmt"

// Tensor is a dense block of per-cell values used for channel initial data
// and for shape-checked writes. Data is plane-major: plane d occupies
// Data[d*W*H : (d+1)*W*H], and the value at (x, y) within a plane sits at
// y*W+x, matching the backing store layout so copies are plane-by-plane.
//
// Depth 0 marks a 2-D tensor (one value per cell); Depth >= 1 is 3-D.
type Tensor struct {
	W, H  int
	Depth int
	Type  ElemType
	Data  []float32
}

// NewTensor creates a zeroed 3-D float32 tensor.
func NewTensor(w, h, depth int) *Tensor {
	return &Tensor{W: w, H: h, Depth: depth, Type: Float32, Data: make([]float32, w*h*depth)}
}

// NewTensor2D creates a zeroed 2-D float32 tensor (one value per cell).
func NewTensor2D(w, h int) *Tensor {
	return &Tensor{W: w, H: h, Type: Float32, Data: make([]float32, w*h)}
}

// Slots returns the number of depth slots the tensor occupies per cell:
// the trailing dimension size, or 1 when the tensor is 2-D.
func (t *Tensor) Slots() int {
	if t.Depth == 0 {
		return 1
	}
	return t.Depth
}

// Plane returns the d-th depth plane as a subslice of Data.
func (t *Tensor) Plane(d int) []float32 {
	n := t.W * t.H
	return t.Data[d*n : (d+1)*n]
}

// At returns the value at grid cell (x, y), depth slot d.
func (t *Tensor) At(x, y, d int) float32 {
	return t.Data[d*t.W*t.H+y*t.W+x]
}

// Set stores v at grid cell (x, y), depth slot d.
func (t *Tensor) Set(x, y, d int, v float32) {
	t.Data[d*t.W*t.H+y*t.W+x] = v
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// validate checks internal consistency of dimensions against storage.
func (t *Tensor) validate() error {
	if t.W <= 0 || t.H <= 0 || t.Depth < 0 {
		return fmt.Errorf("%w: tensor dimensions (%d, %d, %d)", ErrInvalidShape, t.W, t.H, t.Depth)
	}
	if len(t.Data) != t.W*t.H*t.Slots() {
		return fmt.Errorf("%w: tensor storage %d does not match (%d, %d, %d)",
			ErrInvalidShape, len(t.Data), t.W, t.H, t.Slots())
	}
	return nil
}

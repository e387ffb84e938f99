// Package systems implements kernels that run against substrate channels:
// diffusion/regrowth, noise seeding and a row-banded parallel pass.
package systems

import (
	"fmt"

	"github.com/pthm-cable/reef/substrate"
)

// Diffusion advances a resource channel toward a capacity channel with
// optional 5-point Laplacian diffusion on the toroidal grid. Channel ranges
// are resolved once at construction; the hot path works on plane slices of
// the backing store directly.
type Diffusion struct {
	W, H int

	// Current resource - what kernels and agents consume.
	Res []float32
	// Capacity/target - what Res regrows toward.
	Cap []float32

	// Parameters
	RegrowRate float32 // per second toward Cap
	Diffuse    float32 // diffusion strength per second (0 disables)

	// Scratch buffer for diffusion
	tmp []float32
}

// NewDiffusion binds a diffusion kernel to two single-slot channels of an
// allocated substrate.
func NewDiffusion(sub *substrate.Substrate, resource, capacity substrate.Ref) (*Diffusion, error) {
	ix, err := sub.Index()
	if err != nil {
		return nil, err
	}
	res, err := singlePlane(sub, ix, resource)
	if err != nil {
		return nil, err
	}
	capPlane, err := singlePlane(sub, ix, capacity)
	if err != nil {
		return nil, err
	}
	return &Diffusion{
		W:   sub.W(),
		H:   sub.H(),
		Res: res,
		Cap: capPlane,
		tmp: make([]float32, sub.W()*sub.H()),

		RegrowRate: 0.25,
		Diffuse:    0.10,
	}, nil
}

// singlePlane resolves a reference to its one backing plane.
func singlePlane(sub *substrate.Substrate, ix *substrate.Index, ref substrate.Ref) ([]float32, error) {
	r, err := ix.RangeOf(ref)
	if err != nil {
		return nil, err
	}
	if r.Len() != 1 {
		return nil, fmt.Errorf("%w: diffusion needs a single-slot channel, %s has %d",
			substrate.ErrShapeMismatch, ref, r.Len())
	}
	mem, err := sub.Mem()
	if err != nil {
		return nil, err
	}
	n := sub.W() * sub.H()
	return mem[r.Lo*n : r.Hi*n], nil
}

// SetParams configures the kernel rates.
func (d *Diffusion) SetParams(regrowRate, diffuse float32) {
	d.RegrowRate = regrowRate
	d.Diffuse = diffuse
}

// Step advances the field by dt seconds: regrowth toward capacity, then
// diffusion.
func (d *Diffusion) Step(dt float32) {
	d.regrowRows(dt, 0, d.H)
	if d.Diffuse > 0 {
		d.stencilRows(d.diffusionAlpha(dt), 0, d.H)
		d.commitRows(0, d.H)
	}
}

// StepParallel is Step with row bands dispatched to a worker pool. Bands
// write disjoint rows, the stencil phase reads only the unmodified source,
// and phases are separated by pool barriers, so no locking is needed.
func (d *Diffusion) StepParallel(p *Pool, dt float32) {
	p.Run(d.H, func(y0, y1 int) { d.regrowRows(dt, y0, y1) })
	if d.Diffuse > 0 {
		a := d.diffusionAlpha(dt)
		p.Run(d.H, func(y0, y1 int) { d.stencilRows(a, y0, y1) })
		p.Run(d.H, func(y0, y1 int) { d.commitRows(y0, y1) })
	}
}

// regrowRows moves Res toward Cap on rows [y0, y1).
func (d *Diffusion) regrowRows(dt float32, y0, y1 int) {
	if d.RegrowRate <= 0 {
		return
	}
	k := d.RegrowRate * dt
	for i := y0 * d.W; i < y1*d.W; i++ {
		d.Res[i] += (d.Cap[i] - d.Res[i]) * k
		d.Res[i] = clamp01(d.Res[i])
	}
}

func (d *Diffusion) diffusionAlpha(dt float32) float32 {
	a := d.Diffuse * dt
	// Stability clamp for explicit diffusion
	if a > 0.25 {
		a = 0.25
	}
	return a
}

// stencilRows applies 5-point Laplacian diffusion on the toroidal grid for
// rows [y0, y1), writing into the scratch buffer.
func (d *Diffusion) stencilRows(a float32, y0, y1 int) {
	w, h := d.W, d.H
	src := d.Res
	dst := d.tmp

	for y := y0; y < y1; y++ {
		yN := modInt(y-1, h)
		yS := modInt(y+1, h)
		for x := 0; x < w; x++ {
			xW := modInt(x-1, w)
			xE := modInt(x+1, w)

			i := y*w + x
			c := src[i]
			n := src[yN*w+x]
			s := src[yS*w+x]
			e := src[y*w+xE]
			wv := src[y*w+xW]

			dst[i] = c + a*(n+s+e+wv-4*c)
		}
	}
}

// commitRows copies the scratch rows back into Res with clamping.
func (d *Diffusion) commitRows(y0, y1 int) {
	for i := y0 * d.W; i < y1*d.W; i++ {
		d.Res[i] = clamp01(d.tmp[i])
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

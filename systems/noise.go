package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/reef/substrate"
)

// NoiseSeeder fills substrate channels with fractional Brownian motion
// built on OpenSimplex noise. Multi-slot channels get a decorrelated field
// per depth plane.
type NoiseSeeder struct {
	Scale      float64
	Octaves    int
	Lacunarity float64
	Gain       float64
	Contrast   float64 // exponent shaping; higher = sparser patches

	noise opensimplex.Noise
}

// NewNoiseSeeder creates a seeder with the given RNG seed and default
// parameters.
func NewNoiseSeeder(seed int64) *NoiseSeeder {
	return &NoiseSeeder{
		Scale:      4.0,
		Octaves:    4,
		Lacunarity: 2.0,
		Gain:       0.5,
		Contrast:   3.0,
		noise:      opensimplex.NewNormalized(seed),
	}
}

// Seed fills every plane of the referenced channel with shaped FBM noise
// in [0, 1].
func (ns *NoiseSeeder) Seed(sub *substrate.Substrate, ref substrate.Ref) error {
	v, err := sub.Read(ref)
	if err != nil {
		return err
	}
	for d := 0; d < v.Depth(); d++ {
		plane := v.Plane(d)
		for y := 0; y < v.H; y++ {
			vy := (float64(y) + 0.5) / float64(v.H)
			for x := 0; x < v.W; x++ {
				ux := (float64(x) + 0.5) / float64(v.W)
				plane[y*v.W+x] = float32(ns.fbm(ux, vy, float64(d)))
			}
		}
	}
	return nil
}

// fbm sums octaves of OpenSimplex noise and applies contrast shaping.
func (ns *NoiseSeeder) fbm(u, v, z float64) float64 {
	sum := 0.0
	amp := 0.5
	freq := ns.Scale

	for o := 0; o < ns.Octaves; o++ {
		sum += amp * ns.noise.Eval3(u*freq, v*freq, z)
		freq *= ns.Lacunarity
		amp *= ns.Gain
	}

	if sum < 0 {
		sum = 0
	} else if sum > 1 {
		sum = 1
	}
	return math.Pow(sum, ns.Contrast)
}

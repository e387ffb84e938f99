package systems

import (
	"testing"

	"github.com/pthm-cable/reef/substrate"
)

func TestNoiseSeederDeterministic(t *testing.T) {
	a := newFieldSubstrate(t, 16, 16)
	b := newFieldSubstrate(t, 16, 16)

	if err := NewNoiseSeeder(42).Seed(a, substrate.C("capacity")); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := NewNoiseSeeder(42).Seed(b, substrate.C("capacity")); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	va, _ := a.Read(substrate.C("capacity"))
	vb, _ := b.Read(substrate.C("capacity"))
	for i := range va.Plane(0) {
		if va.Plane(0)[i] != vb.Plane(0)[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}

func TestNoiseSeederRange(t *testing.T) {
	s := newFieldSubstrate(t, 16, 16)
	if err := NewNoiseSeeder(1).Seed(s, substrate.C("capacity")); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	v, _ := s.Read(substrate.C("capacity"))
	var nonZero bool
	for _, val := range v.Plane(0) {
		if val < 0 || val > 1 {
			t.Fatalf("value %v outside [0, 1]", val)
		}
		if val > 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("seeded field is all zero")
	}
}

func TestNoiseSeederMultiPlane(t *testing.T) {
	s, err := substrate.New(16, 16, substrate.Float32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Register("field", substrate.ChannelSpec{Depth: 2}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if err := NewNoiseSeeder(3).Seed(s, substrate.C("field")); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	v, _ := s.Read(substrate.C("field"))

	// Planes must be decorrelated, not copies.
	same := true
	for i := range v.Plane(0) {
		if v.Plane(0)[i] != v.Plane(1)[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("depth planes are identical")
	}
}

func TestNoiseSeederUnknownChannel(t *testing.T) {
	s := newFieldSubstrate(t, 16, 16)
	if err := NewNoiseSeeder(1).Seed(s, substrate.C("nope")); err == nil {
		t.Error("Seed on unknown channel succeeded, want error")
	}
}

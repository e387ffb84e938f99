package systems

import (
	"sync"
	"testing"
)

func TestPoolCoversAllRows(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const rows = 500
	var mu sync.Mutex
	seen := make([]int, rows)

	p.Run(rows, func(y0, y1 int) {
		mu.Lock()
		defer mu.Unlock()
		for y := y0; y < y1; y++ {
			seen[y]++
		}
	})

	for y, n := range seen {
		if n != 1 {
			t.Fatalf("row %d visited %d times", y, n)
		}
	}
}

func TestPoolSmallGridRunsInline(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	calls := 0
	p.Run(parallelThreshold-1, func(y0, y1 int) {
		calls++
		if y0 != 0 || y1 != parallelThreshold-1 {
			t.Errorf("inline band = [%d, %d)", y0, y1)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	// Inline path must not have started workers.
	if p.running {
		t.Error("pool started workers for a small grid")
	}
}

func TestPoolRunIsBarrier(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const rows = 256
	data := make([]int, rows)
	p.Run(rows, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			data[y] = y
		}
	})
	// After Run returns every write must be visible.
	for y, v := range data {
		if v != y {
			t.Fatalf("row %d not written", y)
		}
	}

	// Reuse across Runs.
	p.Run(rows, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			data[y] *= 2
		}
	})
	for y, v := range data {
		if v != y*2 {
			t.Fatalf("second pass missed row %d", y)
		}
	}
}

func TestPoolZeroRows(t *testing.T) {
	p := NewPool(2)
	defer p.Close()
	p.Run(0, func(y0, y1 int) {
		t.Error("kernel invoked for zero rows")
	})
}

func TestPoolCloseIdempotent(t *testing.T) {
	p := NewPool(2)
	p.Run(parallelThreshold, func(y0, y1 int) {})
	p.Close()
	p.Close()
}

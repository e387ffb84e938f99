package systems

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum row count to use the worker pool.
// Below this, single-threaded is faster due to dispatch overhead.
const parallelThreshold = 64

// band is one contiguous run of rows handed to a worker.
type band struct {
	y0, y1 int
	fn     func(y0, y1 int)
}

// Pool is a persistent worker pool dispatching disjoint row bands of a grid
// kernel. Because bands never overlap and substrate channel ranges are
// disjoint by construction, kernels run lock-free; Run is a full barrier.
type Pool struct {
	numWorkers int

	workChan chan band
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewPool creates a pool with the given worker count (0 = GOMAXPROCS).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{numWorkers: workers}
}

// start launches the persistent worker goroutines.
func (p *Pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan band, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case b, ok := <-p.workChan:
			if !ok {
				return
			}
			b.fn(b.y0, b.y1)
			p.doneChan <- struct{}{}
		}
	}
}

// Run applies fn to row bands covering [0, rows) and waits for every band
// to finish before returning. Small grids run inline.
func (p *Pool) Run(rows int, fn func(y0, y1 int)) {
	if rows <= 0 {
		return
	}
	if rows < parallelThreshold || p.numWorkers == 1 {
		fn(0, rows)
		return
	}
	if !p.running {
		p.start()
	}

	bandSize := (rows + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		y0 := w * bandSize
		y1 := y0 + bandSize
		if y1 > rows {
			y1 = rows
		}
		if y0 >= y1 {
			continue
		}
		p.workChan <- band{y0: y0, y1: y1, fn: fn}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// Close signals all workers to exit and waits for them.
func (p *Pool) Close() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

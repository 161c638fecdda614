package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/herd/systems"
)

// parallelThreshold is the minimum batch size to use the worker pool.
// Below this, solving on the calling goroutine is faster.
const parallelThreshold = 8

// workChunk represents a range of requests for a worker to solve.
type workChunk struct {
	start, end int
}

// ParallelSolver is a systems.BatchSolver that splits each batch across a
// pool of persistent workers. Every worker owns its own PathSolver, so
// solvers need not be safe for concurrent use. Results are written to their
// request's slot, leaving the caller to apply them in queue order.
type ParallelSolver struct {
	solvers    []systems.PathSolver
	numWorkers int

	// Batch being solved; read by workers between dispatch and done
	reqs    []systems.PathRequest
	results []systems.PathResult

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// NewParallelSolver creates a pool of workers, each with a solver from
// newSolver. workers <= 0 uses GOMAXPROCS.
func NewParallelSolver(workers int, newSolver func() systems.PathSolver) *ParallelSolver {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	solvers := make([]systems.PathSolver, workers)
	for i := range solvers {
		solvers[i] = newSolver()
	}
	return &ParallelSolver{
		solvers:    solvers,
		numWorkers: workers,
	}
}

// Workers returns the pool size.
func (p *ParallelSolver) Workers() int {
	return p.numWorkers
}

// startWorkers launches persistent worker goroutines.
func (p *ParallelSolver) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Close signals all workers to exit and waits for them.
func (p *ParallelSolver) Close() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, solving chunks until stopped.
func (p *ParallelSolver) worker(workerID int) {
	defer p.wg.Done()
	solver := p.solvers[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.solveChunk(solver, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// SolveBatch implements systems.BatchSolver.
func (p *ParallelSolver) SolveBatch(reqs []systems.PathRequest, results []systems.PathResult) {
	n := len(reqs)
	if n == 0 {
		return
	}
	p.reqs, p.results = reqs, results
	defer func() { p.reqs, p.results = nil, nil }()

	if n < parallelThreshold || p.numWorkers == 1 {
		p.solveChunk(p.solvers[0], 0, n)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// solveChunk solves reqs[i0:i1] with one solver.
func (p *ParallelSolver) solveChunk(solver systems.PathSolver, i0, i1 int) {
	for i := i0; i < i1; i++ {
		req := &p.reqs[i]
		path, err := solver.FindPath(req.Origin, req.Dest)
		p.results[i] = systems.PathResult{Path: path, Err: err}
	}
}

var _ systems.BatchSolver = (*ParallelSolver)(nil)

package systems

import (
	"github.com/pthm-cable/herd/components"
)

// PathResult is the outcome of solving one request.
type PathResult struct {
	Path []components.Position
	Err  error
}

// BatchSolver solves reqs, writing results[i] for reqs[i].
type BatchSolver interface {
	SolveBatch(reqs []PathRequest, results []PathResult)
}

// SerialSolver solves a batch one request at a time.
type SerialSolver struct {
	Solver PathSolver
}

// SolveBatch implements BatchSolver.
func (s SerialSolver) SolveBatch(reqs []PathRequest, results []PathResult) {
	for i, req := range reqs {
		path, err := s.Solver.FindPath(req.Origin, req.Dest)
		results[i] = PathResult{Path: path, Err: err}
	}
}

// Pathfinder drains the bridge's request queue under a per-tick budget and
// posts each answer back through the bridge. Requests beyond the budget wait
// for later ticks.
type Pathfinder struct {
	bridge *PathBridge
	solver BatchSolver
	budget int

	batch   []PathRequest
	results []PathResult
}

// NewPathfinder creates a pathfinder that resolves up to budget requests per tick.
func NewPathfinder(bridge *PathBridge, solver BatchSolver, budget int) *Pathfinder {
	if budget < 1 {
		budget = 1
	}
	return &Pathfinder{
		bridge:  bridge,
		solver:  solver,
		budget:  budget,
		batch:   make([]PathRequest, 0, budget),
		results: make([]PathResult, 0, budget),
	}
}

// Process resolves one tick's worth of requests and returns how many were solved.
func (p *Pathfinder) Process(tick int32) int {
	p.batch = p.batch[:0]
	for len(p.batch) < p.budget {
		req, ok := p.bridge.Next()
		if !ok {
			break
		}
		p.batch = append(p.batch, req)
	}
	if len(p.batch) == 0 {
		return 0
	}

	if cap(p.results) < len(p.batch) {
		p.results = make([]PathResult, len(p.batch))
	}
	p.results = p.results[:len(p.batch)]
	clear(p.results)

	p.solver.SolveBatch(p.batch, p.results)

	// Apply single-threaded, in queue order
	for i, req := range p.batch {
		r := p.results[i]
		p.bridge.Resolve(req.Handle, r.Path, r.Err, tick)
	}
	return len(p.batch)
}

package systems

import (
	"container/heap"
	"errors"
	"math"

	"github.com/pthm-cable/herd/components"
)

// Path search errors.
var (
	ErrNoPath       = errors.New("no path")
	ErrGoalBlocked  = errors.New("goal not walkable")
	ErrSearchLimit  = errors.New("search limit reached")
	ErrStartBlocked = errors.New("start not walkable")
)

// PathSolver computes a tile path between two positions. The returned path
// starts at from and ends at to. Implementations need not be safe for
// concurrent use; the worker pool gives each worker its own solver.
type PathSolver interface {
	FindPath(from, to components.Position) ([]components.Position, error)
}

// AStar is an 8-connected A* search over a Terrain.
type AStar struct {
	terrain  Terrain
	maxNodes int

	// Reusable data structures (cleared between searches)
	openHeap  *nodeHeap
	closedSet map[components.Position]struct{}
	cameFrom  map[components.Position]components.Position
	gScore    map[components.Position]float32
}

// astarNode is a node in the A* search.
type astarNode struct {
	pos   components.Position
	f     float32 // f = g + h (priority)
	index int     // Heap index
}

// nodeHeap implements heap.Interface for A* open set.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewAStar creates a solver over terrain expanding at most maxNodes nodes per search.
func NewAStar(terrain Terrain, maxNodes int) *AStar {
	if maxNodes <= 0 {
		maxNodes = 4096
	}
	return &AStar{
		terrain:   terrain,
		maxNodes:  maxNodes,
		openHeap:  &nodeHeap{},
		closedSet: make(map[components.Position]struct{}, 256),
		cameFrom:  make(map[components.Position]components.Position, 256),
		gScore:    make(map[components.Position]float32, 256),
	}
}

// neighbors in cardinal-then-diagonal order; index >= 4 is diagonal.
var neighbors = [8][2]int32{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// FindPath computes a path from start to goal.
func (a *AStar) FindPath(start, goal components.Position) ([]components.Position, error) {
	if !a.terrain.Walkable(goal) {
		return nil, ErrGoalBlocked
	}
	if !a.terrain.Walkable(start) {
		return nil, ErrStartBlocked
	}
	if start == goal {
		return []components.Position{start}, nil
	}

	*a.openHeap = (*a.openHeap)[:0]
	clear(a.closedSet)
	clear(a.cameFrom)
	clear(a.gScore)

	a.gScore[start] = 0
	heap.Push(a.openHeap, &astarNode{pos: start, f: heuristic(start, goal)})

	expanded := 0
	for a.openHeap.Len() > 0 {
		current := heap.Pop(a.openHeap).(*astarNode)
		if current.pos == goal {
			return a.reconstructPath(start, goal), nil
		}
		if _, done := a.closedSet[current.pos]; done {
			continue
		}
		a.closedSet[current.pos] = struct{}{}

		expanded++
		if expanded > a.maxNodes {
			return nil, ErrSearchLimit
		}

		for i, d := range neighbors {
			next := current.pos.Add(d[0], d[1])
			if !a.terrain.Walkable(next) {
				continue
			}
			// No corner cutting on diagonals
			if i >= 4 && (!a.terrain.Walkable(current.pos.Add(d[0], 0)) || !a.terrain.Walkable(current.pos.Add(0, d[1]))) {
				continue
			}
			if _, done := a.closedSet[next]; done {
				continue
			}

			moveCost := float32(1.0)
			if i >= 4 {
				moveCost = 1.414
			}
			tentativeG := a.gScore[current.pos] + moveCost
			if existingG, ok := a.gScore[next]; ok && tentativeG >= existingG {
				continue
			}

			a.cameFrom[next] = current.pos
			a.gScore[next] = tentativeG
			heap.Push(a.openHeap, &astarNode{pos: next, f: tentativeG + heuristic(next, goal)})
		}
	}

	return nil, ErrNoPath
}

// heuristic computes the Euclidean distance heuristic for A*.
func heuristic(a, b components.Position) float32 {
	return float32(math.Sqrt(float64(a.DistSq(b))))
}

// reconstructPath walks cameFrom back from goal and reverses the result.
func (a *AStar) reconstructPath(start, goal components.Position) []components.Position {
	path := []components.Position{goal}
	for current := goal; current != start; {
		current = a.cameFrom[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// MovementSystem walks entities along their MovePath and keeps the spatial
// index in step with every position change.
type MovementSystem struct {
	filter  *ecs.Filter4[components.Position, components.MovePath, components.Species, components.Needs]
	spatial *SpatialIndex

	speed    []float32 // per species, tiles per tick
	moveCost []float32 // per species, energy per tile
}

// NewMovementSystem creates a movement system.
func NewMovementSystem(w *ecs.World, spatial *SpatialIndex, species []config.SpeciesConfig) *MovementSystem {
	s := &MovementSystem{
		filter:   ecs.NewFilter4[components.Position, components.MovePath, components.Species, components.Needs](w),
		spatial:  spatial,
		speed:    make([]float32, len(species)),
		moveCost: make([]float32, len(species)),
	}
	for i, sp := range species {
		s.speed[i] = float32(sp.Speed)
		s.moveCost[i] = float32(sp.MoveCost)
	}
	return s
}

// Update advances every walking entity and returns the number of tiles moved.
func (s *MovementSystem) Update() int {
	moved := 0

	query := s.filter.Query()
	for query.Next() {
		e := query.Entity()
		pos, path, sp, needs := query.Get()

		next, steps := Step(path, s.speed[sp.ID])
		if steps == 0 {
			continue
		}
		*pos = next
		s.spatial.Update(e, *pos)

		needs.Energy = max(needs.Energy-float32(steps)*s.moveCost[sp.ID], 0)
		moved += steps
	}
	return moved
}

// Step advances a MovePath by the whole tiles accumulated at speed and
// returns the waypoint reached and the number of tiles walked.
func Step(path *components.MovePath, speed float32) (components.Position, int) {
	if path.Done() {
		return path.End(), 0
	}
	path.Carry += speed
	steps := int(path.Carry)
	path.Carry -= float32(steps)
	steps = min(steps, len(path.Waypoints)-1-path.Index)
	path.Index += steps
	return path.Waypoints[path.Index], steps
}

package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/systems"
)

// Wander walks to a random nearby tile. It completes on arrival.
type Wander struct {
	Tile components.Position
}

func (w *Wander) Kind() components.ActionKind { return components.ActionWander }

func (w *Wander) TargetTile() components.Position { return w.Tile }

func (w *Wander) Destination(*Env, ecs.Entity) (components.Position, bool, error) {
	return w.Tile, true, nil
}

func (w *Wander) Reach() int32                        { return 0 }
func (w *Wander) Check(*Env, ecs.Entity) error        { return nil }
func (w *Wander) Duration(*Env, ecs.Entity) int32     { return 0 }
func (w *Wander) Step(*Env, ecs.Entity) (bool, error) { return true, nil }
func (w *Wander) Complete(*Env, ecs.Entity)           {}

// Flee runs to a tile away from a threat. Its path request is served ahead
// of all others.
type Flee struct {
	Tile components.Position
}

func (f *Flee) Kind() components.ActionKind { return components.ActionFlee }

func (f *Flee) Destination(*Env, ecs.Entity) (components.Position, bool, error) {
	return f.Tile, true, nil
}

func (f *Flee) Reach() int32                        { return 1 }
func (f *Flee) Check(*Env, ecs.Entity) error        { return nil }
func (f *Flee) Duration(*Env, ecs.Entity) int32     { return 0 }
func (f *Flee) Step(*Env, ecs.Entity) (bool, error) { return true, nil }
func (f *Flee) Complete(*Env, ecs.Entity)           {}

// FleeTarget returns a walkable tile roughly distance tiles from pos,
// directly away from threat. It returns false when no such tile exists.
func FleeTarget(t systems.Terrain, pos, threat components.Position, distance int32) (components.Position, bool) {
	dx, dy := pos.X-threat.X, pos.Y-threat.Y
	if dx == 0 && dy == 0 {
		dx = 1
	}
	m := max(abs32(dx), abs32(dy))
	goal := pos.Add(dx*distance/m, dy*distance/m)

	return systems.NearestMatch(goal, distance/2+1, func(p components.Position) bool {
		return t.Walkable(p) && p.Chebyshev(threat) > pos.Chebyshev(threat)
	})
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// ActionSnapshot is a read-only view of one entity's decision state.
type ActionSnapshot struct {
	Entity      ecs.Entity
	Species     uint8
	Position    components.Position
	Kind        components.ActionKind
	State       components.ActionState
	Progress    int32
	StartedTick int32
	Idle        bool // no action record
	Queued      bool // think request pending
}

// Snapshot returns e's decision state. It reports false for entities that
// are not living animals.
func (s *Simulation) Snapshot(e ecs.Entity) (ActionSnapshot, bool) {
	if !s.env.Living(e) || !s.speciesMap.Has(e) {
		return ActionSnapshot{}, false
	}
	snap := ActionSnapshot{
		Entity:   e,
		Species:  s.speciesMap.Get(e).ID,
		Position: *s.posMap.Get(e),
		Idle:     true,
		Queued:   s.queue.Contains(e),
	}
	if rec, ok := s.exec.Record(e); ok {
		snap.Idle = false
		snap.Kind = rec.Kind
		snap.State = rec.State
		snap.Progress = rec.Progress
		snap.StartedTick = rec.StartedTick
	}
	return snap, true
}

// Snapshots appends the decision state of every living animal to dst.
func (s *Simulation) Snapshots(dst []ActionSnapshot) []ActionSnapshot {
	s.removals = s.removals[:0]
	query := s.animalFilter.Query()
	for query.Next() {
		s.removals = append(s.removals, query.Entity())
	}
	for _, e := range s.removals {
		if snap, ok := s.Snapshot(e); ok {
			dst = append(dst, snap)
		}
	}
	return dst
}

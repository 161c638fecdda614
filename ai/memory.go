package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

type tileKey struct {
	entity ecs.Entity
	kind   components.ActionKind
	tile   components.Position
}

type preyKey struct {
	entity ecs.Entity
	prey   ecs.Entity
}

// FailureMemory remembers targets whose action recently failed so the
// planner does not pick them again straight away.
type FailureMemory struct {
	ttl   int32
	tiles map[tileKey]int32
	prey  map[preyKey]int32
}

// NewFailureMemory creates a memory whose entries expire after ttl ticks.
func NewFailureMemory(ttl int) *FailureMemory {
	return &FailureMemory{
		ttl:   int32(ttl),
		tiles: make(map[tileKey]int32, 64),
		prey:  make(map[preyKey]int32, 16),
	}
}

// Record stores the target of a failed outcome. Other outcomes are ignored.
func (m *FailureMemory) Record(o Outcome) {
	if o.State != components.StateFailed || m.ttl <= 0 {
		return
	}
	switch a := o.Action.(type) {
	case preyTarget:
		m.prey[preyKey{o.Entity, a.TargetPrey()}] = o.Tick + m.ttl
	case tileTarget:
		m.tiles[tileKey{o.Entity, o.Kind, a.TargetTile()}] = o.Tick + m.ttl
	}
}

// AvoidTile reports whether e recently failed kind at tile.
func (m *FailureMemory) AvoidTile(e ecs.Entity, kind components.ActionKind, tile components.Position, tick int32) bool {
	until, ok := m.tiles[tileKey{e, kind, tile}]
	return ok && tick < until
}

// AvoidPrey reports whether e recently failed to hunt prey.
func (m *FailureMemory) AvoidPrey(e, prey ecs.Entity, tick int32) bool {
	until, ok := m.prey[preyKey{e, prey}]
	return ok && tick < until
}

// Prune drops expired entries.
func (m *FailureMemory) Prune(tick int32) int {
	n := 0
	for k, until := range m.tiles {
		if tick >= until {
			delete(m.tiles, k)
			n++
		}
	}
	for k, until := range m.prey {
		if tick >= until {
			delete(m.prey, k)
			n++
		}
	}
	return n
}

// Len returns the number of remembered failures.
func (m *FailureMemory) Len() int {
	return len(m.tiles) + len(m.prey)
}

package game

import (
	"errors"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/ai"
	"github.com/pthm-cable/herd/components"
)

var errKilled = errors.New("entity died")

// spawnInitialPopulation creates the starting animals of every species on
// random walkable tiles, at random ages so they do not mature in lockstep.
func (s *Simulation) spawnInitialPopulation() {
	for id, sp := range s.cfg.Species {
		placed := 0
		for range sp.Initial {
			tile, ok := s.randomWalkable()
			if !ok {
				break
			}
			age := int32(s.rng.Intn(max(sp.MaturityAge, 1) * 2))
			s.spawn(uint8(id), tile, 0, age)
			placed++
		}
		if placed < sp.Initial {
			slog.Warn("initial population short", "species", sp.Name, "placed", placed, "wanted", sp.Initial)
		}
	}
}

// randomWalkable samples random tiles until one is walkable.
func (s *Simulation) randomWalkable() (components.Position, bool) {
	w, h := int(s.terrain.Width()), int(s.terrain.Height())
	for range max(s.cfg.Spawn.Attempts, 1) {
		p := components.Position{X: int32(s.rng.Intn(w)), Y: int32(s.rng.Intn(h))}
		if s.terrain.Walkable(p) {
			return p, true
		}
	}
	return components.Position{}, false
}

// Spawn creates a newborn of species at tile. The animal is idle and is
// planned for at the next Planning phase.
func (s *Simulation) Spawn(species uint8, tile components.Position) ecs.Entity {
	return s.spawn(species, tile, 0, 0)
}

func (s *Simulation) spawn(species uint8, tile components.Position, generation, age int32) ecs.Entity {
	sp := &s.cfg.Species[species]
	spawn := &s.cfg.Spawn

	entity := s.entityMapper.NewEntity(
		&tile,
		&components.Species{ID: species, Predator: sp.Predator},
		&components.Needs{
			Hunger: float32(spawn.Hunger),
			Thirst: float32(spawn.Thirst),
			Energy: float32(spawn.Energy),
		},
		&components.Fear{},
		&components.Life{Age: age, Generation: generation},
		&components.IdleTracker{IdleSince: s.tick},
		&components.ThresholdState{},
	)
	s.spatial.Insert(entity, tile)
	s.population[species]++

	s.inbox.Push(entity, ai.ReasonSpawned, s.tick)
	return entity
}

// room reports whether species is below its population cap.
func (s *Simulation) room(species uint8) bool {
	limit := s.cfg.Species[species].Max
	return limit <= 0 || s.population[species] < limit
}

// Kill marks e dead and cancels its action. The entity stays in the world,
// inert, until the Cleanup phase removes it.
func (s *Simulation) Kill(e ecs.Entity, cause components.DeathCause) {
	if !s.world.Alive(e) || s.deadMap.Has(e) {
		return
	}
	s.exec.Cancel(e, s.tick, errKilled)
	s.deadMap.Add(e, &components.Dead{Cause: cause, Tick: s.tick})
	s.population[s.speciesMap.Get(e).ID]--
	s.collector.RecordDeath(cause)
}

// cleanupDead removes dead entities and every reference held to them. Their
// think requests are left for the next flush to drop.
func (s *Simulation) cleanupDead(tick int32) {
	// First pass: collect dead entities (must complete before modifying)
	s.removals = s.removals[:0]
	query := s.deadFilter.Query()
	for query.Next() {
		s.removals = append(s.removals, query.Entity())
	}

	// Second pass: remove entities (query iteration complete)
	for _, e := range s.removals {
		s.exec.Cancel(e, tick, errKilled)
		s.bridge.Abandon(e)
		s.spatial.Remove(e)
		s.exec.Forget(e)
		s.world.RemoveEntity(e)
		if s.queue.Contains(e) {
			s.departed = append(s.departed, e)
		}
	}
}

// dropDeparted removes the think requests of entities cleaned up since the
// last flush. The queue is only changed during Planning.
func (s *Simulation) dropDeparted() {
	for _, e := range s.departed {
		s.queue.Remove(e)
	}
	s.departed = s.departed[:0]
}

// Population returns the number of living animals. Killed animals stop
// counting immediately.
func (s *Simulation) Population() int {
	n := 0
	for _, c := range s.population {
		n += c
	}
	return n
}

// PopulationOf returns the number of living animals of species.
func (s *Simulation) PopulationOf(species uint8) int {
	if int(species) >= len(s.population) {
		return 0
	}
	return s.population[species]
}

package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// Birth is a pending spawn produced by the reproduction system.
type Birth struct {
	Species    uint8
	At         components.Position
	Generation int32
}

// ReproductionSystem pairs ready adults of the same species that stand
// within mating range of each other.
type ReproductionSystem struct {
	filter    *ecs.Filter4[components.Position, components.Species, components.Needs, components.Life]
	posMap    *ecs.Map[components.Position]
	spMap     *ecs.Map[components.Species]
	needsMap  *ecs.Map[components.Needs]
	lifeMap   *ecs.Map[components.Life]
	deadMap   *ecs.Map[components.Dead]
	spatial   *SpatialIndex
	species   []config.SpeciesConfig
	rules     config.ReproductionConfig
	paired    map[ecs.Entity]struct{}
	neighbors []ecs.Entity
}

// NewReproductionSystem creates a reproduction system.
func NewReproductionSystem(w *ecs.World, spatial *SpatialIndex, cfg *config.Config) *ReproductionSystem {
	return &ReproductionSystem{
		filter:    ecs.NewFilter4[components.Position, components.Species, components.Needs, components.Life](w),
		posMap:    ecs.NewMap[components.Position](w),
		spMap:     ecs.NewMap[components.Species](w),
		needsMap:  ecs.NewMap[components.Needs](w),
		lifeMap:   ecs.NewMap[components.Life](w),
		deadMap:   ecs.NewMap[components.Dead](w),
		spatial:   spatial,
		species:   cfg.Species,
		rules:     cfg.Reproduction,
		paired:    make(map[ecs.Entity]struct{}, 16),
		neighbors: make([]ecs.Entity, 0, 32),
	}
}

func (s *ReproductionSystem) ready(e ecs.Entity, sp *components.Species, needs *components.Needs, life *components.Life) bool {
	if s.deadMap.Has(e) {
		return false
	}
	if _, used := s.paired[e]; used {
		return false
	}
	cfg := &s.species[sp.ID]
	return life.Age >= int32(cfg.MaturityAge) &&
		life.ReproCooldown == 0 &&
		needs.Hunger < float32(s.rules.MaxHunger) &&
		needs.Thirst < float32(s.rules.MaxThirst)
}

// Update pairs ready adults and appends one Birth per pair to dst. eligible
// filters out entities that may not mate this tick (busy with an action).
// room reports whether a species is below its population cap.
func (s *ReproductionSystem) Update(dst []Birth, eligible func(ecs.Entity) bool, room func(species uint8) bool) []Birth {
	clear(s.paired)

	query := s.filter.Query()
	for query.Next() {
		e := query.Entity()
		pos, sp, needs, life := query.Get()
		if !s.ready(e, sp, needs, life) || !eligible(e) || !room(sp.ID) {
			continue
		}

		radius := int32(s.species[sp.ID].MateRadius)
		s.neighbors = s.spatial.QueryRadius(s.neighbors[:0], *pos, radius)
		for _, n := range s.neighbors {
			if n == e {
				continue
			}
			nsp := s.spMap.Get(n)
			if nsp.ID != sp.ID || !Within(*pos, *s.posMap.Get(n), radius) {
				continue
			}
			nneeds, nlife := s.needsMap.Get(n), s.lifeMap.Get(n)
			if !s.ready(n, nsp, nneeds, nlife) || !eligible(n) {
				continue
			}

			cooldown := int32(s.species[sp.ID].ReproCooldown)
			for _, parent := range [2]struct {
				needs *components.Needs
				life  *components.Life
			}{{needs, life}, {nneeds, nlife}} {
				parent.life.ReproCooldown = cooldown
				parent.needs.Hunger = min(parent.needs.Hunger+float32(s.rules.Cost), NeedMax)
			}
			s.paired[e] = struct{}{}
			s.paired[n] = struct{}{}

			dst = append(dst, Birth{
				Species:    sp.ID,
				At:         *pos,
				Generation: max(life.Generation, nlife.Generation) + 1,
			})
			break
		}
	}
	return dst
}

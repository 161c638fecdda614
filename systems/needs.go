package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// NeedMax is the ceiling of hunger and thirst and the capacity of energy.
const NeedMax = 100

// Death is a death found by a stats system, applied by the caller after
// the query has closed.
type Death struct {
	Entity ecs.Entity
	Cause  components.DeathCause
}

// NeedsSystem applies per-tick need decay and ageing, and reports deaths.
type NeedsSystem struct {
	filter  *ecs.Filter3[components.Species, components.Needs, components.Life]
	deadMap *ecs.Map[components.Dead]
	species []config.SpeciesConfig
}

// NewNeedsSystem creates a needs system.
func NewNeedsSystem(w *ecs.World, species []config.SpeciesConfig) *NeedsSystem {
	return &NeedsSystem{
		filter:  ecs.NewFilter3[components.Species, components.Needs, components.Life](w),
		deadMap: ecs.NewMap[components.Dead](w),
		species: species,
	}
}

// Update decays needs by one tick and appends deaths to dst.
func (s *NeedsSystem) Update(dst []Death) []Death {
	query := s.filter.Query()
	for query.Next() {
		e := query.Entity()
		if s.deadMap.Has(e) {
			continue
		}
		sp, needs, life := query.Get()
		cfg := &s.species[sp.ID]

		needs.Hunger = min(needs.Hunger+float32(cfg.HungerRate), NeedMax)
		needs.Thirst = min(needs.Thirst+float32(cfg.ThirstRate), NeedMax)
		needs.Energy = max(needs.Energy-float32(cfg.EnergyRate), 0)

		life.Age++
		if life.ReproCooldown > 0 {
			life.ReproCooldown--
		}

		switch {
		case needs.Thirst >= NeedMax:
			dst = append(dst, Death{Entity: e, Cause: components.CauseDehydration})
		case needs.Hunger >= NeedMax:
			dst = append(dst, Death{Entity: e, Cause: components.CauseStarvation})
		case cfg.MaxAge > 0 && life.Age >= int32(cfg.MaxAge):
			dst = append(dst, Death{Entity: e, Cause: components.CauseOldAge})
		}
	}
	return dst
}

package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// FearSystem raises fear in prey that can see a predator hunting them and
// lets it decay otherwise.
type FearSystem struct {
	filter     *ecs.Filter3[components.Position, components.Species, components.Fear]
	posMap     *ecs.Map[components.Position]
	speciesMap *ecs.Map[components.Species]
	spatial    *SpatialIndex

	senseRadius []int32
	preyMask    []uint64
	gain        float32
	decay       float32

	neighbors []ecs.Entity
}

// NewFearSystem creates a fear system.
func NewFearSystem(w *ecs.World, spatial *SpatialIndex, cfg *config.Config) *FearSystem {
	s := &FearSystem{
		filter:      ecs.NewFilter3[components.Position, components.Species, components.Fear](w),
		posMap:      ecs.NewMap[components.Position](w),
		speciesMap:  ecs.NewMap[components.Species](w),
		spatial:     spatial,
		senseRadius: make([]int32, len(cfg.Species)),
		preyMask:    cfg.Derived.PreyMask,
		gain:        float32(cfg.Fear.GainPerPredator),
		decay:       float32(cfg.Fear.Decay),
		neighbors:   make([]ecs.Entity, 0, 64),
	}
	for i, sp := range cfg.Species {
		s.senseRadius[i] = int32(sp.SenseRadius)
	}
	return s
}

// Update recomputes NearbyPredators and adjusts fear levels.
func (s *FearSystem) Update() {
	query := s.filter.Query()
	for query.Next() {
		pos, sp, fear := query.Get()
		if sp.Predator {
			fear.Level = 0
			fear.NearbyPredators = 0
			continue
		}

		radius := s.senseRadius[sp.ID]
		s.neighbors = s.spatial.QueryRadius(s.neighbors[:0], *pos, radius)

		count := int32(0)
		var nearestDist int64 = -1
		for _, n := range s.neighbors {
			nsp := s.speciesMap.Get(n)
			if !nsp.Predator || s.preyMask[nsp.ID]&(1<<sp.ID) == 0 {
				continue
			}
			npos := *s.posMap.Get(n)
			if !Within(*pos, npos, radius) {
				continue
			}
			count++
			if d := pos.DistSq(npos); nearestDist < 0 || d < nearestDist {
				nearestDist = d
				fear.Threat = npos
			}
		}

		fear.NearbyPredators = count
		if count > 0 {
			fear.Level = min(fear.Level+s.gain*float32(count), 1)
		} else {
			fear.Level = max(fear.Level-s.decay, 0)
		}
	}
}

package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// Graze walks to a grass tile and eats from it. Hunger is reduced on
// completion by what was actually eaten.
type Graze struct {
	Tile  components.Position
	Eaten float32
}

// NewGraze creates a graze action on tile.
func NewGraze(tile components.Position) *Graze {
	return &Graze{Tile: tile}
}

func (g *Graze) Kind() components.ActionKind { return components.ActionGraze }

func (g *Graze) TargetTile() components.Position { return g.Tile }

func (g *Graze) Destination(*Env, ecs.Entity) (components.Position, bool, error) {
	return g.Tile, true, nil
}

func (g *Graze) Reach() int32 { return 0 }

func (g *Graze) calm() {}

func (g *Graze) Check(env *Env, _ ecs.Entity) error {
	// Once eating has started the tile may run down; Step ends the meal then
	if g.Eaten == 0 && float64(env.Terrain.Biomass(g.Tile)) < env.Cfg.Actions.Graze.MinBiomass {
		return ErrResourceDepleted
	}
	return nil
}

// Duration scales with the biomass on the tile: longer on rich grass,
// shorter on sparse.
func (g *Graze) Duration(env *Env, _ ecs.Entity) int32 {
	cfg := &env.Cfg.Actions.Graze
	biomass := float64(env.Terrain.Biomass(g.Tile))
	base := float64(cfg.BaseTicks)
	switch {
	case biomass >= cfg.RichBiomass:
		return int32(base * 1.5)
	case biomass >= cfg.ModerateBiomass:
		return int32(base)
	default:
		return int32(base * 0.5)
	}
}

func (g *Graze) Step(env *Env, _ ecs.Entity) (bool, error) {
	cfg := &env.Cfg.Actions.Graze
	g.Eaten += env.Terrain.Graze(g.Tile, float32(cfg.BitePerTick))
	return float64(env.Terrain.Biomass(g.Tile)) < cfg.MinBiomass, nil
}

func (g *Graze) Complete(env *Env, e ecs.Entity) {
	needs := env.Needs.Get(e)
	needs.Hunger = max(needs.Hunger-g.Eaten*float32(env.Cfg.Actions.Graze.Nutrition), 0)
}

var _ Action = (*Graze)(nil)

package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// Drink walks to a shore tile and drinks.
type Drink struct {
	Tile components.Position
}

// NewDrink creates a drink action at a drinkable tile.
func NewDrink(tile components.Position) *Drink {
	return &Drink{Tile: tile}
}

func (d *Drink) Kind() components.ActionKind { return components.ActionDrink }

func (d *Drink) TargetTile() components.Position { return d.Tile }

func (d *Drink) Destination(*Env, ecs.Entity) (components.Position, bool, error) {
	return d.Tile, true, nil
}

func (d *Drink) Reach() int32 { return 0 }

func (d *Drink) calm() {}

func (d *Drink) Check(env *Env, _ ecs.Entity) error {
	if !env.Terrain.Drinkable(d.Tile) {
		return ErrResourceDepleted
	}
	return nil
}

func (d *Drink) Duration(env *Env, _ ecs.Entity) int32 {
	return int32(env.Cfg.Actions.Drink.Ticks)
}

func (d *Drink) Step(*Env, ecs.Entity) (bool, error) { return false, nil }

func (d *Drink) Complete(env *Env, e ecs.Entity) {
	needs := env.Needs.Get(e)
	needs.Thirst = max(needs.Thirst-float32(env.Cfg.Actions.Drink.Amount), 0)
}

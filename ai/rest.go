package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/systems"
)

// Rest recovers energy in place. It ends early once energy is full.
type Rest struct{}

func (r *Rest) Kind() components.ActionKind { return components.ActionRest }

func (r *Rest) Destination(env *Env, e ecs.Entity) (components.Position, bool, error) {
	return env.Position(e), false, nil
}

func (r *Rest) Reach() int32 { return 0 }

func (r *Rest) calm() {}

func (r *Rest) Check(*Env, ecs.Entity) error { return nil }

func (r *Rest) Duration(env *Env, _ ecs.Entity) int32 {
	return int32(env.Cfg.Actions.Rest.Ticks)
}

func (r *Rest) Step(env *Env, e ecs.Entity) (bool, error) {
	needs := env.Needs.Get(e)
	needs.Energy = min(needs.Energy+float32(env.Cfg.Actions.Rest.EnergyPerTick), systems.NeedMax)
	return needs.Energy >= systems.NeedMax, nil
}

func (r *Rest) Complete(*Env, ecs.Entity) {}

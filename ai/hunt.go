package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// Hunt chases a prey entity and kills it once adjacent. The destination
// follows the prey, so the executor re-paths as it moves.
type Hunt struct {
	Prey ecs.Entity
}

// NewHunt creates a hunt on prey.
func NewHunt(prey ecs.Entity) *Hunt {
	return &Hunt{Prey: prey}
}

func (h *Hunt) Kind() components.ActionKind { return components.ActionHunt }

func (h *Hunt) TargetPrey() ecs.Entity { return h.Prey }

func (h *Hunt) Destination(env *Env, _ ecs.Entity) (components.Position, bool, error) {
	if !env.Living(h.Prey) {
		return components.Position{}, false, ErrTargetGone
	}
	return env.Position(h.Prey), true, nil
}

// Reach is one tile: the attack needs adjacency.
func (h *Hunt) Reach() int32 { return 1 }

func (h *Hunt) Check(env *Env, e ecs.Entity) error {
	if !env.Living(h.Prey) {
		return ErrTargetGone
	}
	if float64(env.Needs.Get(e).Thirst) >= env.Cfg.Actions.Hunt.AbortThirst {
		return ErrNeedsCritical
	}
	return nil
}

func (h *Hunt) Duration(env *Env, _ ecs.Entity) int32 {
	return int32(env.Cfg.Actions.Hunt.Ticks)
}

// Step fails the attack when the prey has slipped out of reach.
func (h *Hunt) Step(env *Env, e ecs.Entity) (bool, error) {
	if env.Position(e).Chebyshev(env.Position(h.Prey)) > h.Reach() {
		return false, ErrUnreachable
	}
	return false, nil
}

func (h *Hunt) Complete(env *Env, e ecs.Entity) {
	env.Kill(h.Prey, components.CausePredation)
	needs := env.Needs.Get(e)
	needs.Hunger = max(needs.Hunger-float32(env.Cfg.Actions.Hunt.Meal), 0)
}

package ai

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
)

// Action is one committed behaviour. The executor drives every action
// through the same lifecycle; implementations supply the destination,
// precondition, duration and effect.
type Action interface {
	components.Actor

	// Destination returns the tile to travel to. travel is false for
	// stationary actions. The value may change between calls.
	Destination(env *Env, e ecs.Entity) (dest components.Position, travel bool, err error)
	// Reach is the Chebyshev distance at which the destination counts as reached.
	Reach() int32
	// Check is the precondition. A non-nil error fails the action in any
	// non-terminal state.
	Check(env *Env, e ecs.Entity) error
	// Duration is the number of executing ticks, resolved on entry to Executing.
	Duration(env *Env, e ecs.Entity) int32
	// Step runs one executing tick. done ends execution early.
	Step(env *Env, e ecs.Entity) (done bool, err error)
	// Complete applies the completion effect.
	Complete(env *Env, e ecs.Entity)
}

// Env is the world view handed to actions and the planner.
type Env struct {
	World   *ecs.World
	Cfg     *config.Config
	Terrain systems.Terrain
	Spatial *systems.SpatialIndex
	Rand    *rand.Rand

	// Kill marks an entity dead. Set by the owner of the entity lifecycle.
	Kill func(e ecs.Entity, cause components.DeathCause)

	Positions *ecs.Map[components.Position]
	Species   *ecs.Map[components.Species]
	Needs     *ecs.Map[components.Needs]
	Fears     *ecs.Map[components.Fear]
	Dead      *ecs.Map[components.Dead]
}

// NewEnv creates an action environment over w.
func NewEnv(w *ecs.World, cfg *config.Config, terrain systems.Terrain, spatial *systems.SpatialIndex, rng *rand.Rand) *Env {
	return &Env{
		World:     w,
		Cfg:       cfg,
		Terrain:   terrain,
		Spatial:   spatial,
		Rand:      rng,
		Kill:      func(ecs.Entity, components.DeathCause) {},
		Positions: ecs.NewMap[components.Position](w),
		Species:   ecs.NewMap[components.Species](w),
		Needs:     ecs.NewMap[components.Needs](w),
		Fears:     ecs.NewMap[components.Fear](w),
		Dead:      ecs.NewMap[components.Dead](w),
	}
}

// Living reports whether e exists and has not been marked dead.
func (env *Env) Living(e ecs.Entity) bool {
	return env.World.Alive(e) && !env.Dead.Has(e)
}

// Position returns e's tile.
func (env *Env) Position(e ecs.Entity) components.Position {
	return *env.Positions.Get(e)
}

// calm is implemented by actions a frightened animal will not set out on.
// Once such an action is executing, fear no longer ends it.
type calm interface{ calm() }

// spooked reports whether e is too frightened to start a calm action.
func (env *Env) spooked(e ecs.Entity) bool {
	if !env.Fears.Has(e) {
		return false
	}
	return float64(env.Fears.Get(e).Level) >= env.Cfg.Actions.PanicFear
}

// tileTarget is implemented by actions aimed at a fixed tile.
type tileTarget interface {
	TargetTile() components.Position
}

// preyTarget is implemented by actions aimed at another entity.
type preyTarget interface {
	TargetPrey() ecs.Entity
}

// pathPriority returns the path queue tier for an action kind.
func pathPriority(kind components.ActionKind) systems.PathPriority {
	switch kind {
	case components.ActionFlee:
		return systems.PathUrgent
	case components.ActionWander:
		return systems.PathLazy
	default:
		return systems.PathNormal
	}
}

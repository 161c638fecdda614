package ai

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
)

// rig wires the decision core over a small open grid.
type rig struct {
	w       *ecs.World
	cfg     *config.Config
	terrain *systems.TerrainGrid
	spatial *systems.SpatialIndex
	bridge  *systems.PathBridge
	env     *Env
	inbox   *Inbox
	queue   *ThinkQueue
	exec    *Executor
	move    *systems.MovementSystem

	mapper *ecs.Map7[components.Position, components.Species, components.Needs,
		components.Fear, components.Life, components.IdleTracker, components.ThresholdState]
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cfg := config.Default()
	w := ecs.NewWorld()
	r := &rig{
		w:       w,
		cfg:     cfg,
		terrain: systems.NewTerrainGrid(32, 32, 100, 0),
		spatial: systems.NewSpatialIndex(cfg.Spatial.CellSize),
		bridge:  systems.NewPathBridge(w),
		inbox:   &Inbox{},
		queue:   NewThinkQueue(),
		mapper: ecs.NewMap7[components.Position, components.Species, components.Needs,
			components.Fear, components.Life, components.IdleTracker, components.ThresholdState](w),
	}
	r.env = NewEnv(w, cfg, r.terrain, r.spatial, rand.New(rand.NewSource(1)))
	r.exec = NewExecutor(r.env, r.bridge, r.inbox)
	r.move = systems.NewMovementSystem(w, r.spatial, cfg.Species)
	return r
}

// spawn creates an idle animal of species at pos with comfortable needs.
func (r *rig) spawn(species uint8, pos components.Position) ecs.Entity {
	e := r.mapper.NewEntity(
		&pos,
		&components.Species{ID: species, Predator: r.cfg.Species[species].Predator},
		&components.Needs{Hunger: 50, Thirst: 20, Energy: 80},
		&components.Fear{},
		&components.Life{Age: 1000},
		&components.IdleTracker{},
		&components.ThresholdState{},
	)
	r.spatial.Insert(e, pos)
	return e
}

// state returns e's action state, or Completed when the record is gone.
func (r *rig) state(e ecs.Entity) components.ActionState {
	rec, ok := r.exec.Record(e)
	if !ok {
		return components.StateCompleted
	}
	return rec.State
}

// flakySolver fails the first fails searches, then delegates.
type flakySolver struct {
	fails int
	inner systems.PathSolver
	calls int
}

func (s *flakySolver) FindPath(from, to components.Position) ([]components.Position, error) {
	s.calls++
	if s.calls <= s.fails {
		return nil, systems.ErrNoPath
	}
	return s.inner.FindPath(from, to)
}

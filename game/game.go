// Package game wires the world, the decision core and the systems into a
// fixed-order tick.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/ai"
	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
	"github.com/pthm-cable/herd/telemetry"
)

// Simulation holds the complete simulation state.
type Simulation struct {
	cfg   *config.Config
	opts  Options
	world *ecs.World
	rng   *rand.Rand

	// Entity mapper - the components every animal carries
	entityMapper *ecs.Map7[
		components.Position,
		components.Species,
		components.Needs,
		components.Fear,
		components.Life,
		components.IdleTracker,
		components.ThresholdState,
	]
	animalFilter *ecs.Filter3[components.Species, components.Needs, components.Life]
	deadFilter   *ecs.Filter1[components.Dead]

	// Individual component mappers for lookups
	posMap     *ecs.Map[components.Position]
	speciesMap *ecs.Map[components.Species]
	deadMap    *ecs.Map[components.Dead]

	// World layers
	terrain *systems.TerrainGrid
	spatial *systems.SpatialIndex

	// Decision core
	env       *ai.Env
	inbox     *ai.Inbox
	queue     *ai.ThinkQueue
	exec      *ai.Executor
	planner   *ai.Planner
	memory    *ai.FailureMemory
	safeguard *ai.Safeguard
	triggers  *ai.Triggers

	// Path search
	bridge     *systems.PathBridge
	pathfinder *systems.Pathfinder
	pool       *ParallelSolver // nil when a serial solver was supplied

	// Systems
	movement     *systems.MovementSystem
	needs        *systems.NeedsSystem
	fear         *systems.FearSystem
	reproduction *systems.ReproductionSystem

	// Telemetry
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	journal   *telemetry.Journal
	lastPaths systems.PathBridgeStats // bridge counters at the last window

	// State
	tick       int32
	population []int // living animals per species
	incidents  int   // tolerated invariant violations

	// Per-tick scratch
	requests []ai.ThinkRequest
	deaths   []systems.Death
	births   []systems.Birth
	removals []ecs.Entity
	departed []ecs.Entity // removed entities still holding a think request
}

// NewSimulation creates a simulation from cfg and spawns the initial
// population. Close must be called to stop the path workers and flush output.
func NewSimulation(cfg *config.Config, opts ...Option) (*Simulation, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:   cfg,
		opts:  o,
		world: world,
		rng:   rand.New(rand.NewSource(o.Seed)),
		entityMapper: ecs.NewMap7[
			components.Position,
			components.Species,
			components.Needs,
			components.Fear,
			components.Life,
			components.IdleTracker,
			components.ThresholdState,
		](world),
		animalFilter: ecs.NewFilter3[components.Species, components.Needs, components.Life](world),
		deadFilter:   ecs.NewFilter1[components.Dead](world),
		posMap:       ecs.NewMap[components.Position](world),
		speciesMap:   ecs.NewMap[components.Species](world),
		deadMap:      ecs.NewMap[components.Dead](world),
		population:   make([]int, len(cfg.Species)),
		requests:     make([]ai.ThinkRequest, 0, cfg.Think.Budget),
	}

	// Terrain
	s.terrain = o.Terrain
	if s.terrain == nil {
		s.terrain = systems.GenerateTerrain(cfg.World, cfg.Terrain, o.Seed)
	}
	s.spatial = systems.NewSpatialIndex(cfg.Spatial.CellSize)

	// Path search: pooled A* unless a solver was supplied
	s.bridge = systems.NewPathBridge(world)
	var solver systems.BatchSolver
	if o.Solver != nil {
		solver = systems.SerialSolver{Solver: o.Solver}
	} else {
		s.pool = NewParallelSolver(o.Workers, func() systems.PathSolver {
			return systems.NewAStar(s.terrain, cfg.Pathfinding.MaxSearchNodes)
		})
		solver = s.pool
	}
	s.pathfinder = systems.NewPathfinder(s.bridge, solver, cfg.Pathfinding.PathsPerTick)

	// Decision core
	s.env = ai.NewEnv(world, cfg, s.terrain, s.spatial, s.rng)
	s.env.Kill = s.Kill
	s.inbox = &ai.Inbox{}
	s.queue = ai.NewThinkQueue()
	s.exec = ai.NewExecutor(s.env, s.bridge, s.inbox)
	s.memory = ai.NewFailureMemory(cfg.Planner.FailureMemoryTicks)
	s.planner = ai.NewPlanner(s.env, s.exec, s.inbox, s.memory)
	s.safeguard = ai.NewSafeguard(world, s.queue, cfg.Safeguard)
	s.triggers = ai.NewTriggers(world, s.inbox, cfg)

	// Systems
	s.movement = systems.NewMovementSystem(world, s.spatial, cfg.Species)
	s.needs = systems.NewNeedsSystem(world, cfg.Species)
	s.fear = systems.NewFearSystem(world, s.spatial, cfg)
	s.reproduction = systems.NewReproductionSystem(world, s.spatial, cfg)

	// Telemetry
	s.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	s.collector = telemetry.NewCollector(cfg.Telemetry.WindowTicks)
	s.bookmarks = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory)
	if err := s.openOutput(); err != nil {
		s.Close()
		return nil, err
	}

	s.exec.Observe(s.memory.Record)
	s.exec.Observe(s.recordOutcome)

	s.spawnInitialPopulation()

	slog.Info("simulation created",
		"seed", o.Seed,
		"world", fmt.Sprintf("%dx%d", s.terrain.Width(), s.terrain.Height()),
		"animals", s.Population(),
		"path_workers", s.workers(),
		"run_id", s.journal.RunID(),
	)
	return s, nil
}

func (s *Simulation) openOutput() error {
	om, err := telemetry.NewOutputManager(s.opts.OutputDir)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	s.output = om
	if err := s.output.WriteConfig(s.cfg); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if s.opts.JournalPath != "" {
		j, err := telemetry.OpenJournal(s.opts.JournalPath, s.opts.Seed)
		if err != nil {
			return err
		}
		s.journal = j
	}
	return nil
}

func (s *Simulation) workers() int {
	if s.pool == nil {
		return 1
	}
	return s.pool.Workers()
}

// Close stops the path workers and flushes and closes all output.
func (s *Simulation) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	var firstErr error
	if err := s.journal.Close(); err != nil {
		firstErr = err
	}
	if err := s.output.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// World returns the ECS world. Callers must not change it during Step.
func (s *Simulation) World() *ecs.World {
	return s.world
}

// Terrain returns the terrain grid.
func (s *Simulation) Terrain() *systems.TerrainGrid {
	return s.terrain
}

// Config returns the configuration the simulation runs with.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// ActionStats returns the executor's outcome counters.
func (s *Simulation) ActionStats() ai.QueueStats {
	return s.exec.Stats()
}

// PathStats returns the bridge's traffic counters.
func (s *Simulation) PathStats() systems.PathBridgeStats {
	return s.bridge.Stats()
}

// QueueSizes returns the think queue depth per tier.
func (s *Simulation) QueueSizes() [3]int {
	return s.queue.Sizes()
}

// Incidents returns the number of invariant violations tolerated so far.
func (s *Simulation) Incidents() int {
	return s.incidents
}

// Timings returns the per-system timings of the last completed tick.
func (s *Simulation) Timings() []telemetry.SystemTiming {
	return s.perf.LastTick()
}

// PerfStats returns timing aggregated over the perf window.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perf.Stats()
}

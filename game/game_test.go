package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/herd/ai"
	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
	"github.com/pthm-cable/herd/telemetry"
)

// testConfig returns defaults with every species' initial population set
// from initial and strict invariant checking on.
func testConfig(initial ...int) *config.Config {
	cfg := config.Default()
	for i := range cfg.Species {
		cfg.Species[i].Initial = 0
		if i < len(initial) {
			cfg.Species[i].Initial = initial[i]
		}
	}
	cfg.Debug.StrictInvariants = true
	cfg.Telemetry.WindowTicks = 50
	return cfg
}

// testTerrain is an open grass field with a pond in one corner.
func testTerrain() *systems.TerrainGrid {
	t := systems.NewTerrainGrid(48, 48, 100, 0.05)
	for y := int32(38); y < 44; y++ {
		for x := int32(38); x < 44; x++ {
			t.Set(components.Position{X: x, Y: y}, systems.TerrainWater)
		}
	}
	return t
}

func newTestSim(t *testing.T, cfg *config.Config, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithSeed(7), WithTerrain(testTerrain()), WithWorkers(2)}, opts...)
	s, err := NewSimulation(cfg, opts...)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSimulationRunsClean steps a mixed population with strict invariants
// and checks after every tick that no entity is both queued for thinking
// and holding an action.
func TestSimulationRunsClean(t *testing.T) {
	s := newTestSim(t, testConfig(20, 6, 2, 1))

	var snaps []ActionSnapshot
	for range 600 {
		s.Step()

		snaps = s.Snapshots(snaps[:0])
		for _, snap := range snaps {
			if snap.Queued && !snap.Idle {
				t.Fatalf("tick %d: entity %v queued while %v in %v",
					s.Tick(), snap.Entity, snap.Kind, snap.State)
			}
		}
	}

	if s.Tick() != 600 {
		t.Errorf("Tick() = %d, want 600", s.Tick())
	}
	if s.Incidents() != 0 {
		t.Errorf("Incidents() = %d, want 0", s.Incidents())
	}
	stats := s.ActionStats()
	if stats.Started == 0 || stats.Completed == 0 {
		t.Errorf("no actions ran: %+v", stats)
	}
	busy := 0
	for _, snap := range snaps {
		if !snap.Idle {
			busy++
		}
	}
	if busy != stats.InFlight() {
		t.Errorf("%d entities hold an action, counters say %d in flight", busy, stats.InFlight())
	}
	if paths := s.PathStats(); paths.Submitted == 0 {
		t.Error("no path requests were made")
	}
}

// TestSimulationDeterministic runs two simulations from the same seed and
// expects the same population and action counts.
func TestSimulationDeterministic(t *testing.T) {
	run := func() (int, int) {
		s := newTestSim(t, testConfig(15, 5))
		s.Run(300)
		return s.Population(), s.ActionStats().Started
	}
	p1, a1 := run()
	p2, a2 := run()
	if p1 != p2 || a1 != a2 {
		t.Errorf("runs diverged: population %d vs %d, actions %d vs %d", p1, p2, a1, a2)
	}
}

// TestStepPhaseOrder checks that a tick times every system once, in order.
func TestStepPhaseOrder(t *testing.T) {
	s := newTestSim(t, testConfig(3))
	s.Step()

	timings := s.Timings()
	if len(timings) != len(telemetry.Systems) {
		t.Fatalf("got %d timings, want %d", len(timings), len(telemetry.Systems))
	}
	phases := []string{
		telemetry.PhasePlanning, telemetry.PhaseActions, telemetry.PhaseMovement,
		telemetry.PhaseStats, telemetry.PhaseCleanup, telemetry.PhaseTelemetry,
	}
	phase := 0
	for i, st := range timings {
		if st.System != telemetry.Systems[i] {
			t.Errorf("timing %d is %q, want %q", i, st.System, telemetry.Systems[i])
		}
		for phase < len(phases) && phases[phase] != st.Phase {
			phase++
		}
		if phase == len(phases) {
			t.Fatalf("system %q ran in phase %q out of order", st.System, st.Phase)
		}
	}
}

// TestSpawnPlansNextTick checks that a spawned animal is idle until the
// next Planning phase commits an action for it.
func TestSpawnPlansNextTick(t *testing.T) {
	s := newTestSim(t, testConfig())
	e := s.Spawn(0, components.Position{X: 10, Y: 10})

	snap, ok := s.Snapshot(e)
	if !ok {
		t.Fatal("spawned entity has no snapshot")
	}
	if !snap.Idle || snap.Queued {
		t.Errorf("before step: idle=%v queued=%v, want idle and not yet queued", snap.Idle, snap.Queued)
	}
	if s.Population() != 1 || s.PopulationOf(0) != 1 {
		t.Errorf("population = %d, want 1", s.Population())
	}

	s.Step()

	if s.ActionStats().Started != 1 {
		t.Fatalf("started %d actions, want 1", s.ActionStats().Started)
	}
	snap, _ = s.Snapshot(e)
	if snap.Idle {
		t.Error("entity still idle after its planning pass")
	}
	if snap.StartedTick != 0 {
		t.Errorf("StartedTick = %d, want 0", snap.StartedTick)
	}
}

// TestKillRemovesEntity kills an animal mid-action and checks that it stops
// counting at once and is removed from the world at Cleanup.
func TestKillRemovesEntity(t *testing.T) {
	s := newTestSim(t, testConfig())
	e := s.Spawn(0, components.Position{X: 10, Y: 10})
	other := s.Spawn(0, components.Position{X: 30, Y: 30})
	s.Step()

	s.Kill(e, components.CausePredation)
	if s.Population() != 1 {
		t.Errorf("population after kill = %d, want 1", s.Population())
	}
	if _, ok := s.Snapshot(e); ok {
		t.Error("dead entity still has a snapshot")
	}
	if got := s.ActionStats().Cancelled; got != 1 {
		t.Errorf("cancelled = %d, want 1", got)
	}

	// Killing twice is a no-op.
	s.Kill(e, components.CausePredation)
	if s.Population() != 1 {
		t.Errorf("population after second kill = %d, want 1", s.Population())
	}

	s.Step()
	if s.World().Alive(e) {
		t.Error("dead entity survived cleanup")
	}
	if !s.World().Alive(other) {
		t.Error("bystander removed")
	}
}

// TestKillLeavesQueueToPlanning kills a queued animal and runs Cleanup. The
// think request survives both and is dropped by the next tick's flush,
// before the planner drains the queue.
func TestKillLeavesQueueToPlanning(t *testing.T) {
	s := newTestSim(t, testConfig())
	e := s.Spawn(0, components.Position{X: 10, Y: 10})
	if !s.queue.Schedule(e, ai.TierLow, ai.ReasonForcedReplan, s.tick) {
		t.Fatal("schedule rejected")
	}

	s.Kill(e, components.CausePredation)
	if !s.queue.Contains(e) {
		t.Error("Kill changed the think queue")
	}

	s.cleanupDead(s.tick)
	if s.World().Alive(e) {
		t.Fatal("dead entity survived cleanup")
	}
	if !s.queue.Contains(e) {
		t.Error("Cleanup changed the think queue")
	}

	s.Step()
	if s.queue.Contains(e) {
		t.Error("request of a removed entity survived the flush")
	}
	if sizes := s.QueueSizes(); sizes != [3]int{} {
		t.Errorf("queue sizes = %v, want empty", sizes)
	}
	if got := s.ActionStats().Started; got != 0 {
		t.Errorf("started %d actions for a removed entity", got)
	}
}

// TestPopulationCap checks that births never push a species past its max.
func TestPopulationCap(t *testing.T) {
	cfg := testConfig(8)
	cfg.Species[0].Max = 10
	cfg.Species[0].MaturityAge = 1
	cfg.Species[0].ReproCooldown = 5
	cfg.Reproduction.MaxHunger = 100
	cfg.Reproduction.MaxThirst = 100
	s := newTestSim(t, cfg)

	for range 400 {
		s.Step()
		if n := s.PopulationOf(0); n > 10 {
			t.Fatalf("tick %d: population %d exceeds cap", s.Tick(), n)
		}
	}
}

// TestParallelSolverMatchesSerial solves the same batch on the pool and on
// a single solver and expects identical answers in request order.
func TestParallelSolverMatchesSerial(t *testing.T) {
	terrain := testTerrain()
	for y := int32(0); y < 30; y++ {
		terrain.Set(components.Position{X: 20, Y: y}, systems.TerrainRock)
	}

	reqs := make([]systems.PathRequest, 40)
	for i := range reqs {
		reqs[i] = systems.PathRequest{
			Origin: components.Position{X: int32(i % 10), Y: int32(i)},
			Dest:   components.Position{X: 30 + int32(i%7), Y: int32(i % 20)},
		}
	}
	// One unreachable target inside the pond.
	reqs[5].Dest = components.Position{X: 40, Y: 40}

	want := make([]systems.PathResult, len(reqs))
	systems.SerialSolver{Solver: systems.NewAStar(terrain, 4096)}.SolveBatch(reqs, want)

	pool := NewParallelSolver(4, func() systems.PathSolver {
		return systems.NewAStar(terrain, 4096)
	})
	defer pool.Close()

	for round := range 3 {
		got := make([]systems.PathResult, len(reqs))
		pool.SolveBatch(reqs, got)
		for i := range reqs {
			if (got[i].Err == nil) != (want[i].Err == nil) {
				t.Fatalf("round %d req %d: err %v, want %v", round, i, got[i].Err, want[i].Err)
			}
			if len(got[i].Path) != len(want[i].Path) {
				t.Fatalf("round %d req %d: path len %d, want %d", round, i, len(got[i].Path), len(want[i].Path))
			}
		}
	}
}

// TestOutputAndJournal runs two telemetry windows with CSV output and the
// journal enabled.
func TestOutputAndJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(10, 3)
	s := newTestSim(t, cfg,
		WithOutputDir(dir),
		WithJournal(filepath.Join(dir, "journal.db")),
	)
	s.Run(2 * cfg.Telemetry.WindowTicks)

	if s.journal.RunID() == "" {
		t.Fatal("journal has no run id")
	}
	if err := s.journal.Flush(); err != nil {
		t.Fatalf("journal flush: %v", err)
	}
	counts, err := s.journal.StateCounts()
	if err != nil {
		t.Fatalf("StateCounts: %v", err)
	}
	stored := 0
	for _, c := range counts {
		stored += c.Count
	}
	stats := s.ActionStats()
	if want := stats.Completed + stats.Failed + stats.Cancelled; stored != want {
		t.Errorf("journal holds %d outcomes, want %d", stored, want)
	}

	if err := s.output.Close(); err != nil {
		t.Fatalf("close output: %v", err)
	}
	for _, name := range []string{"telemetry.csv", "perf.csv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Errorf("%s has %d lines, want header and 2 windows", name, len(lines))
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}

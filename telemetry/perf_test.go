package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartSystem(PhasePlanning, SystemPlanner)
		time.Sleep(100 * time.Microsecond)
		pc.StartSystem(PhaseMovement, SystemPathfinding)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if _, ok := stats.SystemAvg[SystemPlanner]; !ok {
		t.Error("expected planner system to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseMovement]; !ok {
		t.Error("expected movement phase to be tracked")
	}
}

// TestPerfCollector_LastTick verifies one timing per system in run order.
func TestPerfCollector_LastTick(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartTick()
	pc.StartSystem(PhasePlanning, SystemThinkFlush)
	pc.StartSystem(PhasePlanning, SystemSafeguard)
	pc.StartSystem(PhasePlanning, SystemPlanner)
	time.Sleep(50 * time.Microsecond)
	pc.StartSystem(PhaseActions, SystemActions)
	pc.EndTick()

	got := pc.LastTick()
	want := []string{SystemThinkFlush, SystemSafeguard, SystemPlanner, SystemActions}
	if len(got) != len(want) {
		t.Fatalf("got %d timings, want %d", len(got), len(want))
	}
	var total float64
	for i, st := range got {
		if st.System != want[i] {
			t.Errorf("timing %d is %s, want %s", i, st.System, want[i])
		}
		total += st.Pct
	}
	if got[2].Phase != PhasePlanning || got[3].Phase != PhaseActions {
		t.Errorf("phases = %s, %s", got[2].Phase, got[3].Phase)
	}
	if got[2].Duration < 50*time.Microsecond {
		t.Errorf("planner duration %v, want at least 50us", got[2].Duration)
	}
	if total > 100.0001 {
		t.Errorf("system shares sum to %v%%", total)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartSystem(PhaseStats, SystemNeeds)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_SystemPercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartSystem(PhaseStats, "fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartSystem(PhaseStats, "slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.SystemPct["fast"]
	slowPct := stats.SystemPct["slow"]
	if slowPct <= fastPct {
		t.Errorf("expected slow system (%v%%) > fast system (%v%%)", slowPct, fastPct)
	}
	if stats.PhasePct[PhaseStats] < slowPct {
		t.Errorf("phase share %v%% below its slowest system", stats.PhasePct[PhaseStats])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.SystemAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil maps")
	}
	if len(pc.LastTick()) != 0 {
		t.Error("expected no timings before the first tick")
	}
}

// TestPerfStats_ToCSV verifies system shares land in their columns.
func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		AvgTickDuration: 2 * time.Millisecond,
		SystemPct:       map[string]float64{SystemPlanner: 40, SystemMarkers: 5},
	}
	row := s.ToCSV(300)
	if row.WindowEnd != 300 || row.AvgTickUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.PlannerPct != 40 || row.MarkersPct != 5 || row.MovementPct != 0 {
		t.Errorf("shares = planner %v markers %v movement %v", row.PlannerPct, row.MarkersPct, row.MovementPct)
	}
}

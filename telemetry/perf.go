package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the simulation step, in execution order.
const (
	PhasePlanning  = "planning"
	PhaseActions   = "actions"
	PhaseMovement  = "movement"
	PhaseStats     = "stats"
	PhaseCleanup   = "cleanup"
	PhaseTelemetry = "telemetry"
)

// System names, grouped by the phase that runs them.
const (
	SystemThinkFlush   = "think_flush"
	SystemSafeguard    = "safeguard"
	SystemPlanner      = "planner"
	SystemActions      = "actions"
	SystemPathfinding  = "pathfinding"
	SystemMovement     = "movement"
	SystemNeeds        = "needs"
	SystemFear         = "fear"
	SystemTriggers     = "triggers"
	SystemReproduction = "reproduction"
	SystemCleanup      = "cleanup"
	SystemMarkers      = "markers"
	SystemTelemetry    = "telemetry"
)

// Systems lists every system in the order a tick runs them.
var Systems = []string{
	SystemThinkFlush, SystemSafeguard, SystemPlanner,
	SystemActions,
	SystemPathfinding, SystemMovement,
	SystemNeeds, SystemFear, SystemTriggers, SystemReproduction,
	SystemCleanup, SystemMarkers,
	SystemTelemetry,
}

// SystemTiming is one system's wall time within a single tick.
type SystemTiming struct {
	Phase    string
	System   string
	Duration time.Duration
	Pct      float64 // Share of the tick, 0-100
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Systems      map[string]time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-system timing over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	tickStart   time.Time
	systemStart time.Time
	current     *SystemTiming
	timings     []SystemTiming
	last        []SystemTiming
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		timings:    make([]SystemTiming, 0, len(Systems)),
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.timings = p.timings[:0]
	p.current = nil
}

// StartSystem ends the running system, if any, and starts timing the next.
func (p *PerfCollector) StartSystem(phase, system string) {
	now := time.Now()
	p.endSystem(now)
	p.timings = append(p.timings, SystemTiming{Phase: phase, System: system})
	p.current = &p.timings[len(p.timings)-1]
	p.systemStart = now
}

func (p *PerfCollector) endSystem(now time.Time) {
	if p.current != nil {
		p.current.Duration += now.Sub(p.systemStart)
		p.current = nil
	}
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.endSystem(now)
	tick := now.Sub(p.tickStart)

	sample := PerfSample{
		TickDuration: tick,
		Systems:      make(map[string]time.Duration, len(p.timings)),
		Phases:       make(map[string]time.Duration, 6),
	}
	for i := range p.timings {
		st := &p.timings[i]
		if tick > 0 {
			st.Pct = float64(st.Duration) / float64(tick) * 100
		}
		sample.Systems[st.System] += st.Duration
		sample.Phases[st.Phase] += st.Duration
	}
	p.last = append(p.last[:0], p.timings...)

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// LastTick returns the per-system timings of the most recent completed tick,
// in execution order. The slice is reused by the next EndTick.
func (p *PerfCollector) LastTick() []SystemTiming {
	return p.last
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// System and phase breakdown (average durations)
	SystemAvg map[string]time.Duration
	PhaseAvg  map[string]time.Duration

	// Percentages of total tick time
	SystemPct map[string]float64
	PhasePct  map[string]float64

	// Throughput
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			SystemAvg: make(map[string]time.Duration),
			PhaseAvg:  make(map[string]time.Duration),
			SystemPct: make(map[string]float64),
			PhasePct:  make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	systemSum := make(map[string]time.Duration)
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for name, dur := range s.Systems {
			systemSum[name] += dur
		}
		for name, dur := range s.Phases {
			phaseSum[name] += dur
		}
	}

	n := time.Duration(p.sampleCount)
	avgTick := totalTick / n
	systemAvg, systemPct := averages(systemSum, n, avgTick)
	phaseAvg, phasePct := averages(phaseSum, n, avgTick)

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		SystemAvg:       systemAvg,
		PhaseAvg:        phaseAvg,
		SystemPct:       systemPct,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

func averages(sums map[string]time.Duration, n, avgTick time.Duration) (map[string]time.Duration, map[string]float64) {
	avg := make(map[string]time.Duration, len(sums))
	pct := make(map[string]float64, len(sums))
	for name, sum := range sums {
		avg[name] = sum / n
		if avgTick > 0 {
			pct[name] = float64(avg[name]) / float64(avgTick) * 100
		}
	}
	return avg, pct
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}

	for _, name := range Systems {
		if pct, ok := s.SystemPct[name]; ok && pct > 0.1 {
			attrs = append(attrs, name+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	ThinkFlushPct   float64 `csv:"think_flush_pct"`
	SafeguardPct    float64 `csv:"safeguard_pct"`
	PlannerPct      float64 `csv:"planner_pct"`
	ActionsPct      float64 `csv:"actions_pct"`
	PathfindingPct  float64 `csv:"pathfinding_pct"`
	MovementPct     float64 `csv:"movement_pct"`
	NeedsPct        float64 `csv:"needs_pct"`
	FearPct         float64 `csv:"fear_pct"`
	TriggersPct     float64 `csv:"triggers_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	CleanupPct      float64 `csv:"cleanup_pct"`
	MarkersPct      float64 `csv:"markers_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTickDuration.Microseconds(),
		MinTickUS:       s.MinTickDuration.Microseconds(),
		MaxTickUS:       s.MaxTickDuration.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		ThinkFlushPct:   s.SystemPct[SystemThinkFlush],
		SafeguardPct:    s.SystemPct[SystemSafeguard],
		PlannerPct:      s.SystemPct[SystemPlanner],
		ActionsPct:      s.SystemPct[SystemActions],
		PathfindingPct:  s.SystemPct[SystemPathfinding],
		MovementPct:     s.SystemPct[SystemMovement],
		NeedsPct:        s.SystemPct[SystemNeeds],
		FearPct:         s.SystemPct[SystemFear],
		TriggersPct:     s.SystemPct[SystemTriggers],
		ReproductionPct: s.SystemPct[SystemReproduction],
		CleanupPct:      s.SystemPct[SystemCleanup],
		MarkersPct:      s.SystemPct[SystemMarkers],
		TelemetryPct:    s.SystemPct[SystemTelemetry],
	}
}

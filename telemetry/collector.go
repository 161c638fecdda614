package telemetry

import "github.com/pthm-cable/herd/components"

// Gauges is the world state sampled when a window is flushed.
type Gauges struct {
	Population int
	Predators  int

	// Need values of every living animal
	Hunger []float64
	Thirst []float64
	Energy []float64

	QueueSizes [3]int // think queue depth per tier
	InFlight   int    // entities holding an action

	PathsSubmitted int
	PathsFailed    int
	PathsDiscarded int
	PathsStale     int
	PathsQueued    int

	TotalBiomass float64
}

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	births    int
	deaths    [components.CausePredation + 1]int
	latencies []float64
	started   int
	completed int
	failed    int
	cancelled int
	replans   int
	incidents int
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int32(windowTicks),
		latencies:           make([]float64, 0, 256),
	}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a death event.
func (c *Collector) RecordDeath(cause components.DeathCause) {
	if int(cause) < len(c.deaths) {
		c.deaths[cause]++
	}
}

// RecordThink records one planning pass and how long its request waited.
func (c *Collector) RecordThink(latencyTicks int32) {
	c.latencies = append(c.latencies, float64(latencyTicks))
}

// RecordStarts records n action commits.
func (c *Collector) RecordStarts(n int) {
	c.started += n
}

// RecordOutcome records how an action ended.
func (c *Collector) RecordOutcome(state components.ActionState) {
	switch state {
	case components.StateCompleted:
		c.completed++
	case components.StateFailed:
		c.failed++
	case components.StateCancelled:
		c.cancelled++
	}
}

// RecordReplans records forced replans queued by the safeguard.
func (c *Collector) RecordReplans(n int) {
	c.replans += n
}

// RecordIncident records an internal-consistency error that was tolerated.
func (c *Collector) RecordIncident() {
	c.incidents++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, g Gauges) WindowStats {
	latMean, _, _, latP90 := ComputeDistribution(c.latencies)
	var latMax float64
	for _, l := range c.latencies {
		latMax = max(latMax, l)
	}
	hungerMean, _, _, hungerP90 := ComputeDistribution(g.Hunger)
	thirstMean, _, _, thirstP90 := ComputeDistribution(g.Thirst)
	energyMean, energyP10, _, _ := ComputeDistribution(g.Energy)

	deaths := 0
	for _, n := range c.deaths {
		deaths += n
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Population: g.Population,
		Predators:  g.Predators,

		Births:            c.births,
		Deaths:            deaths,
		DeathsStarvation:  c.deaths[components.CauseStarvation],
		DeathsDehydration: c.deaths[components.CauseDehydration],
		DeathsOldAge:      c.deaths[components.CauseOldAge],
		DeathsPredation:   c.deaths[components.CausePredation],

		Thinks:             len(c.latencies),
		ThinkLatencyMean:   latMean,
		ThinkLatencyP90:    latP90,
		ThinkLatencyMax:    latMax,
		QueueUrgent:        g.QueueSizes[0],
		QueueNormal:        g.QueueSizes[1],
		QueueLow:           g.QueueSizes[2],
		ForcedReplans:      c.replans,
		InvariantIncidents: c.incidents,

		ActionsStarted:   c.started,
		ActionsCompleted: c.completed,
		ActionsFailed:    c.failed,
		ActionsCancelled: c.cancelled,
		ActionsInFlight:  g.InFlight,

		PathsSubmitted: g.PathsSubmitted,
		PathsFailed:    g.PathsFailed,
		PathsDiscarded: g.PathsDiscarded,
		PathsStale:     g.PathsStale,
		PathsQueued:    g.PathsQueued,

		HungerMean: hungerMean,
		HungerP90:  hungerP90,
		ThirstMean: thirstMean,
		ThirstP90:  thirstP90,
		EnergyMean: energyMean,
		EnergyP10:  energyP10,

		TotalBiomass: g.TotalBiomass,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	clear(c.deaths[:])
	c.latencies = c.latencies[:0]
	c.started = 0
	c.completed = 0
	c.failed = 0
	c.cancelled = 0
	c.replans = 0
	c.incidents = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

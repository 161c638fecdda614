package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Population at window end
	Population int `csv:"population"`
	Predators  int `csv:"predators"`

	// Births and deaths during window
	Births            int `csv:"births"`
	Deaths            int `csv:"deaths"`
	DeathsStarvation  int `csv:"deaths_starvation"`
	DeathsDehydration int `csv:"deaths_dehydration"`
	DeathsOldAge      int `csv:"deaths_old_age"`
	DeathsPredation   int `csv:"deaths_predation"`

	// Think scheduling: ticks from enqueue to plan
	Thinks             int     `csv:"thinks"`
	ThinkLatencyMean   float64 `csv:"think_latency_mean"`
	ThinkLatencyP90    float64 `csv:"think_latency_p90"`
	ThinkLatencyMax    float64 `csv:"think_latency_max"`
	QueueUrgent        int     `csv:"queue_urgent"`
	QueueNormal        int     `csv:"queue_normal"`
	QueueLow           int     `csv:"queue_low"`
	ForcedReplans      int     `csv:"forced_replans"`
	InvariantIncidents int     `csv:"invariant_incidents"`

	// Action outcomes during window
	ActionsStarted   int `csv:"actions_started"`
	ActionsCompleted int `csv:"actions_completed"`
	ActionsFailed    int `csv:"actions_failed"`
	ActionsCancelled int `csv:"actions_cancelled"`
	ActionsInFlight  int `csv:"actions_in_flight"`

	// Path bridge traffic, cumulative
	PathsSubmitted int `csv:"paths_submitted"`
	PathsFailed    int `csv:"paths_failed"`
	PathsDiscarded int `csv:"paths_discarded"`
	PathsStale     int `csv:"paths_stale"`
	PathsQueued    int `csv:"paths_queued"`

	// Need distribution (sampled at window end)
	HungerMean float64 `csv:"hunger_mean"`
	HungerP90  float64 `csv:"hunger_p90"`
	ThirstMean float64 `csv:"thirst_mean"`
	ThirstP90  float64 `csv:"thirst_p90"`
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`

	// Food supply
	TotalBiomass float64 `csv:"total_biomass"`
}

// Quantile returns the empirical p-quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDistribution calculates mean and percentiles of values.
// values is left untouched.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Quantile(sorted, 0.10)
	p50 = Quantile(sorted, 0.50)
	p90 = Quantile(sorted, 0.90)

	return mean, p10, p50, p90
}

// Prey returns the non-predator population.
func (s WindowStats) Prey() int {
	return s.Population - s.Predators
}

// QueueDepth returns the think queue depth across all tiers.
func (s WindowStats) QueueDepth() int {
	return s.QueueUrgent + s.QueueNormal + s.QueueLow
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("population", s.Population),
		slog.Int("predators", s.Predators),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("thinks", s.Thinks),
		slog.Float64("think_latency_mean", s.ThinkLatencyMean),
		slog.Float64("think_latency_p90", s.ThinkLatencyP90),
		slog.Int("forced_replans", s.ForcedReplans),
		slog.Int("invariant_incidents", s.InvariantIncidents),
		slog.Int("actions_completed", s.ActionsCompleted),
		slog.Int("actions_failed", s.ActionsFailed),
		slog.Int("actions_cancelled", s.ActionsCancelled),
		slog.Float64("hunger_mean", s.HungerMean),
		slog.Float64("thirst_mean", s.ThirstMean),
		slog.Float64("energy_mean", s.EnergyMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"population", s.Population,
		"predators", s.Predators,
		"births", s.Births,
		"deaths", s.Deaths,
		"deaths_starvation", s.DeathsStarvation,
		"deaths_dehydration", s.DeathsDehydration,
		"deaths_old_age", s.DeathsOldAge,
		"deaths_predation", s.DeathsPredation,
		"thinks", s.Thinks,
		"think_latency_mean", s.ThinkLatencyMean,
		"think_latency_p90", s.ThinkLatencyP90,
		"think_latency_max", s.ThinkLatencyMax,
		"queue_urgent", s.QueueUrgent,
		"queue_normal", s.QueueNormal,
		"queue_low", s.QueueLow,
		"forced_replans", s.ForcedReplans,
		"invariant_incidents", s.InvariantIncidents,
		"actions_started", s.ActionsStarted,
		"actions_completed", s.ActionsCompleted,
		"actions_failed", s.ActionsFailed,
		"actions_cancelled", s.ActionsCancelled,
		"actions_in_flight", s.ActionsInFlight,
		"paths_submitted", s.PathsSubmitted,
		"paths_failed", s.PathsFailed,
		"paths_discarded", s.PathsDiscarded,
		"paths_stale", s.PathsStale,
		"paths_queued", s.PathsQueued,
		"hunger_mean", s.HungerMean,
		"hunger_p90", s.HungerP90,
		"thirst_mean", s.ThirstMean,
		"thirst_p90", s.ThirstP90,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"total_biomass", s.TotalBiomass,
	)
}

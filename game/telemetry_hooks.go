package game

import (
	"log/slog"

	"github.com/pthm-cable/herd/ai"
	"github.com/pthm-cable/herd/telemetry"
)

// flushTelemetry closes the stats window when it is due, writes it out and
// checks it for bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sampleGauges())
	perfStats := s.perf.Stats()

	// Log stats if enabled (console output)
	if s.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// The tick being timed is still open; LastTick is the one before it.
	if last := s.perf.LastTick(); len(last) > 0 {
		if err := s.output.WriteTimings(s.tick-2, last); err != nil {
			slog.Error("failed to write timings", "error", err)
		}
	}
	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	bookmarks := s.bookmarks.Check(stats)
	for _, bm := range bookmarks {
		if s.opts.LogStats {
			bm.LogBookmark()
		}
	}
	if err := s.output.WriteBookmarks(bookmarks); err != nil {
		slog.Error("failed to write bookmarks", "error", err)
	}

	if s.journal != nil {
		if err := s.journal.WriteWindow(stats); err != nil {
			slog.Error("failed to journal window", "error", err)
		}
		if err := s.journal.Flush(); err != nil {
			slog.Error("failed to flush journal", "error", err)
		}
	}
}

// sampleGauges reads the world state reported with each window. Path
// counters are reported as deltas over the window.
func (s *Simulation) sampleGauges() telemetry.Gauges {
	g := telemetry.Gauges{
		QueueSizes:   s.queue.Sizes(),
		InFlight:     s.exec.Stats().InFlight(),
		PathsQueued:  s.bridge.Queued(),
		TotalBiomass: s.terrain.TotalBiomass(),
	}

	query := s.animalFilter.Query()
	for query.Next() {
		if s.deadMap.Has(query.Entity()) {
			continue
		}
		sp, needs, _ := query.Get()
		g.Population++
		if sp.Predator {
			g.Predators++
		}
		g.Hunger = append(g.Hunger, float64(needs.Hunger))
		g.Thirst = append(g.Thirst, float64(needs.Thirst))
		g.Energy = append(g.Energy, float64(needs.Energy))
	}

	paths := s.bridge.Stats()
	g.PathsSubmitted = paths.Submitted - s.lastPaths.Submitted
	g.PathsFailed = paths.Failed - s.lastPaths.Failed
	g.PathsDiscarded = paths.Discarded - s.lastPaths.Discarded
	g.PathsStale = paths.Stale - s.lastPaths.Stale
	s.lastPaths = paths

	return g
}

// recordOutcome feeds a retired action into the window counters and the
// journal.
func (s *Simulation) recordOutcome(o ai.Outcome) {
	s.collector.RecordOutcome(o.State)

	var reason string
	if o.Err != nil {
		reason = o.Err.Error()
	}
	s.journal.Record(telemetry.OutcomeRecord{
		Tick:        o.Tick,
		Entity:      uint32(o.Entity.ID()),
		Kind:        o.Kind.String(),
		State:       o.State.String(),
		StartedTick: o.StartedTick,
		Retries:     o.Retries,
		Repaths:     o.Repaths,
		Requests:    o.Requests,
		Reason:      reason,
	})
}

package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/ai"
	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/telemetry"
)

// Step runs a single tick. Phases run in a fixed order and every system
// inside a phase is timed on its own.
func (s *Simulation) Step() {
	tick := s.tick
	s.perf.StartTick()

	// 1. Planning
	s.perf.StartSystem(telemetry.PhasePlanning, telemetry.SystemThinkFlush)
	s.dropDeparted()
	s.inbox.Flush(s.queue, tick, s.idle)

	s.perf.StartSystem(telemetry.PhasePlanning, telemetry.SystemSafeguard)
	if s.safeguard.Due(tick) {
		n, err := s.safeguard.Sweep(tick)
		s.collector.RecordReplans(n)
		s.check(err)
	}

	s.perf.StartSystem(telemetry.PhasePlanning, telemetry.SystemPlanner)
	s.plan(tick)

	// 2. Action execution
	s.perf.StartSystem(telemetry.PhaseActions, telemetry.SystemActions)
	s.exec.Run(tick)

	// 3. Movement
	s.perf.StartSystem(telemetry.PhaseMovement, telemetry.SystemPathfinding)
	s.pathfinder.Process(tick)

	s.perf.StartSystem(telemetry.PhaseMovement, telemetry.SystemMovement)
	s.movement.Update()

	// 4. Stats and reproduction
	s.perf.StartSystem(telemetry.PhaseStats, telemetry.SystemNeeds)
	s.updateNeeds()

	s.perf.StartSystem(telemetry.PhaseStats, telemetry.SystemFear)
	s.fear.Update()

	s.perf.StartSystem(telemetry.PhaseStats, telemetry.SystemTriggers)
	s.triggers.Update(tick)
	s.memory.Prune(tick)

	s.perf.StartSystem(telemetry.PhaseStats, telemetry.SystemReproduction)
	s.updateReproduction()

	// 5. Cleanup
	s.perf.StartSystem(telemetry.PhaseCleanup, telemetry.SystemCleanup)
	s.cleanupDead(tick)

	s.perf.StartSystem(telemetry.PhaseCleanup, telemetry.SystemMarkers)
	s.sweepMarkers(tick)

	s.tick++

	s.perf.StartSystem(telemetry.PhaseTelemetry, telemetry.SystemTelemetry)
	s.flushTelemetry()
	s.perf.EndTick()
}

// Run steps n ticks.
func (s *Simulation) Run(n int) {
	for range n {
		s.Step()
	}
}

// idle reports whether e is a living animal without an action.
func (s *Simulation) idle(e ecs.Entity) bool {
	return s.env.Living(e) && !s.exec.Active(e)
}

// waiting reports whether e's action is waiting on a path answer.
func (s *Simulation) waiting(e ecs.Entity) bool {
	rec, ok := s.exec.Record(e)
	return ok && rec.State == components.StateWaitingForPath
}

// plan drains the think budget and commits one action per request.
func (s *Simulation) plan(tick int32) {
	s.requests = s.queue.Drain(tick, s.cfg.Think.Budget, s.requests[:0])
	for _, req := range s.requests {
		s.collector.RecordThink(tick - req.EnqueuedTick)
	}
	s.collector.RecordStarts(s.planner.Process(s.requests, tick))

	if every := int32(s.cfg.Think.DepthLogInterval); every > 0 && tick%every == 0 {
		slog.Debug("think queue",
			"tick", tick,
			"queue", s.queue,
			"drained", len(s.requests),
			"actions", s.exec.Stats(),
			"committed", s.planner.Committed(),
			"paths_queued", s.bridge.Queued(),
		)
	}
}

// updateNeeds decays needs, regrows grass and kills animals whose needs ran out.
func (s *Simulation) updateNeeds() {
	s.deaths = s.needs.Update(s.deaths[:0])
	for _, d := range s.deaths {
		s.Kill(d.Entity, d.Cause)
	}
	s.terrain.Regrow()
}

// updateReproduction pairs idle adults and spawns their young.
func (s *Simulation) updateReproduction() {
	s.births = s.reproduction.Update(s.births[:0], s.idle, s.room)
	for _, b := range s.births {
		if !s.room(b.Species) {
			continue
		}
		s.spawn(b.Species, b.At, b.Generation, 0)
		s.collector.RecordBirth()
	}
}

// sweepMarkers drops stale path answers and reports answers left unread.
func (s *Simulation) sweepMarkers(tick int32) {
	_, violations := s.bridge.Sweep(tick, s.waiting)
	if violations > 0 {
		s.check(&ai.InvariantError{
			Rule:   ai.RuleUnreadMarker,
			Tick:   tick,
			Detail: fmt.Sprintf("%d path answers skipped by waiting entities", violations),
		})
	}
	s.check(s.exec.Verify(tick))
}

// check handles an error surfaced by a system. Invariant failures panic in
// strict mode and are logged and counted otherwise.
func (s *Simulation) check(err error) {
	if err == nil {
		return
	}
	err = ai.Enforce(err, s.cfg.Debug.StrictInvariants)

	var inv *ai.InvariantError
	if errors.As(err, &inv) {
		s.incidents++
		s.collector.RecordIncident()
		slog.Error("invariant violated",
			"rule", inv.Rule,
			"entity", inv.Entity.ID(),
			"tick", inv.Tick,
			"detail", inv.Detail,
		)
		return
	}
	slog.Warn("system error", "tick", s.tick, "error", err)
}

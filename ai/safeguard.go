package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// Safeguard periodically queues a Low replan for entities that have sat
// idle too long without a queued request. Entities that hold an action are
// excluded at the filter and re-checked before scheduling.
type Safeguard struct {
	filter  *ecs.Filter1[components.IdleTracker]
	actions *ecs.Map[components.ActiveAction]
	dead    *ecs.Map[components.Dead]
	queue   *ThinkQueue

	interval  int32
	threshold int32

	replans    uint64
	candidates []ecs.Entity
}

// NewSafeguard creates a safeguard scheduling into q.
func NewSafeguard(w *ecs.World, q *ThinkQueue, cfg config.SafeguardConfig) *Safeguard {
	return &Safeguard{
		filter:     ecs.NewFilter1[components.IdleTracker](w).Without(ecs.C[components.ActiveAction]()),
		actions:    ecs.NewMap[components.ActiveAction](w),
		dead:       ecs.NewMap[components.Dead](w),
		queue:      q,
		interval:   int32(max(cfg.Interval, 1)),
		threshold:  int32(cfg.IdleThreshold),
		candidates: make([]ecs.Entity, 0, 64),
	}
}

// Due reports whether a sweep runs at tick.
func (s *Safeguard) Due(tick int32) bool {
	return tick%s.interval == 0
}

// Sweep schedules forced replans when due and returns how many were queued.
// Finding an action record on a candidate aborts the sweep with an
// *InvariantError.
func (s *Safeguard) Sweep(tick int32) (int, error) {
	if !s.Due(tick) {
		return 0, nil
	}

	s.candidates = s.candidates[:0]
	query := s.filter.Query()
	for query.Next() {
		e := query.Entity()
		if s.dead.Has(e) || s.queue.Contains(e) {
			continue
		}
		if query.Get().IdleFor(tick) >= s.threshold {
			s.candidates = append(s.candidates, e)
		}
	}

	n := 0
	for _, e := range s.candidates {
		if s.actions.Has(e) {
			return n, &InvariantError{
				Rule:   RuleSafeguardActive,
				Entity: e,
				Tick:   tick,
				Detail: "forced replan candidate holds " + s.actions.Get(e).Kind.String(),
			}
		}
		if s.queue.Schedule(e, TierLow, ReasonForcedReplan, tick) {
			n++
		}
	}
	s.replans += uint64(n)
	return n, nil
}

// Replans returns the number of forced replans queued since creation.
func (s *Safeguard) Replans() uint64 {
	return s.replans
}

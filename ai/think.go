// Package ai holds the decision core: think scheduling, the action state
// machine and the safeguards around it.
package ai

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"
)

// Tier is a think priority. Lower values are served first.
type Tier uint8

const (
	TierUrgent Tier = iota
	TierNormal
	TierLow
	numTiers
)

func (t Tier) String() string {
	switch t {
	case TierUrgent:
		return "urgent"
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	}
	return "unknown"
}

// Reason records why a think request was raised.
type Reason uint8

const (
	ReasonFearTriggered Reason = iota
	ReasonHungerCritical
	ReasonThirstCritical
	ReasonEnergyCritical
	ReasonThreatened
	ReasonHungerModerate
	ReasonThirstModerate
	ReasonEnergyLow
	ReasonActionCompleted
	ReasonActionFailed
	ReasonReproductionReady
	ReasonIdle
	ReasonForcedReplan
	ReasonSpawned
)

var reasonNames = [...]string{
	ReasonFearTriggered:     "fear_triggered",
	ReasonHungerCritical:    "hunger_critical",
	ReasonThirstCritical:    "thirst_critical",
	ReasonEnergyCritical:    "energy_critical",
	ReasonThreatened:        "threatened",
	ReasonHungerModerate:    "hunger_moderate",
	ReasonThirstModerate:    "thirst_moderate",
	ReasonEnergyLow:         "energy_low",
	ReasonActionCompleted:   "action_completed",
	ReasonActionFailed:      "action_failed",
	ReasonReproductionReady: "reproduction_ready",
	ReasonIdle:              "idle",
	ReasonForcedReplan:      "forced_replan",
	ReasonSpawned:           "spawned",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Tier returns the default tier for the reason.
func (r Reason) Tier() Tier {
	switch {
	case r <= ReasonThreatened:
		return TierUrgent
	case r <= ReasonReproductionReady:
		return TierNormal
	default:
		return TierLow
	}
}

// ThinkRequest is an invitation for an entity to run a planning pass.
type ThinkRequest struct {
	Entity       ecs.Entity
	Tier         Tier
	Reason       Reason
	EnqueuedTick int32
}

// ThinkQueue is the tiered planning scheduler. Each tier is a FIFO and an
// entity holds at most one queued request across all tiers.
type ThinkQueue struct {
	tiers     [numTiers][]ThinkRequest
	queued    map[ecs.Entity]Tier
	processed uint64
}

// NewThinkQueue creates an empty scheduler.
func NewThinkQueue() *ThinkQueue {
	return &ThinkQueue{queued: make(map[ecs.Entity]Tier, 256)}
}

// Schedule enqueues a request for e. It returns false without effect when e
// already has a queued request.
func (q *ThinkQueue) Schedule(e ecs.Entity, tier Tier, reason Reason, tick int32) bool {
	if _, ok := q.queued[e]; ok {
		return false
	}
	tier = min(tier, TierLow)
	q.tiers[tier] = append(q.tiers[tier], ThinkRequest{
		Entity:       e,
		Tier:         tier,
		Reason:       reason,
		EnqueuedTick: tick,
	})
	q.queued[e] = tier
	return true
}

// Drain pulls up to budget requests, Urgent first, then Normal, then Low,
// and appends them to dst. Requests not reached stay queued.
func (q *ThinkQueue) Drain(tick int32, budget int, dst []ThinkRequest) []ThinkRequest {
	for t := range q.tiers {
		if budget <= 0 {
			break
		}
		n := min(budget, len(q.tiers[t]))
		if n == 0 {
			continue
		}
		for _, req := range q.tiers[t][:n] {
			delete(q.queued, req.Entity)
			dst = append(dst, req)
		}
		clear(q.tiers[t][:n])
		q.tiers[t] = q.tiers[t][n:]
		budget -= n
		q.processed += uint64(n)
	}
	return dst
}

// Contains reports whether e has a queued request.
func (q *ThinkQueue) Contains(e ecs.Entity) bool {
	_, ok := q.queued[e]
	return ok
}

// Remove cancels e's queued request, if any.
func (q *ThinkQueue) Remove(e ecs.Entity) bool {
	tier, ok := q.queued[e]
	if !ok {
		return false
	}
	delete(q.queued, e)
	reqs := q.tiers[tier]
	for i := range reqs {
		if reqs[i].Entity == e {
			copy(reqs[i:], reqs[i+1:])
			reqs[len(reqs)-1] = ThinkRequest{}
			q.tiers[tier] = reqs[:len(reqs)-1]
			break
		}
	}
	return true
}

// Sizes returns the queue length per tier.
func (q *ThinkQueue) Sizes() [3]int {
	return [3]int{len(q.tiers[TierUrgent]), len(q.tiers[TierNormal]), len(q.tiers[TierLow])}
}

// Len returns the total number of queued requests.
func (q *ThinkQueue) Len() int {
	return len(q.queued)
}

// Processed returns the number of requests drained since creation.
func (q *ThinkQueue) Processed() uint64 {
	return q.processed
}

// LogValue implements slog.LogValuer.
func (q *ThinkQueue) LogValue() slog.Value {
	sizes := q.Sizes()
	return slog.GroupValue(
		slog.Int("urgent", sizes[TierUrgent]),
		slog.Int("normal", sizes[TierNormal]),
		slog.Int("low", sizes[TierLow]),
		slog.Uint64("processed", q.processed),
	)
}

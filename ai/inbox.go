package ai

import "github.com/mlange-42/ark/ecs"

// Inbox buffers triggers raised outside the Planning phase. The queue itself
// is only mutated while planning, when the inbox is flushed into it.
type Inbox struct {
	pending []ThinkRequest
}

// Push records a trigger at the reason's default tier.
func (b *Inbox) Push(e ecs.Entity, reason Reason, tick int32) {
	b.PushTier(e, reason.Tier(), reason, tick)
}

// PushTier records a trigger at an explicit tier.
func (b *Inbox) PushTier(e ecs.Entity, tier Tier, reason Reason, tick int32) {
	b.pending = append(b.pending, ThinkRequest{Entity: e, Tier: tier, Reason: reason, EnqueuedTick: tick})
}

// Flush schedules the buffered triggers in push order as enqueued at tick,
// skipping entities for which idle returns false, and empties the inbox.
// It returns the number of requests that were newly queued.
func (b *Inbox) Flush(q *ThinkQueue, tick int32, idle func(ecs.Entity) bool) int {
	applied := 0
	for _, req := range b.pending {
		if !idle(req.Entity) {
			continue
		}
		if q.Schedule(req.Entity, req.Tier, req.Reason, tick) {
			applied++
		}
	}
	clear(b.pending)
	b.pending = b.pending[:0]
	return applied
}

// Len returns the number of buffered triggers.
func (b *Inbox) Len() int {
	return len(b.pending)
}

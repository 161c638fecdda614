package ai

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

func entities(n int) []ecs.Entity {
	w := ecs.NewWorld()
	m := ecs.NewMap1[components.Position](w)
	es := make([]ecs.Entity, n)
	for i := range es {
		es[i] = m.NewEntity(&components.Position{X: int32(i)})
	}
	return es
}

// TestScheduleDedup verifies scheduling twice in a tick queues one request.
func TestScheduleDedup(t *testing.T) {
	q := NewThinkQueue()
	e := entities(1)[0]

	if !q.Schedule(e, TierNormal, ReasonHungerModerate, 3) {
		t.Fatal("first schedule should queue")
	}
	if q.Schedule(e, TierUrgent, ReasonFearTriggered, 3) {
		t.Error("second schedule should be a no-op")
	}
	if q.Len() != 1 || q.Sizes() != [3]int{0, 1, 0} {
		t.Errorf("len=%d sizes=%v, want one normal request", q.Len(), q.Sizes())
	}

	got := q.Drain(3, 10, nil)
	if len(got) != 1 || got[0].Reason != ReasonHungerModerate || got[0].EnqueuedTick != 3 {
		t.Errorf("drained %+v", got)
	}
	if q.Contains(e) {
		t.Error("drained entity should be unmarked")
	}
	if !q.Schedule(e, TierLow, ReasonIdle, 4) {
		t.Error("entity should be schedulable again after drain")
	}
}

// TestDrainPriorityOrder verifies Urgent is exhausted before Normal before Low.
func TestDrainPriorityOrder(t *testing.T) {
	es := entities(6)
	tests := []struct {
		budget int
		want   []Tier
	}{
		{1, []Tier{TierUrgent}},
		{2, []Tier{TierUrgent, TierUrgent}},
		{3, []Tier{TierUrgent, TierUrgent, TierNormal}},
		{5, []Tier{TierUrgent, TierUrgent, TierNormal, TierNormal, TierLow}},
	}

	for _, tt := range tests {
		q := NewThinkQueue()
		// Enqueue low first so arrival order cannot explain the result
		q.Schedule(es[0], TierLow, ReasonIdle, 1)
		q.Schedule(es[1], TierNormal, ReasonActionCompleted, 1)
		q.Schedule(es[2], TierUrgent, ReasonFearTriggered, 1)
		q.Schedule(es[3], TierLow, ReasonForcedReplan, 1)
		q.Schedule(es[4], TierNormal, ReasonThirstModerate, 1)
		q.Schedule(es[5], TierUrgent, ReasonHungerCritical, 1)

		got := q.Drain(1, tt.budget, nil)
		if len(got) != len(tt.want) {
			t.Fatalf("budget %d: drained %d, want %d", tt.budget, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].Tier != tt.want[i] {
				t.Errorf("budget %d: item %d tier %v, want %v", tt.budget, i, got[i].Tier, tt.want[i])
			}
		}
		if q.Len() != 6-tt.budget {
			t.Errorf("budget %d: %d left, want %d", tt.budget, q.Len(), 6-tt.budget)
		}
	}
}

// TestDrainBudgetCarriesOver verifies that with budget 1 the first urgent
// request wins and the second waits for the next tick.
func TestDrainBudgetCarriesOver(t *testing.T) {
	q := NewThinkQueue()
	es := entities(2)
	q.Schedule(es[0], TierUrgent, ReasonFearTriggered, 7)
	q.Schedule(es[1], TierUrgent, ReasonFearTriggered, 7)

	first := q.Drain(7, 1, nil)
	if len(first) != 1 || first[0].Entity != es[0] {
		t.Fatalf("tick 7 drained %+v, want %v", first, es[0])
	}
	if !q.Contains(es[1]) {
		t.Fatal("second entity should stay queued")
	}

	second := q.Drain(8, 1, nil)
	if len(second) != 1 || second[0].Entity != es[1] || second[0].EnqueuedTick != 7 {
		t.Errorf("tick 8 drained %+v, want %v enqueued at 7", second, es[1])
	}
	if q.Processed() != 2 {
		t.Errorf("processed = %d, want 2", q.Processed())
	}
}

// TestQueueRemove verifies a cancelled request is gone and order is kept.
func TestQueueRemove(t *testing.T) {
	q := NewThinkQueue()
	es := entities(3)
	for _, e := range es {
		q.Schedule(e, TierNormal, ReasonActionCompleted, 1)
	}
	if !q.Remove(es[1]) {
		t.Fatal("Remove should find the request")
	}
	if q.Remove(es[1]) {
		t.Error("second Remove should report nothing")
	}

	got := q.Drain(2, 10, nil)
	if len(got) != 2 || got[0].Entity != es[0] || got[1].Entity != es[2] {
		t.Errorf("drained %+v, want es[0], es[2]", got)
	}
}

// TestReasonTier verifies the default tier of every reason.
func TestReasonTier(t *testing.T) {
	tests := []struct {
		reason Reason
		want   Tier
	}{
		{ReasonFearTriggered, TierUrgent},
		{ReasonThreatened, TierUrgent},
		{ReasonEnergyCritical, TierUrgent},
		{ReasonHungerModerate, TierNormal},
		{ReasonActionFailed, TierNormal},
		{ReasonReproductionReady, TierNormal},
		{ReasonIdle, TierLow},
		{ReasonForcedReplan, TierLow},
		{ReasonSpawned, TierLow},
	}
	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			if got := tt.reason.Tier(); got != tt.want {
				t.Errorf("Tier() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestInboxFlush verifies deferred triggers apply in push order and skip busy entities.
func TestInboxFlush(t *testing.T) {
	q := NewThinkQueue()
	es := entities(3)
	var in Inbox

	in.Push(es[0], ReasonIdle, 4)
	in.Push(es[1], ReasonHungerCritical, 4)
	in.Push(es[2], ReasonActionCompleted, 4)
	in.Push(es[0], ReasonFearTriggered, 4)

	if q.Len() != 0 {
		t.Fatal("push must not touch the queue")
	}

	busy := map[ecs.Entity]bool{es[2]: true}
	applied := in.Flush(q, 5, func(e ecs.Entity) bool { return !busy[e] })
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if in.Len() != 0 {
		t.Errorf("inbox should be empty, has %d", in.Len())
	}
	if q.Contains(es[2]) {
		t.Error("busy entity should not be queued")
	}

	// es[0] was pushed Low first; the later urgent push is deduplicated
	if sizes := q.Sizes(); sizes != [3]int{1, 0, 1} {
		t.Errorf("sizes = %v, want [1 0 1]", sizes)
	}
}

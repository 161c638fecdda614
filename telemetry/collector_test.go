package telemetry

import (
	"testing"

	"github.com/pthm-cable/herd/components"
)

// TestCollectorFlush verifies counters aggregate into a window and reset.
func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10)
	if c.ShouldFlush(9) || !c.ShouldFlush(10) {
		t.Fatal("flush should be due at the window length")
	}

	c.RecordBirth()
	c.RecordDeath(components.CausePredation)
	c.RecordDeath(components.CauseStarvation)
	c.RecordStarts(2)
	c.RecordOutcome(components.StateCompleted)
	c.RecordOutcome(components.StateFailed)
	c.RecordReplans(3)
	for _, l := range []int32{0, 0, 1, 5} {
		c.RecordThink(l)
	}

	s := c.Flush(10, Gauges{
		Population: 7,
		QueueSizes: [3]int{1, 2, 3},
		Hunger:     []float64{10, 20, 30},
	})

	if s.WindowStartTick != 0 || s.WindowEndTick != 10 {
		t.Errorf("window = [%d, %d]", s.WindowStartTick, s.WindowEndTick)
	}
	if s.Births != 1 || s.Deaths != 2 || s.DeathsPredation != 1 || s.DeathsStarvation != 1 {
		t.Errorf("births/deaths = %d/%d", s.Births, s.Deaths)
	}
	if s.ActionsStarted != 2 || s.ActionsCompleted != 1 || s.ActionsFailed != 1 || s.ActionsCancelled != 0 {
		t.Errorf("actions = %+v", s)
	}
	if s.Thinks != 4 || s.ThinkLatencyMean != 1.5 || s.ThinkLatencyMax != 5 {
		t.Errorf("thinks = %d mean %v max %v", s.Thinks, s.ThinkLatencyMean, s.ThinkLatencyMax)
	}
	if s.ForcedReplans != 3 || s.QueueLow != 3 || s.HungerMean != 20 {
		t.Errorf("replans %d queue_low %d hunger_mean %v", s.ForcedReplans, s.QueueLow, s.HungerMean)
	}

	next := c.Flush(20, Gauges{})
	if next.WindowStartTick != 10 || next.Births != 0 || next.Deaths != 0 || next.Thinks != 0 || next.ForcedReplans != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}

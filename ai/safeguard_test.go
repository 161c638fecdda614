package ai

import (
	"errors"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// TestSafeguardSkipsActiveEntities verifies over many sweeps that no
// entity holding an action is ever queued, while idle ones are.
func TestSafeguardSkipsActiveEntities(t *testing.T) {
	r := newRig(t)
	guard := NewSafeguard(r.w, r.queue, config.SafeguardConfig{Interval: 1, IdleThreshold: 5})

	var busy, idle []ecs.Entity
	for i := range 40 {
		e := r.spawn(0, components.Position{X: int32(i % 30), Y: int32(i / 30)})
		if i%2 == 0 {
			r.exec.Commit(e, &Rest{}, 0)
			busy = append(busy, e)
		} else {
			idle = append(idle, e)
		}
	}

	for tick := int32(0); tick < 12; tick++ {
		n, err := guard.Sweep(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		for _, e := range busy {
			if r.queue.Contains(e) {
				t.Fatalf("tick %d: safeguard queued active entity %v", tick, e)
			}
		}
		if tick < 5 && n != 0 {
			t.Errorf("tick %d: queued %d before the idle threshold", tick, n)
		}
		if tick == 5 && n != len(idle) {
			t.Errorf("tick 5: queued %d, want %d", n, len(idle))
		}
		if tick > 5 && n != 0 {
			t.Errorf("tick %d: queued entities twice", tick)
		}
	}

	reqs := r.queue.Drain(12, 100, nil)
	for _, req := range reqs {
		if req.Tier != TierLow || req.Reason != ReasonForcedReplan {
			t.Errorf("request %+v, want low forced replan", req)
		}
	}
	if guard.Replans() != uint64(len(idle)) {
		t.Errorf("replans = %d", guard.Replans())
	}
}

// TestSafeguardInterval verifies sweeps only run on due ticks.
func TestSafeguardInterval(t *testing.T) {
	r := newRig(t)
	r.spawn(0, components.Position{X: 1, Y: 1})
	guard := NewSafeguard(r.w, r.queue, config.SafeguardConfig{Interval: 10, IdleThreshold: 0})

	for _, tt := range []struct {
		tick int32
		want int
	}{{3, 0}, {9, 0}, {10, 1}} {
		if n, _ := guard.Sweep(tt.tick); n != tt.want {
			t.Errorf("tick %d: queued %d, want %d", tt.tick, n, tt.want)
		}
	}
}

// TestEnforce verifies invariant errors panic only in strict mode.
func TestEnforce(t *testing.T) {
	inv := &InvariantError{Rule: RuleSafeguardActive, Tick: 3, Detail: "test"}

	if err := Enforce(inv, false); !errors.Is(err, inv) {
		t.Errorf("lenient Enforce returned %v", err)
	}
	if err := Enforce(ErrNoPath, true); !errors.Is(err, ErrNoPath) {
		t.Errorf("non-invariant error should pass through, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("strict Enforce should panic")
		}
	}()
	Enforce(inv, true)
}

// TestExecutorVerify verifies a clean executor reports no surviving records.
func TestExecutorVerify(t *testing.T) {
	r := newRig(t)
	e := r.spawn(0, components.Position{X: 1, Y: 1})
	r.exec.Commit(e, &Rest{}, 0)
	r.exec.Run(0)
	if err := r.exec.Verify(0); err != nil {
		t.Errorf("Verify: %v", err)
	}

	// Force a terminal record in place to exercise the check
	ecs.NewMap[components.ActiveAction](r.w).Get(e).State = components.StateFailed
	var inv *InvariantError
	if err := r.exec.Verify(1); !errors.As(err, &inv) || inv.Rule != RuleRecordSurvived {
		t.Errorf("Verify = %v, want record_survived_terminal", err)
	}
}

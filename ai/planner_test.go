package ai

import (
	"testing"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/systems"
)

func newPlannerRig(t *testing.T) (*rig, *Planner, *FailureMemory) {
	r := newRig(t)
	mem := NewFailureMemory(r.cfg.Planner.FailureMemoryTicks)
	r.exec.Observe(mem.Record)
	return r, NewPlanner(r.env, r.exec, r.inbox, mem), mem
}

// TestPlannerChoosesByNeed verifies the most pressing feasible need wins.
func TestPlannerChoosesByNeed(t *testing.T) {
	tests := []struct {
		name  string
		needs components.Needs
		want  components.ActionKind
	}{
		{"thirsty", components.Needs{Hunger: 40, Thirst: 90, Energy: 80}, components.ActionDrink},
		{"hungry", components.Needs{Hunger: 70, Thirst: 40, Energy: 80}, components.ActionGraze},
		{"tired", components.Needs{Hunger: 10, Thirst: 10, Energy: 5}, components.ActionRest},
		{"content", components.Needs{Hunger: 10, Thirst: 10, Energy: 90}, components.ActionWander},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, p, _ := newPlannerRig(t)
			r.terrain.Set(components.Position{X: 20, Y: 10}, systems.TerrainWater)
			e := r.spawn(0, components.Position{X: 10, Y: 10})
			*r.env.Needs.Get(e) = tt.needs

			if got := p.Choose(e, 1).Kind(); got != tt.want {
				t.Errorf("Choose = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestPlannerFleesThreat verifies a frightened prey runs away from the predator.
func TestPlannerFleesThreat(t *testing.T) {
	r, p, _ := newPlannerRig(t)
	start := components.Position{X: 15, Y: 15}
	e := r.spawn(0, start)
	threat := components.Position{X: 13, Y: 15}
	*r.env.Fears.Get(e) = components.Fear{Level: 0.7, NearbyPredators: 1, Threat: threat}

	action := p.Choose(e, 1)
	flee, ok := action.(*Flee)
	if !ok {
		t.Fatalf("Choose = %v, want flee", action.Kind())
	}
	if flee.Tile.Chebyshev(threat) <= start.Chebyshev(threat) {
		t.Errorf("flee target %v is not farther from %v", flee.Tile, threat)
	}
	if pathPriority(flee.Kind()) != systems.PathUrgent {
		t.Error("flee paths should be urgent")
	}
}

// TestPlannerHuntsPrey verifies a hungry predator hunts the nearest prey and
// the prey is told it is threatened.
func TestPlannerHuntsPrey(t *testing.T) {
	r, p, _ := newPlannerRig(t)
	fox := r.spawn(2, components.Position{X: 10, Y: 10})
	near := r.spawn(0, components.Position{X: 13, Y: 10})
	r.spawn(0, components.Position{X: 20, Y: 10})
	r.spawn(1, components.Position{X: 11, Y: 10}) // deer: not fox prey
	r.env.Needs.Get(fox).Hunger = 80

	n := p.Process([]ThinkRequest{{Entity: fox, Tier: TierNormal, Reason: ReasonHungerModerate}}, 1)
	if n != 1 {
		t.Fatalf("committed %d, want 1", n)
	}
	rec, _ := r.exec.Record(fox)
	hunt, ok := rec.Actor.(*Hunt)
	if !ok || hunt.Prey != near {
		t.Fatalf("record %+v, want hunt on the nearest rabbit", rec)
	}
	if r.inbox.Len() != 1 {
		t.Errorf("prey should receive a threatened trigger, inbox has %d", r.inbox.Len())
	}
}

// TestPlannerSkipsBusyEntities verifies requests for acting entities are dropped.
func TestPlannerSkipsBusyEntities(t *testing.T) {
	r, p, _ := newPlannerRig(t)
	e := r.spawn(0, components.Position{X: 5, Y: 5})
	r.exec.Commit(e, &Rest{}, 0)

	if n := p.Process([]ThinkRequest{{Entity: e, Reason: ReasonForcedReplan}}, 1); n != 0 {
		t.Errorf("committed %d for a busy entity", n)
	}
	if s := r.exec.Stats(); s.Started != 1 {
		t.Errorf("started = %d, want the original action only", s.Started)
	}
}

// TestFailureMemoryAvoidsTarget verifies a failed drink target is skipped
// until the memory expires.
func TestFailureMemoryAvoidsTarget(t *testing.T) {
	r, p, mem := newPlannerRig(t)
	r.terrain.Set(components.Position{X: 12, Y: 10}, systems.TerrainWater)
	r.terrain.Set(components.Position{X: 2, Y: 10}, systems.TerrainWater)
	e := r.spawn(0, components.Position{X: 10, Y: 10})
	r.env.Needs.Get(e).Thirst = 90

	first := p.Choose(e, 1).(*Drink)
	if first.Tile != (components.Position{X: 11, Y: 9}) {
		t.Fatalf("first choice %v", first.Tile)
	}

	mem.Record(Outcome{Entity: e, Kind: components.ActionDrink, State: components.StateFailed, Action: first, Tick: 1})
	second := p.Choose(e, 2).(*Drink)
	if second.Tile == first.Tile {
		t.Error("failed target chosen again")
	}

	ttl := int32(r.cfg.Planner.FailureMemoryTicks)
	if !mem.AvoidTile(e, components.ActionDrink, first.Tile, ttl) {
		t.Error("memory should still hold before expiry")
	}
	if mem.Prune(1+ttl) != 1 || mem.Len() != 0 {
		t.Error("Prune should drop the expired entry")
	}
}

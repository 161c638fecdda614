package ai

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
)

// threshold is one hysteresis rule over a need value.
type threshold struct {
	flag   uint8
	reason Reason
	level  float32
	rising bool // true: fires at or above level, false: at or below
}

func (th threshold) crossed(v float32) bool {
	if th.rising {
		return v >= th.level
	}
	return v <= th.level
}

// Triggers evaluates need, fear, reproduction and long-idle conditions in
// the stats phase and pushes think triggers to the inbox. Entities holding
// an action are skipped.
type Triggers struct {
	filter  *ecs.Filter4[components.Species, components.Needs, components.Fear, components.ThresholdState]
	actions *ecs.Map[components.ActiveAction]
	idle    *ecs.Map[components.IdleTracker]
	life    *ecs.Map[components.Life]
	dead    *ecs.Map[components.Dead]
	inbox   *Inbox

	rules        []threshold
	fear         float32
	idleInterval int32
	longIdle     []int32
	maturity     []int32

	fired [ReasonSpawned + 1]int
}

// NewTriggers creates the trigger emitters.
func NewTriggers(w *ecs.World, inbox *Inbox, cfg *config.Config) *Triggers {
	tc := cfg.Triggers
	t := &Triggers{
		filter:  ecs.NewFilter4[components.Species, components.Needs, components.Fear, components.ThresholdState](w),
		actions: ecs.NewMap[components.ActiveAction](w),
		idle:    ecs.NewMap[components.IdleTracker](w),
		life:    ecs.NewMap[components.Life](w),
		dead:    ecs.NewMap[components.Dead](w),
		inbox:   inbox,
		// Critical rules first: when both fire in one tick the urgent one wins the dedup
		rules: []threshold{
			{components.FlagHungerCritical, ReasonHungerCritical, float32(tc.HungerCritical), true},
			{components.FlagThirstCritical, ReasonThirstCritical, float32(tc.ThirstCritical), true},
			{components.FlagEnergyCritical, ReasonEnergyCritical, float32(tc.EnergyCritical), false},
			{components.FlagHungerModerate, ReasonHungerModerate, float32(tc.HungerModerate), true},
			{components.FlagThirstModerate, ReasonThirstModerate, float32(tc.ThirstModerate), true},
			{components.FlagEnergyLow, ReasonEnergyLow, float32(tc.EnergyLow), false},
		},
		fear:         float32(tc.FearThreshold),
		idleInterval: int32(max(tc.IdleCheckInterval, 1)),
		longIdle:     cfg.Derived.LongIdle,
		maturity:     make([]int32, len(cfg.Species)),
	}
	for i, sp := range cfg.Species {
		t.maturity[i] = int32(sp.MaturityAge)
	}
	return t
}

func needValue(n *components.Needs, reason Reason) float32 {
	switch reason {
	case ReasonHungerCritical, ReasonHungerModerate:
		return n.Hunger
	case ReasonThirstCritical, ReasonThirstModerate:
		return n.Thirst
	default:
		return n.Energy
	}
}

// Update evaluates every entity and returns the number of triggers pushed.
func (t *Triggers) Update(tick int32) int {
	pushed := 0
	checkIdle := tick%t.idleInterval == 0

	query := t.filter.Query()
	for query.Next() {
		e := query.Entity()
		if t.dead.Has(e) {
			continue
		}
		sp, needs, fear, state := query.Get()
		busy := t.actions.Has(e)

		for _, th := range t.rules {
			v := needValue(needs, th.reason)
			if !th.crossed(v) {
				// Re-arm once the value is back on the safe side
				state.Fired &^= th.flag
				continue
			}
			if busy || state.Fired&th.flag != 0 {
				continue
			}
			state.Fired |= th.flag
			t.push(e, th.reason, tick)
			pushed++
		}
		if busy {
			continue
		}

		if fear.Level > t.fear && fear.NearbyPredators > 0 {
			t.push(e, ReasonFearTriggered, tick)
			pushed++
		}

		if t.life.Has(e) {
			life := t.life.Get(e)
			ready := life.Age >= t.maturity[sp.ID] && life.ReproCooldown == 0
			switch {
			case !ready:
				state.Fired &^= components.FlagReproReady
			case state.Fired&components.FlagReproReady == 0:
				state.Fired |= components.FlagReproReady
				t.push(e, ReasonReproductionReady, tick)
				pushed++
			}
		}

		if checkIdle && t.idle.Has(e) && t.idle.Get(e).IdleFor(tick) >= t.longIdle[sp.ID] {
			t.push(e, ReasonIdle, tick)
			pushed++
		}
	}
	return pushed
}

func (t *Triggers) push(e ecs.Entity, reason Reason, tick int32) {
	t.inbox.Push(e, reason, tick)
	t.fired[reason]++
}

// Fired returns trigger counts per reason.
func (t *Triggers) Fired() [ReasonSpawned + 1]int {
	return t.fired
}

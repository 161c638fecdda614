package ai

import (
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
)

type option struct {
	kind    components.ActionKind
	utility float64
}

// Planner turns drained think requests into committed actions. Choices are
// utility-ordered; an option with no reachable target falls through to the
// next one and resting is always possible.
type Planner struct {
	env    *Env
	exec   *Executor
	inbox  *Inbox
	memory *FailureMemory
	cfg    config.PlannerConfig

	options   []option
	neighbors []ecs.Entity
	committed [components.ActionFlee + 1]int
}

// NewPlanner creates a planner committing through exec.
func NewPlanner(env *Env, exec *Executor, inbox *Inbox, memory *FailureMemory) *Planner {
	return &Planner{
		env:       env,
		exec:      exec,
		inbox:     inbox,
		memory:    memory,
		cfg:       env.Cfg.Planner,
		options:   make([]option, 0, 6),
		neighbors: make([]ecs.Entity, 0, 64),
	}
}

// Process runs one planning pass per request and returns the number of
// actions committed. Requests for dead or busy entities are dropped.
func (p *Planner) Process(reqs []ThinkRequest, tick int32) int {
	n := 0
	for _, req := range reqs {
		if !p.env.Living(req.Entity) || p.exec.Active(req.Entity) {
			continue
		}
		action := p.Choose(req.Entity, tick)
		if err := p.exec.Commit(req.Entity, action, tick); err != nil {
			slog.Warn("commit failed", "entity", req.Entity, "reason", req.Reason, "err", err)
			continue
		}
		p.committed[action.Kind()]++
		if hunt, ok := action.(*Hunt); ok {
			p.inbox.Push(hunt.Prey, ReasonThreatened, tick)
		}
		n++
	}
	return n
}

// Committed returns the number of commits per action kind.
func (p *Planner) Committed() [components.ActionFlee + 1]int {
	return p.committed
}

// Choose picks the best feasible action for e.
func (p *Planner) Choose(e ecs.Entity, tick int32) Action {
	env := p.env
	pos := env.Position(e)
	sp := *env.Species.Get(e)
	needs := *env.Needs.Get(e)

	if env.Fears.Has(e) {
		fear := env.Fears.Get(e)
		if float64(fear.Level) >= p.cfg.FleeFear && fear.NearbyPredators > 0 {
			if dest, ok := FleeTarget(env.Terrain, pos, fear.Threat, int32(env.Cfg.Actions.Flee.Distance)); ok {
				return &Flee{Tile: dest}
			}
		}
	}

	p.options = p.options[:0]
	if float64(needs.Thirst) >= p.cfg.DrinkThreshold {
		p.options = append(p.options, option{components.ActionDrink, float64(needs.Thirst) / systems.NeedMax})
	}
	if float64(needs.Hunger) >= p.cfg.EatThreshold {
		kind := components.ActionGraze
		if sp.Predator {
			kind = components.ActionHunt
		}
		p.options = append(p.options, option{kind, float64(needs.Hunger) / systems.NeedMax})
	}
	if float64(needs.Energy) <= p.cfg.RestThreshold {
		p.options = append(p.options, option{components.ActionRest, 1 - float64(needs.Energy)/systems.NeedMax})
	}
	p.options = append(p.options, option{components.ActionWander, p.cfg.WanderUtility})
	sort.SliceStable(p.options, func(i, j int) bool {
		return p.options[i].utility > p.options[j].utility
	})

	for _, opt := range p.options {
		if action := p.build(e, opt.kind, pos, sp, tick); action != nil {
			return action
		}
	}
	return &Rest{}
}

func (p *Planner) build(e ecs.Entity, kind components.ActionKind, pos components.Position, sp components.Species, tick int32) Action {
	env := p.env
	radius := int32(p.cfg.SearchRadius)

	switch kind {
	case components.ActionDrink:
		if tile, ok := systems.NearestMatch(pos, radius, func(t components.Position) bool {
			return env.Terrain.Drinkable(t) && !p.memory.AvoidTile(e, kind, t, tick)
		}); ok {
			return NewDrink(tile)
		}

	case components.ActionGraze:
		grazeCfg := &env.Cfg.Actions.Graze
		for _, floor := range []float64{grazeCfg.ModerateBiomass, grazeCfg.MinBiomass} {
			if tile, ok := systems.NearestMatch(pos, radius, func(t components.Position) bool {
				return env.Terrain.Walkable(t) &&
					float64(env.Terrain.Biomass(t)) >= floor &&
					!p.memory.AvoidTile(e, kind, t, tick)
			}); ok {
				return NewGraze(tile)
			}
		}

	case components.ActionHunt:
		if prey, ok := p.nearestPrey(e, pos, sp, tick); ok {
			return NewHunt(prey)
		}

	case components.ActionRest:
		return &Rest{}

	case components.ActionWander:
		wr := int32(env.Cfg.Species[sp.ID].WanderRadius)
		if tile, ok := systems.RandomWalkable(env.Terrain, pos, wr, env.Rand.Intn); ok &&
			!p.memory.AvoidTile(e, kind, tile, tick) {
			return &Wander{Tile: tile}
		}
	}
	return nil
}

// nearestPrey finds the closest living prey within the predator's sense radius.
func (p *Planner) nearestPrey(e ecs.Entity, pos components.Position, sp components.Species, tick int32) (ecs.Entity, bool) {
	env := p.env
	radius := int32(env.Cfg.Species[sp.ID].SenseRadius)
	mask := env.Cfg.Derived.PreyMask[sp.ID]

	p.neighbors = env.Spatial.QueryRadius(p.neighbors[:0], pos, radius)

	var best ecs.Entity
	bestDist := int64(-1)
	for _, n := range p.neighbors {
		if n == e || !env.Living(n) {
			continue
		}
		if mask&(1<<env.Species.Get(n).ID) == 0 || p.memory.AvoidPrey(e, n, tick) {
			continue
		}
		npos := env.Position(n)
		if !systems.Within(pos, npos, radius) {
			continue
		}
		if d := pos.DistSq(npos); bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, bestDist >= 0
}

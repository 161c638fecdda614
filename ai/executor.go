package ai

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/systems"
)

var errNotAction = errors.New("record holds no executable action")

// QueueStats counts action outcomes since creation.
type QueueStats struct {
	Started   int
	Completed int
	Failed    int
	Cancelled int
}

// InFlight returns the number of started actions not yet retired.
func (s QueueStats) InFlight() int {
	return s.Started - s.Completed - s.Failed - s.Cancelled
}

// LogValue implements slog.LogValuer.
func (s QueueStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("started", s.Started),
		slog.Int("completed", s.Completed),
		slog.Int("failed", s.Failed),
		slog.Int("cancelled", s.Cancelled),
	)
}

// Outcome describes a retired action.
type Outcome struct {
	Entity      ecs.Entity
	Kind        components.ActionKind
	State       components.ActionState
	Err         error
	Action      Action
	StartedTick int32
	Tick        int32
	Retries     int32
	Repaths     int32
	Requests    int32
}

type recentOutcome struct {
	state components.ActionState
	tick  int32
}

// Executor owns every ActiveAction record and advances it once per tick.
type Executor struct {
	env    *Env
	bridge *systems.PathBridge
	inbox  *Inbox
	cfg    config.ActionsConfig

	actions *ecs.Map[components.ActiveAction]
	paths   *ecs.Map[components.MovePath]
	idle    *ecs.Map[components.IdleTracker]
	filter  *ecs.Filter1[components.ActiveAction]

	stats     QueueStats
	recent    map[ecs.Entity]recentOutcome
	observers []func(Outcome)
	entities  []ecs.Entity
}

// NewExecutor creates an executor. Terminal outcomes are reported to inbox
// as think triggers.
func NewExecutor(env *Env, bridge *systems.PathBridge, inbox *Inbox) *Executor {
	w := env.World
	return &Executor{
		env:      env,
		bridge:   bridge,
		inbox:    inbox,
		cfg:      env.Cfg.Actions,
		actions:  ecs.NewMap[components.ActiveAction](w),
		paths:    ecs.NewMap[components.MovePath](w),
		idle:     ecs.NewMap[components.IdleTracker](w),
		filter:   ecs.NewFilter1[components.ActiveAction](w),
		recent:   make(map[ecs.Entity]recentOutcome, 256),
		entities: make([]ecs.Entity, 0, 256),
	}
}

// Observe registers fn to be called for every retired action.
func (x *Executor) Observe(fn func(Outcome)) {
	x.observers = append(x.observers, fn)
}

// Commit creates the action record for e in the Planning state.
func (x *Executor) Commit(e ecs.Entity, action Action, tick int32) error {
	if x.actions.Has(e) {
		return fmt.Errorf("commit %s: %w", action.Kind(), ErrActionActive)
	}
	x.actions.Add(e, &components.ActiveAction{
		Kind:        action.Kind(),
		State:       components.StatePlanning,
		StartedTick: tick,
		Actor:       action,
	})
	x.stats.Started++
	return nil
}

// Active reports whether e holds an action record.
func (x *Executor) Active(e ecs.Entity) bool {
	return x.actions.Has(e)
}

// Record returns a copy of e's action record.
func (x *Executor) Record(e ecs.Entity) (components.ActiveAction, bool) {
	if !x.actions.Has(e) {
		return components.ActiveAction{}, false
	}
	return *x.actions.Get(e), true
}

// Stats returns outcome counters.
func (x *Executor) Stats() QueueStats {
	return x.stats
}

// RecentlyCompleted reports whether e completed an action within window
// ticks of tick.
func (x *Executor) RecentlyCompleted(e ecs.Entity, tick, window int32) bool {
	r, ok := x.recent[e]
	return ok && r.state == components.StateCompleted && tick-r.tick <= window
}

// Forget drops the per-entity history kept for e. Called when e is removed.
func (x *Executor) Forget(e ecs.Entity) {
	delete(x.recent, e)
}

// Run advances every action record by one tick.
func (x *Executor) Run(tick int32) {
	// First pass: collect (path markers and MovePath are structural changes)
	x.entities = x.entities[:0]
	query := x.filter.Query()
	for query.Next() {
		x.entities = append(x.entities, query.Entity())
	}

	// Second pass: advance
	for _, e := range x.entities {
		// A completed hunt may have cancelled a later entity's record
		if !x.env.World.Alive(e) || !x.actions.Has(e) {
			continue
		}
		x.advance(e, tick)
	}
}

// Cancel retires e's action as Cancelled and abandons any outstanding path
// request. It returns false when e has no action.
func (x *Executor) Cancel(e ecs.Entity, tick int32, reason error) bool {
	if !x.actions.Has(e) {
		return false
	}
	rec := *x.actions.Get(e)
	x.retire(e, &rec, components.StateCancelled, reason, tick)
	return true
}

// Verify reports a record left in a terminal state.
func (x *Executor) Verify(tick int32) error {
	query := x.filter.Query()
	for query.Next() {
		if rec := query.Get(); rec.State.Terminal() {
			e := query.Entity()
			query.Close()
			return &InvariantError{
				Rule:   RuleRecordSurvived,
				Entity: e,
				Tick:   tick,
				Detail: fmt.Sprintf("%s record in state %s", rec.Kind, rec.State),
			}
		}
	}
	return nil
}

// advance works on a copy of the record; adding or removing components on
// e moves it between archetypes and invalidates pointers into storage.
func (x *Executor) advance(e ecs.Entity, tick int32) {
	rec := *x.actions.Get(e)
	action, ok := rec.Actor.(Action)
	if !ok {
		x.retire(e, &rec, components.StateFailed, errNotAction, tick)
		return
	}
	if err := action.Check(x.env, e); err != nil {
		x.retire(e, &rec, components.StateFailed, err, tick)
		return
	}
	if _, ok := action.(calm); ok && rec.State != components.StateExecuting && x.env.spooked(e) {
		x.retire(e, &rec, components.StateFailed, ErrSpooked, tick)
		return
	}

	switch rec.State {
	case components.StatePlanning:
		x.plan(e, &rec, action, tick)
	case components.StateWaitingForPath:
		x.wait(e, &rec, action, tick)
	case components.StateMoving:
		x.move(e, &rec, action, tick)
	case components.StateExecuting:
		x.execute(e, &rec, action, tick)
	}

	if !rec.State.Terminal() {
		*x.actions.Get(e) = rec
	}
}

func (x *Executor) plan(e ecs.Entity, rec *components.ActiveAction, action Action, tick int32) {
	dest, travel, err := action.Destination(x.env, e)
	if err != nil {
		x.retire(e, rec, components.StateFailed, err, tick)
		return
	}
	pos := x.env.Position(e)
	if !travel || pos.Chebyshev(dest) <= action.Reach() {
		x.enter(e, rec, action, tick)
		return
	}
	x.request(e, rec, action, pos, dest, tick)
}

func (x *Executor) request(e ecs.Entity, rec *components.ActiveAction, action Action, pos, dest components.Position, tick int32) {
	if _, err := x.bridge.Submit(e, pos, dest, pathPriority(action.Kind()), tick); err != nil {
		x.retire(e, rec, components.StateFailed, err, tick)
		return
	}
	rec.State = components.StateWaitingForPath
	rec.Dest = dest
	rec.WaitingSince = tick
	rec.Requests++
}

func (x *Executor) wait(e ecs.Entity, rec *components.ActiveAction, action Action, tick int32) {
	resp := x.bridge.Poll(e)
	switch resp.Outcome {
	case systems.OutcomeReady:
		if len(resp.Path) == 0 {
			x.retry(e, rec, action, ErrNoPath, tick)
			return
		}
		mp := components.MovePath{Waypoints: resp.Path}
		if x.paths.Has(e) {
			*x.paths.Get(e) = mp
		} else {
			x.paths.Add(e, &mp)
		}
		rec.State = components.StateMoving
		rec.Progress = 0

	case systems.OutcomeFailed:
		x.retry(e, rec, action, ErrNoPath, tick)

	case systems.OutcomePending:
		if tick-rec.WaitingSince >= int32(x.cfg.MaxPathWait) {
			x.bridge.Abandon(e)
			x.retry(e, rec, action, ErrPathTimeout, tick)
		}

	case systems.OutcomeNone:
		// The request vanished without an answer; treat it as a failed attempt
		x.retry(e, rec, action, ErrNoPath, tick)
	}
}

// retry counts a failed path attempt and resubmits, or fails the action
// once the retry budget is spent.
func (x *Executor) retry(e ecs.Entity, rec *components.ActiveAction, action Action, cause error, tick int32) {
	rec.Retries++
	if rec.Retries > int32(x.cfg.MaxPathRetries) {
		x.retire(e, rec, components.StateFailed, cause, tick)
		return
	}
	dest, _, err := action.Destination(x.env, e)
	if err != nil {
		x.retire(e, rec, components.StateFailed, err, tick)
		return
	}
	x.request(e, rec, action, x.env.Position(e), dest, tick)
}

func (x *Executor) move(e ecs.Entity, rec *components.ActiveAction, action Action, tick int32) {
	dest, _, err := action.Destination(x.env, e)
	if err != nil {
		x.retire(e, rec, components.StateFailed, err, tick)
		return
	}
	if x.env.Position(e).Chebyshev(dest) <= action.Reach() {
		if x.paths.Has(e) {
			x.paths.Remove(e)
		}
		x.enter(e, rec, action, tick)
		return
	}
	if !x.paths.Has(e) {
		x.repath(e, rec, dest, tick)
		return
	}

	path := x.paths.Get(e)
	switch {
	case path.Done():
		x.repath(e, rec, dest, tick)
	case dest.Chebyshev(rec.Dest) > int32(x.cfg.RepathDistance):
		x.repath(e, rec, dest, tick)
	default:
		rec.Progress = int32(path.Index)
	}
}

// repath replaces the current path with a fresh request toward dest.
func (x *Executor) repath(e ecs.Entity, rec *components.ActiveAction, dest components.Position, tick int32) {
	rec.Repaths++
	if rec.Repaths > int32(x.cfg.MaxRepaths) {
		x.retire(e, rec, components.StateFailed, ErrUnreachable, tick)
		return
	}
	if x.paths.Has(e) {
		x.paths.Remove(e)
	}
	action := rec.Actor.(Action)
	x.request(e, rec, action, x.env.Position(e), dest, tick)
}

// enter moves the record to Executing. Zero-duration actions complete on entry.
func (x *Executor) enter(e ecs.Entity, rec *components.ActiveAction, action Action, tick int32) {
	rec.State = components.StateExecuting
	rec.Progress = 0
	rec.Duration = action.Duration(x.env, e)
	if rec.Duration <= 0 {
		action.Complete(x.env, e)
		x.retire(e, rec, components.StateCompleted, nil, tick)
	}
}

func (x *Executor) execute(e ecs.Entity, rec *components.ActiveAction, action Action, tick int32) {
	done, err := action.Step(x.env, e)
	if err != nil {
		x.retire(e, rec, components.StateFailed, err, tick)
		return
	}
	rec.Progress++
	if done || rec.Progress >= rec.Duration {
		action.Complete(x.env, e)
		x.retire(e, rec, components.StateCompleted, nil, tick)
	}
}

// retire applies the terminal transition: the record and any path state are
// removed in the same call.
func (x *Executor) retire(e ecs.Entity, rec *components.ActiveAction, state components.ActionState, cause error, tick int32) {
	rec.State = state
	x.bridge.Abandon(e)
	if x.paths.Has(e) {
		x.paths.Remove(e)
	}
	x.actions.Remove(e)

	if x.idle.Has(e) {
		t := x.idle.Get(e)
		t.IdleSince = tick
		if state == components.StateCompleted {
			t.Completed++
		}
	}
	x.recent[e] = recentOutcome{state: state, tick: tick}

	switch state {
	case components.StateCompleted:
		x.stats.Completed++
		x.inbox.Push(e, ReasonActionCompleted, tick)
	case components.StateFailed:
		x.stats.Failed++
		x.inbox.Push(e, ReasonActionFailed, tick)
	case components.StateCancelled:
		x.stats.Cancelled++
	}

	if len(x.observers) > 0 {
		action, _ := rec.Actor.(Action)
		out := Outcome{
			Entity:      e,
			Kind:        rec.Kind,
			State:       state,
			Err:         cause,
			Action:      action,
			StartedTick: rec.StartedTick,
			Tick:        tick,
			Retries:     rec.Retries,
			Repaths:     rec.Repaths,
			Requests:    rec.Requests,
		}
		for _, fn := range x.observers {
			fn(out)
		}
	}
}

package components

// ActionKind identifies an action variant.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionGraze
	ActionDrink
	ActionHunt
	ActionWander
	ActionRest
	ActionFlee
)

func (k ActionKind) String() string {
	switch k {
	case ActionGraze:
		return "graze"
	case ActionDrink:
		return "drink"
	case ActionHunt:
		return "hunt"
	case ActionWander:
		return "wander"
	case ActionRest:
		return "rest"
	case ActionFlee:
		return "flee"
	}
	return "none"
}

// ActionState is the lifecycle state of an ActiveAction.
type ActionState uint8

const (
	StatePlanning ActionState = iota
	StateWaitingForPath
	StateMoving
	StateExecuting
	StateCompleted
	StateFailed
	StateCancelled
)

func (s ActionState) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateWaitingForPath:
		return "waiting_for_path"
	case StateMoving:
		return "moving"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the state retires the record.
func (s ActionState) Terminal() bool {
	return s >= StateCompleted
}

// Actor is the minimal view of an action value stored on a record.
type Actor interface {
	Kind() ActionKind
}

// ActiveAction is the record of the action an entity is committed to.
// Its presence means the entity is not idle.
type ActiveAction struct {
	Kind        ActionKind
	State       ActionState
	Progress    int32 // Executing ticks done, or waypoints walked while moving
	StartedTick int32

	Actor        Actor
	Duration     int32    // Resolved on entry to Executing
	Dest         Position // Destination the current path was requested for
	Retries      int32    // Failed path attempts
	Repaths      int32    // Re-paths while moving
	Requests     int32    // Path requests issued
	WaitingSince int32    // Tick the outstanding request was issued
}

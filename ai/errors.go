package ai

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// ErrActionActive is returned by Commit when the entity already holds an action.
var ErrActionActive = errors.New("entity already has an active action")

// Action failure outcomes. They are recorded on the record and counted,
// never returned out of the tick loop.
var (
	ErrNoPath           = errors.New("no path to destination")
	ErrPathTimeout      = errors.New("path request timed out")
	ErrTargetGone       = errors.New("target no longer exists")
	ErrResourceDepleted = errors.New("resource depleted")
	ErrUnreachable      = errors.New("destination unreachable")
	ErrSpooked          = errors.New("interrupted by fear")
	ErrNeedsCritical    = errors.New("own needs became critical")
)

// InvariantError reports an internal-consistency failure: state that the
// scheduler and executor must never produce.
type InvariantError struct {
	Rule   string
	Entity ecs.Entity
	Tick   int32
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated for entity %v at tick %d: %s", e.Rule, e.Entity, e.Tick, e.Detail)
}

// Invariant rule names.
const (
	RuleSafeguardActive = "safeguard_selected_active"
	RuleRecordSurvived  = "record_survived_terminal"
	RuleUnreadMarker    = "unread_path_marker"
)

// Enforce panics with err when strict is set and err is an invariant
// failure. Otherwise it returns err unchanged.
func Enforce(err error, strict bool) error {
	var inv *InvariantError
	if strict && errors.As(err, &inv) {
		panic(inv)
	}
	return err
}

// Package components defines ECS components for the simulation.
package components

// Position is an entity's tile coordinate. Tiles are the unit of movement,
// pathfinding and spatial bucketing.
type Position struct {
	X, Y int32
}

// Add returns p offset by (dx, dy).
func (p Position) Add(dx, dy int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Chebyshev returns the king-move distance between two tiles.
func (p Position) Chebyshev(o Position) int32 {
	return max(abs32(p.X-o.X), abs32(p.Y-o.Y))
}

// DistSq returns the squared Euclidean distance between two tiles.
func (p Position) DistSq(o Position) int64 {
	dx := int64(p.X - o.X)
	dy := int64(p.Y - o.Y)
	return dx*dx + dy*dy
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Species identifies which species table row an entity uses.
type Species struct {
	ID       uint8
	Predator bool
}

// Needs holds the stat levels read by the trigger emitters.
// Hunger and thirst grow toward 100; energy drains toward 0.
type Needs struct {
	Hunger float32
	Thirst float32
	Energy float32
}

// Fear holds the perceived threat level in [0, 1].
type Fear struct {
	Level           float32
	NearbyPredators int32
	Threat          Position // Nearest predator seen this tick
}

// Life holds age and reproduction timers.
type Life struct {
	Age           int32
	ReproCooldown int32
	Generation    int32
}

// DeathCause records why an entity died.
type DeathCause uint8

const (
	CauseStarvation DeathCause = iota
	CauseDehydration
	CauseOldAge
	CausePredation
)

func (c DeathCause) String() string {
	switch c {
	case CauseStarvation:
		return "starvation"
	case CauseDehydration:
		return "dehydration"
	case CauseOldAge:
		return "old_age"
	case CausePredation:
		return "predation"
	}
	return "unknown"
}

// Dead marks an entity for removal in the cleanup phase.
type Dead struct {
	Cause DeathCause
	Tick  int32
}

// IdleTracker records when the entity last finished an action.
type IdleTracker struct {
	IdleSince int32 // Tick the entity last became idle
	Completed int32 // Actions completed over the lifetime
}

// IdleFor returns the number of ticks the entity has been idle at tick.
func (t IdleTracker) IdleFor(tick int32) int32 {
	return tick - t.IdleSince
}

// Threshold flags for ThresholdState.
const (
	FlagHungerModerate uint8 = 1 << iota
	FlagHungerCritical
	FlagThirstModerate
	FlagThirstCritical
	FlagEnergyLow
	FlagEnergyCritical
	FlagReproReady
)

// ThresholdState remembers which need thresholds have already fired so each
// crossing triggers once until the value falls back below it.
type ThresholdState struct {
	Fired uint8
}

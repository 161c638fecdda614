package components

// PathHandle identifies one path request.
type PathHandle uint64

// PathRequested marks an entity with an outstanding path request.
type PathRequested struct {
	Handle PathHandle
	Origin Position
	Dest   Position
	Tick   int32
}

// PathReady carries a computed path. Read once, then removed.
type PathReady struct {
	Handle PathHandle
	Path   []Position
	Tick   int32
}

// PathFailed reports that no path was found. Read once, then removed.
type PathFailed struct {
	Handle PathHandle
	Reason string
	Tick   int32
}

// MovePath is the path an entity is walking. Waypoints[0] is the origin.
type MovePath struct {
	Waypoints []Position
	Index     int     // Index of the waypoint the entity stands on
	Carry     float32 // Fractional tiles carried to the next tick
}

// Done reports whether the last waypoint has been reached.
func (m *MovePath) Done() bool {
	return m.Index >= len(m.Waypoints)-1
}

// End returns the final waypoint.
func (m *MovePath) End() Position {
	return m.Waypoints[len(m.Waypoints)-1]
}

package systems

import (
	"errors"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// ErrRequestOutstanding is returned when an entity already has a path request in flight.
var ErrRequestOutstanding = errors.New("path request already outstanding")

// PathPriority orders queued path requests.
type PathPriority uint8

const (
	PathUrgent PathPriority = iota // Fleeing
	PathNormal                     // Food, water, prey
	PathLazy                       // Wandering
	numPathPriorities
)

func (p PathPriority) String() string {
	switch p {
	case PathUrgent:
		return "urgent"
	case PathNormal:
		return "normal"
	case PathLazy:
		return "lazy"
	}
	return "unknown"
}

// PathRequest is one queued search.
type PathRequest struct {
	Handle   components.PathHandle
	Entity   ecs.Entity
	Origin   components.Position
	Dest     components.Position
	Priority PathPriority
	Tick     int32
}

// PathQueue holds requests in per-priority FIFOs.
type PathQueue struct {
	tiers [numPathPriorities][]PathRequest
}

// Push appends req to its priority's FIFO.
func (q *PathQueue) Push(req PathRequest) {
	p := min(req.Priority, numPathPriorities-1)
	q.tiers[p] = append(q.tiers[p], req)
}

// Pop removes the oldest request of the highest non-empty priority.
func (q *PathQueue) Pop() (PathRequest, bool) {
	for p := range q.tiers {
		if len(q.tiers[p]) > 0 {
			req := q.tiers[p][0]
			q.tiers[p][0] = PathRequest{}
			q.tiers[p] = q.tiers[p][1:]
			return req, true
		}
	}
	return PathRequest{}, false
}

// Len returns the total number of queued requests.
func (q *PathQueue) Len() int {
	n := 0
	for p := range q.tiers {
		n += len(q.tiers[p])
	}
	return n
}

// Sizes returns the queue length per priority.
func (q *PathQueue) Sizes() [3]int {
	return [3]int{len(q.tiers[PathUrgent]), len(q.tiers[PathNormal]), len(q.tiers[PathLazy])}
}

// PathOutcome is what a poll observed.
type PathOutcome uint8

const (
	OutcomeNone    PathOutcome = iota // No request and no marker
	OutcomePending                    // Request outstanding, no answer yet
	OutcomeReady                      // PathReady consumed
	OutcomeFailed                     // PathFailed consumed
)

// PathResponse is the result of Poll.
type PathResponse struct {
	Outcome PathOutcome
	Handle  components.PathHandle
	Path    []components.Position
	Reason  string
}

// PathBridgeStats counts bridge traffic since creation.
type PathBridgeStats struct {
	Submitted int
	Ready     int
	Failed    int
	Consumed  int
	Abandoned int
	Discarded int // Late or mismatched responses dropped without effect
	Stale     int // Markers swept from entities no longer waiting
}

// inflight tracks a submitted handle until its response is applied or dropped.
type inflight struct {
	entity    ecs.Entity
	abandoned bool
}

// PathBridge is the per-entity mailbox between actions and the path search.
// A request is a PathRequested marker; the answer replaces it with exactly
// one PathReady or PathFailed marker, which Poll reads and removes.
type PathBridge struct {
	world     *ecs.World
	requested *ecs.Map[components.PathRequested]
	ready     *ecs.Map[components.PathReady]
	failed    *ecs.Map[components.PathFailed]

	readyFilter  *ecs.Filter1[components.PathReady]
	failedFilter *ecs.Filter1[components.PathFailed]

	queue    PathQueue
	inflight map[components.PathHandle]inflight
	next     components.PathHandle
	stats    PathBridgeStats

	scratch []ecs.Entity
}

// NewPathBridge creates a bridge over the world's marker components.
func NewPathBridge(w *ecs.World) *PathBridge {
	return &PathBridge{
		world:        w,
		requested:    ecs.NewMap[components.PathRequested](w),
		ready:        ecs.NewMap[components.PathReady](w),
		failed:       ecs.NewMap[components.PathFailed](w),
		readyFilter:  ecs.NewFilter1[components.PathReady](w),
		failedFilter: ecs.NewFilter1[components.PathFailed](w),
		inflight:     make(map[components.PathHandle]inflight, 64),
	}
}

// Submit issues a path request for e. At most one request may be outstanding
// per entity; a second Submit returns ErrRequestOutstanding.
func (b *PathBridge) Submit(e ecs.Entity, origin, dest components.Position, priority PathPriority, tick int32) (components.PathHandle, error) {
	if b.requested.Has(e) {
		return 0, ErrRequestOutstanding
	}
	// An unread answer to an earlier request is superseded
	if b.dropMarkers(e) {
		b.stats.Stale++
	}

	b.next++
	h := b.next
	b.requested.Add(e, &components.PathRequested{Handle: h, Origin: origin, Dest: dest, Tick: tick})
	b.inflight[h] = inflight{entity: e}
	b.queue.Push(PathRequest{
		Handle:   h,
		Entity:   e,
		Origin:   origin,
		Dest:     dest,
		Priority: priority,
		Tick:     tick,
	})
	b.stats.Submitted++
	return h, nil
}

// Next pops the next live request for the search subsystem. Abandoned
// requests are dropped on the way.
func (b *PathBridge) Next() (PathRequest, bool) {
	for {
		req, ok := b.queue.Pop()
		if !ok {
			return PathRequest{}, false
		}
		if f, live := b.inflight[req.Handle]; live && !f.abandoned {
			return req, true
		}
		delete(b.inflight, req.Handle)
		b.stats.Discarded++
	}
}

// Resolve delivers the answer for handle. A nil err attaches PathReady with
// path; otherwise PathFailed. Answers for abandoned or unknown handles, or
// for entities that no longer hold the matching request, are discarded and
// Resolve returns false.
func (b *PathBridge) Resolve(h components.PathHandle, path []components.Position, err error, tick int32) bool {
	f, ok := b.inflight[h]
	delete(b.inflight, h)
	if !ok || f.abandoned {
		b.stats.Discarded++
		return false
	}

	e := f.entity
	if !b.world.Alive(e) || !b.requested.Has(e) || b.requested.Get(e).Handle != h {
		b.stats.Discarded++
		return false
	}
	b.requested.Remove(e)

	if err != nil {
		b.failed.Add(e, &components.PathFailed{Handle: h, Reason: err.Error(), Tick: tick})
		b.stats.Failed++
	} else {
		b.ready.Add(e, &components.PathReady{Handle: h, Path: path, Tick: tick})
		b.stats.Ready++
	}
	return true
}

// Poll reads the entity's path slot. A Ready or Failed marker is removed as
// it is returned, so each answer is observed exactly once.
func (b *PathBridge) Poll(e ecs.Entity) PathResponse {
	if b.ready.Has(e) {
		m := b.ready.Get(e)
		resp := PathResponse{Outcome: OutcomeReady, Handle: m.Handle, Path: m.Path}
		b.ready.Remove(e)
		b.stats.Consumed++
		return resp
	}
	if b.failed.Has(e) {
		m := b.failed.Get(e)
		resp := PathResponse{Outcome: OutcomeFailed, Handle: m.Handle, Reason: m.Reason}
		b.failed.Remove(e)
		b.stats.Consumed++
		return resp
	}
	if b.requested.Has(e) {
		return PathResponse{Outcome: OutcomePending, Handle: b.requested.Get(e).Handle}
	}
	return PathResponse{Outcome: OutcomeNone}
}

// Outstanding reports whether e has a request in flight.
func (b *PathBridge) Outstanding(e ecs.Entity) bool {
	return b.requested.Has(e)
}

// Abandon cancels e's outstanding request and drops any unread answer.
// A response that arrives later for the abandoned handle is discarded.
func (b *PathBridge) Abandon(e ecs.Entity) bool {
	abandoned := false
	if b.requested.Has(e) {
		h := b.requested.Get(e).Handle
		if f, ok := b.inflight[h]; ok {
			f.abandoned = true
			b.inflight[h] = f
		}
		b.requested.Remove(e)
		b.stats.Abandoned++
		abandoned = true
	}
	if b.dropMarkers(e) {
		abandoned = true
	}
	return abandoned
}

func (b *PathBridge) dropMarkers(e ecs.Entity) bool {
	dropped := false
	if b.ready.Has(e) {
		b.ready.Remove(e)
		dropped = true
	}
	if b.failed.Has(e) {
		b.failed.Remove(e)
		dropped = true
	}
	return dropped
}

// Sweep checks every answer marker at the end of a tick. Markers on entities
// that are no longer waiting for a path are stale and dropped. Markers older
// than tick on waiting entities were skipped by their reader; they are left
// in place and counted as violations.
func (b *PathBridge) Sweep(tick int32, waiting func(ecs.Entity) bool) (stale, violations int) {
	b.scratch = b.scratch[:0]

	// First pass: collect (no structural changes during queries)
	rq := b.readyFilter.Query()
	for rq.Next() {
		e := rq.Entity()
		if !waiting(e) {
			b.scratch = append(b.scratch, e)
		} else if rq.Get().Tick < tick {
			violations++
		}
	}
	fq := b.failedFilter.Query()
	for fq.Next() {
		e := fq.Entity()
		if !waiting(e) {
			b.scratch = append(b.scratch, e)
		} else if fq.Get().Tick < tick {
			violations++
		}
	}

	// Second pass: drop stale markers
	for _, e := range b.scratch {
		if b.dropMarkers(e) {
			stale++
		}
	}
	b.stats.Stale += stale
	return stale, violations
}

// Queued returns the number of requests waiting for the search subsystem.
func (b *PathBridge) Queued() int {
	return b.queue.Len()
}

// QueueSizes returns queued requests per priority.
func (b *PathBridge) QueueSizes() [3]int {
	return b.queue.Sizes()
}

// Stats returns traffic counters.
func (b *PathBridge) Stats() PathBridgeStats {
	return b.stats
}

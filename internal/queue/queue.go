package queue

import (
	"context"
	"sync"

	"github.com/osmike/strokes/internal/domain"
	"github.com/osmike/strokes/internal/stroke"

	"go.uber.org/zap"
)

// Config holds the collaborators of a Queue.
type Config struct {
	// LevelOfDetail > 0 creates a preview twin for every strategy that can be cloned.
	LevelOfDetail int

	// Logger receives lifecycle logs; nil disables logging.
	Logger *zap.Logger

	// Monitoring receives a snapshot after every completed job and state change.
	Monitoring domain.Monitoring

	// Hooks receives stroke lifecycle notifications.
	Hooks domain.Hooks

	// Wake is called, without the queue lock held, whenever new work may have become eligible.
	Wake func()
}

// slot is one entry of the stroke table. gen is bumped every time the slot
// is reused, which invalidates stale StrokeIDs.
type slot struct {
	gen    uint32
	stroke *stroke.Stroke
}

// Queue holds the live strokes in arrival order and decides which job may
// run next.
//
// All state is guarded by a single mutex, which makes every "next eligible
// job" decision linearizable. Jobs refer back to their stroke by StrokeID,
// never by pointer, so a retired stroke cannot be reached through a stale job.
type Queue struct {
	mu sync.Mutex

	ctx   context.Context
	lod   int
	log   *zap.Logger
	mon   domain.Monitoring
	hooks domain.Hooks
	wake  func()

	slots   []slot
	free    []uint32
	strokes []*stroke.Stroke

	// running counts dispatched stroke jobs that have not completed.
	running int
	closed  bool
}

// New creates an empty queue. Strokes created by the queue derive their
// contexts from ctx.
func New(ctx context.Context, cfg Config) *Queue {
	q := &Queue{
		ctx:   ctx,
		lod:   cfg.LevelOfDetail,
		log:   cfg.Logger,
		mon:   cfg.Monitoring,
		hooks: cfg.Hooks,
		wake:  cfg.Wake,
	}
	if q.log == nil {
		q.log = zap.NewNop()
	}
	if q.wake == nil {
		q.wake = func() {}
	}
	return q
}

// alloc reserves a slot in the stroke table and returns its new ID.
func (q *Queue) alloc() domain.StrokeID {
	if n := len(q.free); n > 0 {
		idx := q.free[n-1]
		q.free = q.free[:n-1]
		q.slots[idx].gen++
		return domain.StrokeID{Slot: idx, Gen: q.slots[idx].gen}
	}
	q.slots = append(q.slots, slot{gen: 1})
	return domain.StrokeID{Slot: uint32(len(q.slots) - 1), Gen: 1}
}

// release tombstones the slot of a retired stroke so it can be reused.
func (q *Queue) release(id domain.StrokeID) {
	if int(id.Slot) >= len(q.slots) || q.slots[id.Slot].gen != id.Gen {
		return
	}
	q.slots[id.Slot].stroke = nil
	q.free = append(q.free, id.Slot)
}

// lookupLocked resolves a StrokeID, returning nil for unknown or retired strokes.
func (q *Queue) lookupLocked(id domain.StrokeID) *stroke.Stroke {
	if id.IsZero() || int(id.Slot) >= len(q.slots) {
		return nil
	}
	sl := q.slots[id.Slot]
	if sl.gen != id.Gen {
		return nil
	}
	return sl.stroke
}

// headLocked returns the oldest stroke that is not suspended.
func (q *Queue) headLocked() *stroke.Stroke {
	for _, s := range q.strokes {
		if !s.Suspended() {
			return s
		}
	}
	return nil
}

// activeExclusiveLocked returns the exclusive stroke that started running, if any.
func (q *Queue) activeExclusiveLocked() *stroke.Stroke {
	for _, s := range q.strokes {
		if s.Exclusive() && s.Started() {
			return s
		}
	}
	return nil
}

// blockedLocked reports whether s waits for reasons outside its own job list:
// suspension or exclusivity.
func (q *Queue) blockedLocked(s *stroke.Stroke) bool {
	if s.Suspended() {
		return true
	}
	if active := q.activeExclusiveLocked(); active != nil && active != s && !s.Ended() {
		return true
	}
	for _, o := range q.strokes {
		if o == s {
			break
		}
		if o.Exclusive() && !o.Started() {
			return true
		}
	}
	return s.Exclusive() && !s.Started() && (q.headLocked() != s || q.running > 0)
}

// StrokeCount returns the number of live strokes, preview twins included.
func (q *Queue) StrokeCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.strokes)
}

// StrokeInfo returns a snapshot of a live stroke.
func (q *Queue) StrokeInfo(id domain.StrokeID) (domain.StateDTO, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, err := q.getLocked(id)
	if err != nil {
		return domain.StateDTO{}, err
	}
	return s.Snapshot(q.blockedLocked(s)), nil
}

// Empty reports whether no stroke is queued and no stroke job is running.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.strokes) == 0 && q.running == 0
}

// Running returns the number of stroke jobs currently executing.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// NeedsExclusiveAccess reports whether an exclusive stroke is running or is
// waiting at the head of the queue for the workers to drain. Update jobs are
// held while it returns true.
func (q *Queue) NeedsExclusiveAccess() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.activeExclusiveLocked() != nil {
		return true
	}
	head := q.headLocked()
	return head != nil && head.Exclusive() && head.Pending() > 0
}

// BalancingRatio returns the stroke/update ratio requested by the head
// stroke, or def if it does not override it.
func (q *Queue) BalancingRatio(def float64) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if head := q.headLocked(); head != nil {
		if r := head.Policy().BalancingRatioOverride; r > 0 {
			return r
		}
	}
	return def
}

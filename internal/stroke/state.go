package stroke

import (
	"time"

	"github.com/osmike/strokes/internal/domain"
)

// state represents the lifecycle flags and counters of a stroke.
//
// The status of a stroke is derived from these flags instead of being stored,
// which keeps combinations such as "ended while suspended" representable.
// state is not synchronized; the queue lock protects it.
type state struct {
	initialized bool
	started     bool
	ended       bool
	endedByUser bool
	cancelled   bool
	suspended   bool
	retired     bool

	// awaitingAccess keeps an exclusive stroke without init job in
	// Initializing until its first job is dispatched.
	awaitingAccess bool

	// finishDispatched is set once the finish job left the pending list.
	// Cancelling after that point is a no-op.
	finishDispatched bool

	runningSeq     int
	runningConc    int
	runningBarrier int

	jobsDone int
	err      error

	startAt time.Time
	endAt   time.Time
}

// newState initializes the state of a stroke queued at the given time.
func newState(startAt time.Time) *state {
	return &state{startAt: startAt}
}

// status derives the public lifecycle status from the flags.
func (s *state) status() domain.StrokeStatus {
	switch {
	case s.retired && s.cancelled:
		return domain.Cancelled
	case s.retired:
		return domain.Finished
	case s.cancelled:
		return domain.Cancelling
	case s.suspended:
		return domain.Suspended
	case s.ended:
		return domain.Ending
	case !s.initialized || s.awaitingAccess:
		return domain.Initializing
	default:
		return domain.Running
	}
}

// running returns the number of dispatched, not yet completed jobs.
func (s *state) running() int {
	return s.runningSeq + s.runningConc + s.runningBarrier
}

func (s *state) markRunning(class domain.JobClass, delta int) {
	switch class {
	case domain.Sequential:
		s.runningSeq += delta
	case domain.Concurrent:
		s.runningConc += delta
	case domain.Barrier:
		s.runningBarrier += delta
	}
}

// recordError keeps the first body error of the stroke.
func (s *state) recordError(err error) {
	if err != nil && s.err == nil {
		s.err = err
	}
}

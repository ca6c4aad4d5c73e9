package stroke

import (
	"context"
	"fmt"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
)

// Stroke is a live instance of a Strategy bound to a queue position.
//
// A Stroke holds the ordered list of its not yet dispatched jobs, the
// counters of its running jobs and its lifecycle flags. It is not safe for
// concurrent use: the stroke queue serializes every call under its lock.
type Stroke struct {
	// ID is the queue identifier (slot and generation) of the stroke.
	ID domain.StrokeID

	// UUID identifies the stroke for monitoring; it is never reused.
	UUID string

	// Strategy produces the stroke's jobs. It is owned by the stroke.
	Strategy domain.Strategy

	// LevelOfDetail is 0 for full-resolution strokes.
	LevelOfDetail int

	// Twin is the level-of-detail preview of a main stroke, Main points back from the preview.
	Twin *Stroke
	Main *Stroke

	policy  domain.Policy
	pending []*Entry
	state   *state

	// baseCtx outlives the stroke's own context so cancel jobs get a live context.
	baseCtx context.Context
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a stroke for the given strategy and queues its init job.
//
// If the strategy has no init job, the stroke starts initialized. An exclusive
// one still reports Initializing until it dispatches its first job.
//
// Returns:
//   - ErrNilStrategy if strategy is nil.
//   - ErrEmptyID if the strategy has no identifier.
func New(ctx context.Context, id domain.StrokeID, uid string, strategy domain.Strategy, lod int) (*Stroke, error) {
	if strategy == nil {
		return nil, errs.New(errs.ErrNilStrategy, id.String())
	}
	if strategy.ID() == "" {
		return nil, errs.New(errs.ErrEmptyID, fmt.Sprintf("strategy name - %s", strategy.Name()))
	}

	s := &Stroke{
		ID:            id,
		UUID:          uid,
		Strategy:      strategy,
		LevelOfDetail: lod,
		policy:        strategy.Policy(),
		state:         newState(time.Now()),
		baseCtx:       ctx,
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if job := strategy.InitJob(); job != nil {
		s.enqueue(domain.PhaseInit, job)
	} else {
		s.state.initialized = true
		s.state.awaitingAccess = s.policy.Exclusive
	}
	return s, nil
}

// Policy returns the policy captured when the stroke was created.
func (s *Stroke) Policy() domain.Policy {
	return s.policy
}

// Status returns the lifecycle status derived from the stroke's flags.
func (s *Stroke) Status() domain.StrokeStatus {
	return s.state.status()
}

func (s *Stroke) Exclusive() bool   { return s.policy.Exclusive }
func (s *Stroke) Started() bool     { return s.state.started }
func (s *Stroke) Initialized() bool { return s.state.initialized }
func (s *Stroke) Ended() bool       { return s.state.ended }
func (s *Stroke) Cancelled() bool   { return s.state.cancelled }
func (s *Stroke) Suspended() bool   { return s.state.suspended }
func (s *Stroke) Retired() bool     { return s.state.retired }

// Pending returns the number of queued, not yet dispatched jobs.
func (s *Stroke) Pending() int {
	return len(s.pending)
}

// Running returns the number of dispatched jobs that have not completed.
func (s *Stroke) Running() int {
	return s.state.running()
}

// Err returns the first body error reported by one of the stroke's jobs.
func (s *Stroke) Err() error {
	return s.state.err
}

// Context is cancelled when the stroke is cancelled or retired.
func (s *Stroke) Context() context.Context {
	return s.ctx
}

// JobContext returns the context handed to the body of the given job.
// Cancel jobs get a context that is not cancelled together with the stroke.
func (s *Stroke) JobContext(e *Entry) context.Context {
	if e.Phase == domain.PhaseCancel {
		return s.baseCtx
	}
	return s.ctx
}

// AddDab wraps user input into a dab job and appends it to the pending list.
//
// Returns ErrStrokeEnded if the stroke was already ended or cancelled.
func (s *Stroke) AddDab(data any) error {
	if s.state.ended || s.state.cancelled {
		return errs.New(errs.ErrStrokeEnded, s.ID.String())
	}
	if job := s.Strategy.DabJob(data); job != nil {
		s.enqueue(domain.PhaseDab, job)
	}
	return nil
}

// End marks the stroke as ended by the user and appends the finish job
// after every pending job.
//
// Returns ErrStrokeEnded if the stroke was already ended or cancelled.
func (s *Stroke) End() error {
	if s.state.ended || s.state.cancelled {
		return errs.New(errs.ErrStrokeEnded, s.ID.String())
	}
	s.state.ended = true
	s.state.endedByUser = true
	if job := s.Strategy.FinishJob(); job != nil {
		s.enqueue(domain.PhaseFinish, job)
	}
	return nil
}

// Cancel drops every cancellable pending job and, if the policy asks for it,
// queues exactly one cancel job.
//
// Jobs that are already running are left alone; their context is cancelled
// as a hint. Cancel reports false when it had nothing to do: the stroke was
// already cancelled, or its finish job has already been dispatched.
func (s *Stroke) Cancel() bool {
	if s.state.cancelled || s.state.retired || s.state.finishDispatched {
		return false
	}

	kept := make([]*Entry, 0, len(s.pending))
	for _, e := range s.pending {
		if e.NonCancellable {
			kept = append(kept, e)
		}
	}
	s.pending = kept

	s.state.cancelled = true
	s.state.ended = true
	s.state.suspended = false

	if s.policy.NeedsExplicitCancel {
		if job := s.Strategy.CancelJob(); job != nil {
			s.enqueue(domain.PhaseCancel, job)
		}
	}
	s.cancel()
	return true
}

// Suspend parks the stroke. The suspend job, if any, is put in front of
// every pending job. Until Resume only it and mutated jobs injected ahead of
// it may run.
func (s *Stroke) Suspend() error {
	if s.state.ended || s.state.cancelled || s.state.suspended {
		return errs.New(errs.ErrWrongStatus, fmt.Sprintf("cannot suspend %s in status %s", s.ID, s.Status()))
	}
	s.state.suspended = true
	if job := s.Strategy.SuspendJob(); job != nil {
		s.insert(0, s.newEntry(domain.PhaseSuspend, job))
	}
	return nil
}

// Resume lets a suspended stroke continue. The resume job runs right after
// the mutated and suspend jobs that have not been dispatched yet.
func (s *Stroke) Resume() error {
	if !s.state.suspended {
		return errs.New(errs.ErrWrongStatus, fmt.Sprintf("cannot resume %s in status %s", s.ID, s.Status()))
	}
	s.state.suspended = false
	if job := s.Strategy.ResumeJob(); job != nil {
		i := 0
		for i < len(s.pending) && (s.pending[i].Mutated || s.pending[i].Phase == domain.PhaseSuspend) {
			i++
		}
		s.insert(i, s.newEntry(domain.PhaseResume, job))
	}
	return nil
}

// Retire marks the stroke as finished or cancelled and releases its context.
func (s *Stroke) Retire() {
	s.state.retired = true
	s.state.endAt = time.Now()
	s.cancel()
}

// Settled reports whether the stroke can be retired: it was ended or
// cancelled, nothing is pending and nothing is running.
func (s *Stroke) Settled() bool {
	return !s.state.retired &&
		(s.state.ended || s.state.cancelled) &&
		len(s.pending) == 0 &&
		s.state.running() == 0
}

// Snapshot returns a copy of the stroke's public state.
func (s *Stroke) Snapshot(blocked bool) domain.StateDTO {
	return domain.StateDTO{
		StrokeID:           s.ID.String(),
		UUID:               s.UUID,
		StrategyID:         s.Strategy.ID(),
		Name:               s.Strategy.Name(),
		Status:             s.state.status(),
		LevelOfDetail:      s.LevelOfDetail,
		Exclusive:          s.policy.Exclusive,
		SupportsWrapAround: s.policy.SupportsWrapAround,
		EndedByUser:        s.state.endedByUser,
		Blocked:            blocked || s.state.suspended,
		StartAt:            s.state.startAt,
		EndAt:              s.state.endAt,
		JobsDone:           s.state.jobsDone,
		JobsPending:        len(s.pending),
		Error:              s.state.err,
	}
}

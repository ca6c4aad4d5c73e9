package queue

import (
	"github.com/google/uuid"
	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
	"github.com/osmike/strokes/internal/stroke"

	"go.uber.org/zap"
)

func (q *Queue) getLocked(id domain.StrokeID) (*stroke.Stroke, error) {
	s := q.lookupLocked(id)
	if s == nil {
		return nil, errs.New(errs.ErrStrokeNotFound, id.String())
	}
	return s, nil
}

// StartStroke creates a stroke for strategy, appends it to the queue and
// applies the strategy's start policy to the strokes already queued.
//
// When the queue runs with a level of detail, a preview twin cloned from the
// strategy is queued right before the main stroke. The returned ID always
// refers to the main stroke.
//
// Returns:
//   - ErrNilStrategy or ErrEmptyID for an invalid strategy.
//   - ErrPoolShutdown once the queue was closed.
func (q *Queue) StartStroke(strategy domain.Strategy) (domain.StrokeID, error) {
	if strategy == nil {
		return domain.StrokeID{}, errs.New(errs.ErrNilStrategy, "start stroke")
	}
	if strategy.ID() == "" {
		return domain.StrokeID{}, errs.New(errs.ErrEmptyID, "start stroke: strategy name - "+strategy.Name())
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.StrokeID{}, errs.New(errs.ErrPoolShutdown, "start stroke "+strategy.ID())
	}

	b := q.newBatch()
	q.applyStartPolicyLocked(strategy.Policy(), b)

	main, err := q.createLocked(strategy, 0)
	if err != nil {
		q.mu.Unlock()
		b.flush()
		return domain.StrokeID{}, err
	}
	if q.lod > 0 {
		if clone := strategy.LodClone(q.lod); clone != nil {
			twin, err := q.createLocked(clone, q.lod)
			if err != nil {
				q.log.Warn("preview stroke skipped", zap.String("strategy", strategy.ID()), zap.Error(err))
			} else {
				twin.Main = main
				main.Twin = twin
				q.strokes = append(q.strokes, twin)
			}
		}
	}
	q.strokes = append(q.strokes, main)

	snap := main.Snapshot(q.blockedLocked(main))
	b.metrics = append(b.metrics, snap)
	q.retireSettledLocked(b)
	q.mu.Unlock()

	q.log.Info("stroke started",
		zap.String("stroke", main.ID.String()),
		zap.String("strategy", strategy.ID()),
		zap.Bool("exclusive", main.Exclusive()),
		zap.Bool("preview", main.Twin != nil),
	)
	strategy.NotifyUserStartedStroke()
	if q.hooks.OnStrokeStarted != nil {
		q.hooks.OnStrokeStarted(snap)
	}
	b.flush()
	return main.ID, nil
}

// createLocked allocates a slot and builds a stroke without queueing it.
func (q *Queue) createLocked(strategy domain.Strategy, lod int) (*stroke.Stroke, error) {
	id := q.alloc()
	s, err := stroke.New(q.ctx, id, uuid.NewString(), strategy, lod)
	if err != nil {
		q.release(id)
		return nil, err
	}
	q.slots[id.Slot].stroke = s
	return s, nil
}

// applyStartPolicyLocked lets a new stroke clear the way for itself before it
// is appended: redo strokes are cancelled, forgettable strokes are dropped
// and the remaining strokes are asked to end.
func (q *Queue) applyStartPolicyLocked(p domain.Policy, b *batch) {
	if p.ClearsRedoOnStart {
		for _, s := range q.strokes {
			if s.Policy().Redo && s.Main == nil {
				q.cancelLocked(s, b, "redo cleared")
			}
		}
	}
	if p.Exclusive || p.RequestsOtherStrokesToEnd {
		for _, s := range q.strokes {
			if s.Policy().CanForgetAboutMe && s.Main == nil {
				q.cancelLocked(s, b, "forgotten")
			}
		}
	}
	if p.RequestsOtherStrokesToEnd {
		for _, s := range q.strokes {
			if s.Main == nil && !s.Ended() && !s.Policy().CanForgetAboutMe {
				if err := q.endLocked(s, b); err != nil {
					q.log.Debug("stroke not ended", zap.String("stroke", s.ID.String()), zap.Error(err))
				}
			}
		}
	}
}

// AddJob turns data into a dab job of the stroke, and of its preview twin.
//
// Returns:
//   - ErrStrokeNotFound for an unknown or retired stroke.
//   - ErrStrokeEnded if the stroke is ending or cancelled.
//   - ErrPoolShutdown once the queue was closed.
func (q *Queue) AddJob(id domain.StrokeID, data any) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errs.New(errs.ErrPoolShutdown, "add job to "+id.String())
	}
	s, err := q.getLocked(id)
	if err == nil {
		err = s.AddDab(data)
	}
	if err == nil && s.Twin != nil && !s.Twin.Ended() {
		if twinErr := s.Twin.AddDab(data); twinErr != nil {
			q.log.Debug("preview dab dropped", zap.String("stroke", s.Twin.ID.String()), zap.Error(twinErr))
		}
	}
	q.mu.Unlock()

	if err == nil {
		q.wake()
	}
	return err
}

// EndStroke marks the stroke as ended: its finish job is queued after every
// pending job and no more dabs are accepted.
//
// Returns ErrStrokeNotFound for an unknown stroke and ErrStrokeEnded if the
// stroke was already ended or cancelled.
func (q *Queue) EndStroke(id domain.StrokeID) error {
	q.mu.Lock()
	b := q.newBatch()
	s, err := q.getLocked(id)
	if err == nil {
		err = q.endLocked(s, b)
	}
	q.retireSettledLocked(b)
	q.mu.Unlock()

	b.flush()
	return err
}

// endLocked ends s and its twin and schedules the end notification.
func (q *Queue) endLocked(s *stroke.Stroke, b *batch) error {
	if err := s.End(); err != nil {
		return err
	}
	if s.Twin != nil && !s.Twin.Ended() {
		_ = s.Twin.End()
	}
	q.log.Info("stroke ended", zap.String("stroke", s.ID.String()), zap.String("strategy", s.Strategy.ID()))
	b.ended = append(b.ended, notice{strategy: s.Strategy, state: s.Snapshot(false)})
	return nil
}

// CancelStroke drops every cancellable pending job of the stroke and queues
// its cancel job. Cancelling a stroke that is already cancelled or whose
// finish job was dispatched is a no-op.
//
// Returns ErrStrokeNotFound for an unknown or retired stroke.
func (q *Queue) CancelStroke(id domain.StrokeID) error {
	q.mu.Lock()
	b := q.newBatch()
	s, err := q.getLocked(id)
	if err == nil {
		q.cancelLocked(s, b, "cancelled by caller")
	}
	q.retireSettledLocked(b)
	q.mu.Unlock()

	b.flush()
	return err
}

// cancelLocked cancels s together with its twin. It reports whether s changed.
func (q *Queue) cancelLocked(s *stroke.Stroke, b *batch, reason string) bool {
	if !s.Cancel() {
		return false
	}
	if s.Twin != nil {
		s.Twin.Cancel()
	}
	q.log.Info("stroke cancelled",
		zap.String("stroke", s.ID.String()),
		zap.String("strategy", s.Strategy.ID()),
		zap.String("reason", reason),
	)
	b.metrics = append(b.metrics, s.Snapshot(false))
	return true
}

// SuspendStroke parks the stroke and its twin. The suspend job is the only
// job of the stroke that may run until ResumeStroke.
//
// Returns ErrStrokeNotFound or ErrWrongStatus.
func (q *Queue) SuspendStroke(id domain.StrokeID) error {
	return q.toggle(id, (*stroke.Stroke).Suspend, "suspended")
}

// ResumeStroke lets a suspended stroke continue after its resume job.
//
// Returns ErrStrokeNotFound or ErrWrongStatus.
func (q *Queue) ResumeStroke(id domain.StrokeID) error {
	return q.toggle(id, (*stroke.Stroke).Resume, "resumed")
}

func (q *Queue) toggle(id domain.StrokeID, fn func(*stroke.Stroke) error, event string) error {
	q.mu.Lock()
	s, err := q.getLocked(id)
	if err == nil {
		err = fn(s)
	}
	if err == nil && s.Twin != nil {
		_ = fn(s.Twin)
	}
	var snap domain.StateDTO
	if err == nil {
		snap = s.Snapshot(q.blockedLocked(s))
	}
	q.mu.Unlock()

	if err != nil {
		return err
	}
	q.log.Info("stroke "+event, zap.String("stroke", id.String()))
	if q.mon != nil {
		q.mon.SaveMetrics(snap)
	}
	q.wake()
	return nil
}

// Close makes the queue reject new strokes and jobs.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// EndAll ends every stroke that is still open, so their finish jobs run.
func (q *Queue) EndAll() {
	q.mu.Lock()
	b := q.newBatch()
	for _, s := range q.strokes {
		if s.Main == nil && !s.Ended() {
			_ = q.endLocked(s, b)
		}
	}
	q.retireSettledLocked(b)
	q.mu.Unlock()

	b.flush()
}

// CancelAll cancels every live stroke.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	b := q.newBatch()
	for _, s := range q.strokes {
		q.cancelLocked(s, b, "killed")
	}
	q.retireSettledLocked(b)
	q.mu.Unlock()

	b.flush()
}

package queue

import (
	"github.com/osmike/strokes/internal/domain"
	"github.com/osmike/strokes/internal/stroke"

	"go.uber.org/zap"
)

// notice pairs a strategy with the snapshot taken when it was ended.
type notice struct {
	strategy domain.Strategy
	state    domain.StateDTO
}

// batch collects notifications produced under the queue lock. They are
// delivered by flush once the lock is released, so strategies, hooks and
// monitoring never run with the lock held.
type batch struct {
	q       *Queue
	ended   []notice
	retired []domain.StateDTO
	metrics []domain.StateDTO
}

func (q *Queue) newBatch() *batch {
	return &batch{q: q}
}

func (b *batch) flush() {
	q := b.q
	for _, n := range b.ended {
		n.strategy.NotifyUserEndedStroke()
		if q.hooks.OnStrokeEnded != nil {
			q.hooks.OnStrokeEnded(n.state)
		}
	}
	for _, st := range b.retired {
		if q.hooks.OnStrokeRetired != nil {
			q.hooks.OnStrokeRetired(st)
		}
	}
	if q.mon != nil {
		for _, st := range b.metrics {
			q.mon.SaveMetrics(st)
		}
	}
	q.wake()
}

// Complete records the end of a job returned by Next.
//
// A body error cancels the stroke unless the strategy recovers it. Errors of
// cancel jobs and of strokes that are already cancelled are only recorded.
// Strokes that have nothing left to do are retired.
func (q *Queue) Complete(t *Task, err error) {
	q.mu.Lock()
	t.ctrl.live = false
	q.running--

	b := q.newBatch()
	s := q.lookupLocked(t.ref)
	if s == nil {
		q.mu.Unlock()
		b.flush()
		return
	}

	report := s.Complete(t.entry, err)
	if err != nil {
		q.failLocked(s, t.entry, err, b)
	}
	snap := s.Snapshot(q.blockedLocked(s))
	snap.LastJob = &report
	b.metrics = append(b.metrics, snap)

	q.retireSettledLocked(b)
	q.mu.Unlock()

	b.flush()
}

// failLocked applies the error policy to a failed job.
func (q *Queue) failLocked(s *stroke.Stroke, e *stroke.Entry, err error, b *batch) {
	q.log.Warn("job failed",
		zap.String("stroke", s.ID.String()),
		zap.String("strategy", s.Strategy.ID()),
		zap.Stringer("phase", e.Phase),
		zap.Error(err),
	)
	if e.Phase == domain.PhaseCancel || s.Cancelled() {
		return
	}
	if r, ok := s.Strategy.(domain.ErrorRecoverer); ok && r.RecoverJobError(e.Phase, err) {
		q.log.Info("job error recovered", zap.String("stroke", s.ID.String()), zap.Stringer("phase", e.Phase))
		return
	}
	q.cancelLocked(s, b, "job error")
}

// retireSettledLocked removes every stroke that has nothing pending and
// nothing running after being ended or cancelled, and frees its slot.
func (q *Queue) retireSettledLocked(b *batch) {
	kept := q.strokes[:0]
	for _, s := range q.strokes {
		if !s.Settled() {
			kept = append(kept, s)
			continue
		}
		s.Retire()
		q.release(s.ID)

		snap := s.Snapshot(false)
		b.retired = append(b.retired, snap)
		b.metrics = append(b.metrics, snap)
		q.log.Info("stroke retired",
			zap.String("stroke", s.ID.String()),
			zap.String("strategy", s.Strategy.ID()),
			zap.String("status", string(snap.Status)),
			zap.Int("jobs", snap.JobsDone),
		)
	}
	for i := len(kept); i < len(q.strokes); i++ {
		q.strokes[i] = nil
	}
	q.strokes = kept
}

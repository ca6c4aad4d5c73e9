package stroke

import (
	"fmt"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
)

// Entry is a job in a stroke's pending list, or one that was dispatched from it.
type Entry struct {
	domain.JobData

	// Mutated is set for jobs injected by a running job.
	Mutated bool

	// StartAt is set when the job is dispatched.
	StartAt time.Time

	// parent is the job that injected this one; the entry is held until it completes.
	parent *Entry
	done   bool
}

// Done reports whether the job completed.
func (e *Entry) Done() bool {
	return e.done
}

func (s *Stroke) newEntry(phase domain.Phase, job *domain.JobData) *Entry {
	e := &Entry{JobData: *job}
	e.Phase = phase
	return e
}

func (s *Stroke) enqueue(phase domain.Phase, job *domain.JobData) {
	s.pending = append(s.pending, s.newEntry(phase, job))
}

func (s *Stroke) insert(i int, entries ...*Entry) {
	s.pending = append(s.pending[:i], append(entries, s.pending[i:]...)...)
}

// AddMutated injects jobs created by the running job parent.
//
// The jobs are placed after earlier mutated jobs and before every other
// pending job, so they run before the next regular job of the stroke. They
// inherit the parent's phase and are held until the parent completes.
//
// Returns:
//   - ErrNilJob if one of the jobs is nil.
//   - ErrStrokeCanceled if the stroke was cancelled and parent is not a cancel job.
func (s *Stroke) AddMutated(parent *Entry, jobs []*domain.JobData) error {
	for i, job := range jobs {
		if job == nil {
			return errs.New(errs.ErrNilJob, fmt.Sprintf("mutated job #%d of %s", i, s.ID))
		}
	}
	if s.state.cancelled && parent.Phase != domain.PhaseCancel {
		return errs.New(errs.ErrStrokeCanceled, s.ID.String())
	}

	entries := make([]*Entry, 0, len(jobs))
	for _, job := range jobs {
		e := s.newEntry(parent.Phase, job)
		e.Mutated = true
		e.parent = parent
		entries = append(entries, e)
	}

	i := 0
	for i < len(s.pending) && s.pending[i].Mutated {
		i++
	}
	s.insert(i, entries...)
	return nil
}

// Next returns the front job if the stroke's own ordering rules allow it to
// start now, or nil otherwise. It does not remove the job.
//
// ordered tells whether the stroke may dispatch sequential and barrier jobs;
// the queue grants it only to the head stroke. A suspended stroke only
// dispatches its leading mutated and suspend jobs, and those are always ordered.
//
// Rules:
//   - A barrier job runs alone: it waits for every running job of the stroke
//     and nothing else of the stroke starts while it runs.
//   - Sequential jobs never overlap each other.
//   - Concurrent jobs only wait for a running barrier.
//   - Until the init job completed, only init jobs may start.
//   - A mutated job waits for the job that injected it.
func (s *Stroke) Next(ordered bool) *Entry {
	if len(s.pending) == 0 {
		return nil
	}
	e := s.pending[0]

	if s.state.suspended {
		if e.Phase != domain.PhaseSuspend && !e.Mutated {
			return nil
		}
		ordered = true
	}
	if !s.state.initialized && !s.state.cancelled &&
		e.Phase != domain.PhaseInit && e.Phase != domain.PhaseSuspend {
		return nil
	}
	if e.parent != nil && !e.parent.done {
		return nil
	}
	if s.state.runningBarrier > 0 {
		return nil
	}

	switch e.Class {
	case domain.Sequential:
		if !ordered || s.state.runningSeq > 0 {
			return nil
		}
	case domain.Barrier:
		if !ordered || s.state.running() > 0 {
			return nil
		}
	}
	return e
}

// Take removes e, which must be the front job returned by Next, from the
// pending list and counts it as running.
func (s *Stroke) Take(e *Entry) {
	if len(s.pending) == 0 || s.pending[0] != e {
		panic(fmt.Sprintf("stroke %s: dispatched job is not at the front", s.ID))
	}
	s.pending[0] = nil
	s.pending = s.pending[1:]

	e.StartAt = time.Now()
	s.state.markRunning(e.Class, 1)
	s.state.started = true
	s.state.awaitingAccess = false
	if e.Phase == domain.PhaseFinish && !e.Mutated {
		s.state.finishDispatched = true
	}
}

// Complete records the end of a dispatched job and returns its report.
//
// The stroke becomes initialized when its init job completes. A failed
// finish job re-opens the stroke for cancellation.
func (s *Stroke) Complete(e *Entry, err error) domain.JobReport {
	end := time.Now()
	e.done = true
	s.state.markRunning(e.Class, -1)
	s.state.jobsDone++

	if e.Phase == domain.PhaseInit && !e.Mutated {
		s.state.initialized = true
	}
	if err != nil {
		s.state.recordError(err)
		if e.Phase == domain.PhaseFinish && !e.Mutated {
			s.state.finishDispatched = false
		}
	}

	return domain.JobReport{
		Phase:         e.Phase,
		Class:         e.Class,
		Mutated:       e.Mutated,
		StartAt:       e.StartAt,
		EndAt:         end,
		ExecutionTime: end.Sub(e.StartAt).Nanoseconds(),
		Error:         err,
	}
}

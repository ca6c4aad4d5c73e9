package queue

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
	"github.com/osmike/strokes/internal/stroke"
)

// Task is a stroke job handed out by Next. It must be executed once and then
// passed back to Complete.
type Task struct {
	ref      domain.StrokeID
	strategy string
	entry    *stroke.Entry
	ctrl     *control
}

func (q *Queue) newTaskLocked(s *stroke.Stroke, e *stroke.Entry) *Task {
	return &Task{
		ref:      s.ID,
		strategy: s.Strategy.ID(),
		entry:    e,
		ctrl: &control{
			q:     q,
			ref:   s.ID,
			entry: e,
			ctx:   s.JobContext(e),
			lod:   s.LevelOfDetail,
			live:  true,
		},
	}
}

func (t *Task) StrokeID() domain.StrokeID { return t.ref }
func (t *Task) Strategy() string          { return t.strategy }
func (t *Task) Phase() domain.Phase       { return t.entry.Phase }
func (t *Task) Class() domain.JobClass    { return t.entry.Class }
func (t *Task) Mutated() bool             { return t.entry.Mutated }

// Execute runs the job body. A panic in the body is returned as ErrJobPanicked,
// any other body error is wrapped into ErrJobExecution.
func (t *Task) Execute() (err error) {
	if t.entry.Fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.ErrJobPanicked, fmt.Sprintf("stroke %s, phase %s: %v\n%s", t.ref, t.entry.Phase, r, debug.Stack()))
		}
	}()
	if err = t.entry.Fn(t.ctrl); err != nil {
		return fmt.Errorf("%w: stroke %s, phase %s: %w", errs.ErrJobExecution, t.ref, t.entry.Phase, err)
	}
	return nil
}

// control is the JobControl handed to a running job body. It is only valid
// while the job runs; live is guarded by the queue lock.
type control struct {
	q     *Queue
	ref   domain.StrokeID
	entry *stroke.Entry
	ctx   context.Context
	lod   int
	live  bool
}

func (c *control) Context() context.Context { return c.ctx }
func (c *control) StrokeID() string         { return c.ref.String() }
func (c *control) LevelOfDetail() int       { return c.lod }
func (c *control) Payload() any             { return c.entry.Payload }

// AddMutatedJobs injects jobs that run right after the calling job and
// before the next regular job of the stroke.
//
// Returns:
//   - ErrInvalidContext if called after the job returned.
//   - ErrStrokeNotFound if the stroke was retired.
//   - ErrStrokeCanceled if the stroke was cancelled, unless the caller is a cancel job.
//   - ErrNilJob if one of the jobs is nil.
func (c *control) AddMutatedJobs(jobs ...*domain.JobData) error {
	if len(jobs) == 0 {
		return nil
	}
	c.q.mu.Lock()
	defer c.q.mu.Unlock()

	if !c.live {
		return errs.New(errs.ErrInvalidContext, c.ref.String())
	}
	s, err := c.q.getLocked(c.ref)
	if err != nil {
		return err
	}
	return s.AddMutated(c.entry, jobs)
}

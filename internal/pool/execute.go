package pool

import (
	"fmt"
	"runtime/debug"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
	"github.com/osmike/strokes/internal/queue"

	"go.uber.org/zap"
)

// startStroke takes the next stroke job and runs it on a new goroutine,
// assuming a worker slot is already acquired.
func (p *Pool) startStroke(updatesRunning int) bool {
	task := p.Queue.Next(updatesRunning)
	if task == nil {
		return false
	}
	p.balance.strokes++
	p.wg.Add(1)
	go p.executeStroke(task)
	return true
}

// executeStroke runs the job body and reports the result to the queue.
func (p *Pool) executeStroke(task *queue.Task) {
	defer p.release()

	err := task.Execute()
	if err != nil {
		p.log.Debug("stroke job returned error",
			zap.Stringer("stroke", task.StrokeID()),
			zap.Stringer("phase", task.Phase()),
			zap.Error(err),
		)
	}
	p.Queue.Complete(task, err)
}

// startUpdate pops the oldest update job and runs it on a new goroutine.
func (p *Pool) startUpdate() bool {
	var job domain.UpdateJob
	select {
	case job = <-p.updates:
	default:
		return false
	}
	p.balance.updates++
	p.updatesRunning.Add(1)
	p.wg.Add(1)
	go p.executeUpdate(job)
	return true
}

func (p *Pool) executeUpdate(job domain.UpdateJob) {
	defer p.release()
	defer p.updatesRunning.Add(-1)

	if err := p.runUpdate(job); err != nil {
		p.log.Warn("update job failed", zap.String("update", job.ID), zap.Error(err))
		if p.Hooks.OnUpdateError != nil {
			p.Hooks.OnUpdateError(job.ID, err)
		}
	}
}

// runUpdate executes the update body, turning a panic into ErrJobPanicked.
func (p *Pool) runUpdate(job domain.UpdateJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.ErrJobPanicked, fmt.Sprintf("update %s: %v\n%s", job.ID, r, debug.Stack()))
		}
	}()
	if err = job.Fn(p.Ctx); err != nil {
		return fmt.Errorf("%w: update %s: %w", errs.ErrUpdateFailed, job.ID, err)
	}
	return nil
}

// release frees the worker slot and wakes the dispatcher.
func (p *Pool) release() {
	<-p.sem
	p.wg.Done()
	p.wake()
}

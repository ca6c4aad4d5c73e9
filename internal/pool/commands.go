package pool

import (
	"context"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"

	"go.uber.org/zap"
)

// waitPollInterval is how often Wait re-checks for an idle pool.
const waitPollInterval = 5 * time.Millisecond

// AddUpdate queues a background update job. Update jobs run in FIFO order,
// interleaved with stroke jobs according to the balancing ratio, and are
// held while an exclusive stroke needs the workers.
//
// Returns:
//   - ErrNilJob if the job has no body.
//   - ErrPoolShutdown once the pool is shutting down.
//   - ErrUpdateQueueFull if UpdateQueueSize jobs are already pending.
func (p *Pool) AddUpdate(job domain.UpdateJob) error {
	if job.Fn == nil {
		return errs.New(errs.ErrNilJob, "update "+job.ID)
	}
	if p.closed.Load() {
		return errs.New(errs.ErrPoolShutdown, "update "+job.ID)
	}
	select {
	case p.updates <- job:
		p.wake()
		return nil
	default:
		return errs.New(errs.ErrUpdateQueueFull, job.ID)
	}
}

// Wait blocks until no stroke is live and no job is pending or running.
// It returns ctx.Err() if ctx expires first.
func (p *Pool) Wait(ctx context.Context) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		if p.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops accepting new work, ends every open stroke so its finish
// job runs, and waits for queued and running jobs to drain before stopping
// the dispatcher.
//
// If ctx expires first, the remaining work is killed and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closed.Store(true)
	p.Queue.Close()
	p.Queue.EndAll()
	p.log.Info("pool shutting down", zap.Int("strokes", p.Queue.StrokeCount()))

	if err := p.Wait(ctx); err != nil {
		p.Kill()
		return err
	}
	p.cancel()
	if p.started.Load() {
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Kill immediately shuts down the pool.
//
// This method:
//   - Cancels every live stroke, dropping its pending jobs.
//   - Discards pending update jobs.
//   - Cancels the pool context, which is the parent of every job context.
//
// Running job bodies are not interrupted beyond their context being
// cancelled. The pool cannot be restarted afterward.
func (p *Pool) Kill() {
	p.closed.Store(true)
	p.Queue.Close()
	p.Queue.CancelAll()
drain:
	for {
		select {
		case <-p.updates:
		default:
			break drain
		}
	}
	p.cancel()
}

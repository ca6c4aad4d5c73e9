package pool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"
	"github.com/osmike/strokes/internal/queue"

	"go.uber.org/zap"
)

// Pool executes the jobs of the stroke queue and the update queue on a
// bounded set of worker goroutines.
//
// A single dispatcher goroutine (Run) owns the balancing counters and is the
// only caller of Queue.Next. Workers report back through Queue.Complete and
// wake the dispatcher when they finish.
type Pool struct {
	domain.Pool

	// Ctx is cancelled by Kill and at the end of Shutdown.
	Ctx    context.Context
	cancel context.CancelFunc

	// Queue holds the live strokes.
	Queue *queue.Queue

	// Mon receives stroke snapshots.
	Mon domain.Monitoring

	log     *zap.Logger
	updates chan domain.UpdateJob
	wakeCh  chan struct{}
	sem     chan struct{}
	wg      sync.WaitGroup
	balance balancer

	updatesRunning atomic.Int32
	started        atomic.Bool
	closed         atomic.Bool
	done           chan struct{}
}

// New validates cfg, fills in defaults and creates an idle pool. Call Run to
// start dispatching.
//
// Returns:
//   - ErrInvalidWorkerCnt, ErrInvalidRatio or ErrInvalidLOD for invalid settings.
func New(ctx context.Context, cfg domain.Pool, mon domain.Monitoring) (*Pool, error) {
	switch {
	case cfg.MaxWorkers < 0:
		return nil, errs.New(errs.ErrInvalidWorkerCnt, "max workers")
	case cfg.BalancingRatio < 0:
		return nil, errs.New(errs.ErrInvalidRatio, "balancing ratio")
	case cfg.LevelOfDetail < 0:
		return nil, errs.New(errs.ErrInvalidLOD, "level of detail")
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = domain.DEFAULT_CHECK_INTERVAL
	}
	if cfg.BalancingRatio == 0 {
		cfg.BalancingRatio = domain.DEFAULT_BALANCING_RATIO
	}
	if cfg.UpdateQueueSize <= 0 {
		cfg.UpdateQueueSize = domain.DEFAULT_UPDATE_QUEUE_SIZE
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Pool{
		Pool:    cfg,
		Mon:     mon,
		log:     cfg.Logger,
		updates: make(chan domain.UpdateJob, cfg.UpdateQueueSize),
		wakeCh:  make(chan struct{}, 1),
		sem:     make(chan struct{}, cfg.MaxWorkers),
		done:    make(chan struct{}),
	}
	p.Ctx, p.cancel = context.WithCancel(ctx)
	p.Queue = queue.New(p.Ctx, queue.Config{
		LevelOfDetail: cfg.LevelOfDetail,
		Logger:        cfg.Logger.Named("queue"),
		Monitoring:    mon,
		Hooks:         cfg.Hooks,
		Wake:          p.wake,
	})
	return p, nil
}

// wake nudges the dispatcher without blocking.
func (p *Pool) wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// Run starts the dispatcher loop and blocks until the pool is killed or
// shut down. Work is re-evaluated on every wake-up signal and at least
// every CheckInterval.
//
// Returns:
//   - ErrPoolRunning if Run was already called.
//   - ErrPoolShutdown if the pool was already shut down.
func (p *Pool) Run() error {
	if p.closed.Load() {
		return errs.New(errs.ErrPoolShutdown, "run")
	}
	if !p.started.CompareAndSwap(false, true) {
		return errs.New(errs.ErrPoolRunning, "run")
	}
	defer close(p.done)

	ticker := time.NewTicker(p.CheckInterval)
	defer ticker.Stop()

	p.log.Info("pool started", zap.Int("workers", p.MaxWorkers), zap.Float64("balancing_ratio", p.BalancingRatio))
	for {
		select {
		case <-p.Ctx.Done(): // Handle shutdown
			p.wg.Wait()
			p.log.Info("pool stopped")
			return nil
		default:
		}

		p.dispatch()

		select {
		case <-p.Ctx.Done():
		case <-p.wakeCh:
		case <-ticker.C:
		}
	}
}

// dispatch fills every free worker slot with an eligible job.
func (p *Pool) dispatch() {
	for {
		if p.Ctx.Err() != nil {
			return
		}
		select {
		case p.sem <- struct{}{}:
		default:
			return // all workers busy
		}
		if !p.dispatchOne() {
			<-p.sem
			return
		}
	}
}

// dispatchOne starts one job on the already acquired worker slot. It picks
// between the stroke queue and the update queue with the balancer when both
// have work, and reports false when neither has.
func (p *Pool) dispatchOne() bool {
	updatesRunning := int(p.updatesRunning.Load())
	strokeReady := p.Queue.HasEligible(updatesRunning)
	updateReady := len(p.updates) > 0 && !p.Queue.NeedsExclusiveAccess()

	switch {
	case strokeReady && updateReady:
		if p.balance.pickStroke(p.Queue.BalancingRatio(p.BalancingRatio)) {
			return p.startStroke(updatesRunning)
		}
		return p.startUpdate()
	case strokeReady:
		p.balance.reset()
		return p.startStroke(updatesRunning)
	case updateReady:
		p.balance.reset()
		return p.startUpdate()
	}
	return false
}

// idle reports whether nothing is queued or running.
func (p *Pool) idle() bool {
	return p.Queue.Empty() && len(p.updates) == 0 && p.updatesRunning.Load() == 0
}

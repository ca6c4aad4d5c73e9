// Package strokes provides a stroke execution scheduler for a shared canvas.
//
// A stroke is one user-initiated editing gesture (a brush drag, a filter
// application). It is described by a Strategy, which produces the jobs that
// make up the stroke: an init job, one dab job per unit of user input, jobs
// added by running jobs, and a finish or cancel job. The scheduler keeps the
// live strokes in arrival order and executes their jobs on a bounded worker
// pool while enforcing the ordering contract:
//
//   - Sequential jobs of a stroke never overlap and run in enqueue order.
//   - A barrier job waits for every earlier job of its stroke and runs alone.
//   - Only the oldest stroke may start sequential and barrier jobs; younger
//     strokes may only start concurrent jobs.
//   - An exclusive stroke runs alone, with no job of any other stroke and no
//     update job alongside it.
//   - Jobs injected by a running job (mutated jobs) run after their parent
//     and before the next regular job of the stroke.
//
// Background update jobs (redraws) are interleaved with stroke jobs according
// to a balancing ratio.
//
// Example usage:
//
//	s, _ := strokes.New(context.Background(), strokes.Config{MaxWorkers: 4}, nil)
//	go s.Run()
//	defer s.Kill()
//
//	id, _ := s.StartStroke(brush)
//	for _, p := range points {
//		_ = s.AddJob(id, p)
//	}
//	_ = s.EndStroke(id)
//	_ = s.Wait(ctx)
package strokes

import (
	"context"

	"github.com/osmike/strokes/internal/domain"
	"github.com/osmike/strokes/internal/pool"
	"github.com/osmike/strokes/monitoring"
)

// Config encapsulates the settings of a scheduler.
//
// Parameters:
//   - MaxWorkers: Size of the worker pool. Default is GOMAXPROCS if set to 0.
//   - CheckInterval: How often the dispatcher re-evaluates the queues without
//     a wake-up signal. Default is 100ms if set to 0.
//   - BalancingRatio: Target number of stroke jobs per update job. Values
//     below 1 favour updates. Default is 100 if set to 0.
//   - LevelOfDetail: Values > 0 queue a preview twin for every strategy that
//     implements LodClone.
//   - UpdateQueueSize: Maximum number of pending update jobs. Default is 4096.
//   - Logger: zap logger for lifecycle logs. Logging is disabled if nil.
//   - Hooks: Stroke lifecycle notifications.
type Config = domain.Pool

// Strategy produces the jobs of one stroke and declares its policies.
type Strategy = domain.Strategy

// BaseStrategy implements every Strategy method with a neutral default.
// Embed it and override what the stroke needs.
type BaseStrategy = domain.BaseStrategy

// Policy holds the stroke-level flags of a Strategy: exclusivity, redo
// clearing, ending other strokes, forgettability, explicit cancel and the
// balancing ratio override.
type Policy = domain.Policy

// DefaultPolicy returns the policy of an ordinary painting stroke: it clears
// redo strokes and asks the other open strokes to end when it starts.
func DefaultPolicy() Policy {
	return domain.DefaultPolicy()
}

// ErrorRecoverer may be implemented by a Strategy to keep its stroke alive
// after a job fails.
type ErrorRecoverer = domain.ErrorRecoverer

// JobData describes one job: its class, whether it survives cancellation, an
// opaque payload and the body to execute.
type JobData = domain.JobData

// JobControl is handed to a running job body.
//
// Offers:
//   - Context: Cancelled as a hint when the stroke is cancelled.
//   - StrokeID: Printable identifier of the stroke.
//   - LevelOfDetail: 0 for full resolution, > 0 for preview twins.
//   - Payload: The job's payload.
//   - AddMutatedJobs: Injects jobs that run right after the current one.
type JobControl = domain.JobControl

// Fn is the body of a job.
type Fn = domain.Fn

// JobClass governs how a job may overlap with other jobs of its stroke.
type JobClass = domain.JobClass

const (
	Sequential = domain.Sequential
	Concurrent = domain.Concurrent
	Barrier    = domain.Barrier
)

// Phase identifies which part of the stroke lifecycle produced a job.
type Phase = domain.Phase

// StrokeID identifies a live stroke. IDs of retired strokes never resolve again.
type StrokeID = domain.StrokeID

// StrokeStatus represents the lifecycle status of a stroke.
//
// Possible statuses include:
//   - Initializing
//   - Running
//   - Suspended
//   - Ending
//   - Finished
//   - Cancelling
//   - Cancelled
type StrokeStatus = domain.StrokeStatus

const (
	Initializing = domain.Initializing
	Running      = domain.Running
	Suspended    = domain.Suspended
	Ending       = domain.Ending
	Finished     = domain.Finished
	Cancelling   = domain.Cancelling
	Cancelled    = domain.Cancelled
)

// StrokeState is a snapshot of a stroke, as returned by StrokeInfo and
// delivered to hooks and monitoring.
type StrokeState = domain.StateDTO

// JobReport describes one executed job in a StrokeState.
type JobReport = domain.JobReport

// UpdateJob is a unit of background canvas work produced outside the stroke queue.
type UpdateJob = domain.UpdateJob

// Hooks receives stroke lifecycle notifications.
type Hooks = domain.Hooks

// Monitoring receives a StrokeState after every completed job and every
// lifecycle change.
//
// Implementations can persist metrics in various ways, such as:
//   - In-memory storage for debugging (monitoring.New).
//   - Prometheus collectors (monitoring/prom).
//   - A SQLite history table (monitoring/sqlitemon).
type Monitoring = domain.Monitoring

// Scheduler owns a stroke queue and the worker pool executing it.
type Scheduler struct {
	pool *pool.Pool
	mon  Monitoring
}

// New creates a scheduler. It does not start executing jobs until Run is called.
//
// Parameters:
//   - ctx: Parent context. Cancelling it stops the scheduler like Kill.
//   - cfg: Pool settings; zero values get defaults.
//   - mon: Metrics sink. Defaults to in-memory monitoring if nil.
//
// Returns:
//   - An error if cfg holds negative values.
func New(ctx context.Context, cfg Config, mon Monitoring) (*Scheduler, error) {
	if mon == nil {
		mon = monitoring.New()
	}
	p, err := pool.New(ctx, cfg, mon)
	if err != nil {
		return nil, err
	}
	return &Scheduler{pool: p, mon: mon}, nil
}

// Monitoring returns the metrics sink the scheduler reports to.
func (s *Scheduler) Monitoring() Monitoring {
	return s.mon
}

// StartStroke queues a new stroke for the strategy and returns its ID.
//
// Depending on the strategy's policy, starting a stroke cancels redo and
// forgettable strokes and ends the other open strokes. The strategy's
// NotifyUserStartedStroke runs before StartStroke returns.
func (s *Scheduler) StartStroke(strategy Strategy) (StrokeID, error) {
	return s.pool.Queue.StartStroke(strategy)
}

// AddJob passes one unit of user input to the stroke, which turns it into a dab job.
func (s *Scheduler) AddJob(id StrokeID, data any) error {
	return s.pool.Queue.AddJob(id, data)
}

// EndStroke tells the stroke no more input follows. Its finish job runs after
// every job already queued.
func (s *Scheduler) EndStroke(id StrokeID) error {
	return s.pool.Queue.EndStroke(id)
}

// CancelStroke drops the stroke's pending jobs and queues its cancel job.
// Cancelling twice is a no-op.
func (s *Scheduler) CancelStroke(id StrokeID) error {
	return s.pool.Queue.CancelStroke(id)
}

// SuspendStroke parks the stroke; younger strokes may overtake it.
func (s *Scheduler) SuspendStroke(id StrokeID) error {
	return s.pool.Queue.SuspendStroke(id)
}

// ResumeStroke lets a suspended stroke continue.
func (s *Scheduler) ResumeStroke(id StrokeID) error {
	return s.pool.Queue.ResumeStroke(id)
}

// StrokeCount returns the number of live strokes, preview twins included.
func (s *Scheduler) StrokeCount() int {
	return s.pool.Queue.StrokeCount()
}

// StrokeInfo returns a snapshot of a live stroke.
func (s *Scheduler) StrokeInfo(id StrokeID) (StrokeState, error) {
	return s.pool.Queue.StrokeInfo(id)
}

// AddUpdate queues a background update job.
func (s *Scheduler) AddUpdate(job UpdateJob) error {
	return s.pool.AddUpdate(job)
}

// Run executes jobs until the scheduler is killed or shut down. It blocks.
func (s *Scheduler) Run() error {
	return s.pool.Run()
}

// Wait blocks until no stroke is live and nothing runs, or ctx expires.
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.pool.Wait(ctx)
}

// Shutdown stops accepting work, ends open strokes and waits for everything
// queued to finish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

// Kill cancels every stroke, drops pending work and stops the scheduler.
func (s *Scheduler) Kill() {
	s.pool.Kill()
}

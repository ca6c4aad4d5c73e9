package domain

import "time"

// StrokeStatus represents the current lifecycle state of a stroke within the queue.
//
// It is derived from the stroke's lifecycle flags and never stored directly.
// Possible values include:
// - Initializing: The stroke was created and its init job has not completed yet.
// - Running:      The init job completed and the stroke accepts dabs.
// - Suspended:    The stroke is parked; only its suspend jobs may run.
// - Ending:       The caller ended the stroke; the finish job is queued.
// - Finished:     The finish job completed and the stroke was retired.
// - Cancelling:   The stroke was cancelled; pending jobs were dropped.
// - Cancelled:    The cancel job (if any) completed and the stroke was retired.
type StrokeStatus string

const (
	// Initializing indicates the stroke has been queued but its init job has not finished.
	// Dabs added in this state are queued behind the init job.
	Initializing StrokeStatus = "initializing"

	// Running indicates the stroke was initialized and is accepting new jobs.
	Running StrokeStatus = "running"

	// Suspended indicates the stroke is parked until it is explicitly resumed.
	// Other strokes may overtake it while it is suspended.
	Suspended StrokeStatus = "suspended"

	// Ending indicates the caller ended the stroke.
	// No further dabs are accepted; queued jobs and the finish job still run.
	Ending StrokeStatus = "ending"

	// Finished is the terminal state of a stroke that ended normally.
	Finished StrokeStatus = "finished"

	// Cancelling indicates the stroke was cancelled by the caller, the queue or a job error.
	// Not-yet-started jobs were dropped and an explicit cancel job may be pending.
	Cancelling StrokeStatus = "cancelling"

	// Cancelled is the terminal state of a cancelled stroke.
	Cancelled StrokeStatus = "cancelled"
)

// JobClass governs which other jobs of the same stroke a job may overlap with.
type JobClass uint8

const (
	// Sequential jobs run in enqueue order and never overlap each other.
	Sequential JobClass = iota

	// Concurrent jobs may run in parallel with each other and with sequential jobs.
	Concurrent

	// Barrier jobs wait for every previously dispatched job of the stroke and block
	// the stroke until they complete.
	Barrier
)

func (c JobClass) String() string {
	switch c {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	case Barrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// Phase identifies which part of a stroke's lifecycle produced a job.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhaseDab
	PhaseFinish
	PhaseCancel
	PhaseSuspend
	PhaseResume
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseDab:
		return "dab"
	case PhaseFinish:
		return "finish"
	case PhaseCancel:
		return "cancel"
	case PhaseSuspend:
		return "suspend"
	case PhaseResume:
		return "resume"
	default:
		return "unknown"
	}
}

const (
	// DEFAULT_CHECK_INTERVAL sets how often the dispatcher re-evaluates the queue
	// when no explicit wake-up signal arrives.
	DEFAULT_CHECK_INTERVAL = 100 * time.Millisecond

	// DEFAULT_BALANCING_RATIO is the target ratio of stroke jobs to update jobs
	// used when no strategy overrides it. Values above 1 favour stroke jobs.
	DEFAULT_BALANCING_RATIO = 100.0

	// DEFAULT_UPDATE_QUEUE_SIZE bounds the number of pending update jobs.
	DEFAULT_UPDATE_QUEUE_SIZE = 4096
)

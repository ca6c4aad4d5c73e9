package strokes

import errs "github.com/osmike/strokes/internal/error"

var (
	ErrNilStrategy    = errs.ErrNilStrategy
	ErrEmptyID        = errs.ErrEmptyID
	ErrStrokeNotFound = errs.ErrStrokeNotFound
	ErrStrokeEnded    = errs.ErrStrokeEnded
	ErrWrongStatus    = errs.ErrWrongStatus
	ErrInvalidContext = errs.ErrInvalidContext
	ErrStrokeCanceled = errs.ErrStrokeCanceled
	ErrNilJob         = errs.ErrNilJob
)

var (
	ErrPoolShutdown    = errs.ErrPoolShutdown
	ErrPoolRunning     = errs.ErrPoolRunning
	ErrUpdateQueueFull = errs.ErrUpdateQueueFull
)

var (
	ErrJobPanicked  = errs.ErrJobPanicked
	ErrJobExecution = errs.ErrJobExecution
	ErrUpdateFailed = errs.ErrUpdateFailed
)

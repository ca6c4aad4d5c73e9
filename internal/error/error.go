package error

import (
	"errors"
	"fmt"
)

var (
	ErrNilStrategy    = errors.New("strategy is nil")
	ErrEmptyID        = errors.New("strategy ID is empty")
	ErrStrokeNotFound = errors.New("stroke not found")
	ErrStrokeEnded    = errors.New("stroke already ended")
	ErrWrongStatus    = errors.New("stroke with wrong status")
	ErrInvalidContext = errors.New("mutated jobs added outside of an executing job")
	ErrStrokeCanceled = errors.New("stroke is cancelled")
	ErrNilJob         = errors.New("job is nil")
)

var (
	ErrPoolShutdown     = errors.New("pool is shut down")
	ErrPoolRunning      = errors.New("pool is already running")
	ErrUpdateQueueFull  = errors.New("update queue is full")
	ErrInvalidRatio     = errors.New("balancing ratio must be positive")
	ErrInvalidLOD       = errors.New("level of detail must not be negative")
	ErrInvalidWorkerCnt = errors.New("max workers must not be negative")
)

var (
	ErrJobPanicked  = errors.New("job panicked")
	ErrJobExecution = errors.New("error in job execution")
	ErrUpdateFailed = errors.New("error in update job")
)

var (
	ErrConfigRead   = errors.New("unable to read config")
	ErrConfigFormat = errors.New("unsupported config format")
	ErrConfigParse  = errors.New("unable to parse config")
)

func New(err error, str string) error {
	return fmt.Errorf("%w: %s", err, str)
}

package domain

// Policy holds the stroke-level flags a Strategy declares.
// The queue reads them once, when the stroke starts.
type Policy struct {
	// Exclusive strokes forbid jobs of any other stroke from running alongside them.
	Exclusive bool

	// SupportsWrapAround is reported to collaborators; it does not affect scheduling.
	SupportsWrapAround bool

	// ClearsRedoOnStart cancels queued redo strokes when this stroke starts.
	ClearsRedoOnStart bool

	// RequestsOtherStrokesToEnd ends every live, non-forgettable stroke when this stroke starts.
	RequestsOtherStrokesToEnd bool

	// CanForgetAboutMe lets the queue cancel this stroke to make room for an incompatible one.
	CanForgetAboutMe bool

	// NeedsExplicitCancel makes a cancelled stroke run its cancel job.
	NeedsExplicitCancel bool

	// Redo marks a stroke that replays undone history.
	Redo bool

	// BalancingRatioOverride replaces the scheduler's stroke/update ratio while
	// this stroke is at the head of the queue. Values <= 0 keep the default.
	BalancingRatioOverride float64
}

// DefaultPolicy returns the policy most painting strokes want.
func DefaultPolicy() Policy {
	return Policy{
		ClearsRedoOnStart:         true,
		RequestsOtherStrokesToEnd: true,
	}
}

// Strategy produces the jobs composing one stroke and declares its policies.
//
// The queue calls the job factories while holding its lock, so they must be
// cheap and must not call back into the scheduler. Job bodies run later on
// worker goroutines.
type Strategy interface {
	ID() string
	Name() string
	Policy() Policy

	InitJob() *JobData
	FinishJob() *JobData
	CancelJob() *JobData
	SuspendJob() *JobData
	ResumeJob() *JobData

	// DabJob wraps one unit of user input into a job. Returning nil drops the input.
	DabJob(data any) *JobData

	// NotifyUserStartedStroke runs on the caller's goroutine when the stroke is started.
	NotifyUserStartedStroke()

	// NotifyUserEndedStroke runs on the caller's goroutine when the stroke is ended.
	NotifyUserEndedStroke()

	// LodClone returns an independent copy working at the given level of detail,
	// or nil if the strategy does not support previews.
	LodClone(levelOfDetail int) Strategy
}

// ErrorRecoverer is implemented by strategies that can keep a stroke alive
// after one of its jobs failed. Returning true keeps the stroke running.
type ErrorRecoverer interface {
	RecoverJobError(phase Phase, err error) bool
}

// BaseStrategy implements every Strategy method with a neutral default.
// Embed it and override what the stroke needs.
type BaseStrategy struct {
	StrategyID   string
	StrategyName string
	Flags        Policy
}

func (b BaseStrategy) ID() string { return b.StrategyID }

// Name falls back to the ID when no display name was set.
func (b BaseStrategy) Name() string {
	if b.StrategyName == "" {
		return b.StrategyID
	}
	return b.StrategyName
}

func (b BaseStrategy) Policy() Policy           { return b.Flags }
func (b BaseStrategy) InitJob() *JobData        { return nil }
func (b BaseStrategy) FinishJob() *JobData      { return nil }
func (b BaseStrategy) CancelJob() *JobData      { return nil }
func (b BaseStrategy) SuspendJob() *JobData     { return nil }
func (b BaseStrategy) ResumeJob() *JobData      { return nil }
func (b BaseStrategy) DabJob(any) *JobData      { return nil }
func (b BaseStrategy) NotifyUserStartedStroke() {}
func (b BaseStrategy) NotifyUserEndedStroke()   {}
func (b BaseStrategy) LodClone(int) Strategy    { return nil }

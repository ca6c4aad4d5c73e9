package stroke

import (
	"context"
	"errors"
	"testing"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStrategy struct {
	domain.BaseStrategy
	init, finish, cancel, suspend, resume *domain.JobData
	dabClass                              domain.JobClass
}

func (s *testStrategy) InitJob() *domain.JobData    { return s.init }
func (s *testStrategy) FinishJob() *domain.JobData  { return s.finish }
func (s *testStrategy) CancelJob() *domain.JobData  { return s.cancel }
func (s *testStrategy) SuspendJob() *domain.JobData { return s.suspend }
func (s *testStrategy) ResumeJob() *domain.JobData  { return s.resume }
func (s *testStrategy) DabJob(data any) *domain.JobData {
	if data == nil {
		return nil
	}
	return &domain.JobData{Class: s.dabClass, Payload: data}
}

func newTestStrategy(p domain.Policy) *testStrategy {
	return &testStrategy{
		BaseStrategy: domain.BaseStrategy{StrategyID: "test", Flags: p},
		init:         &domain.JobData{Class: domain.Sequential},
		finish:       &domain.JobData{Class: domain.Barrier},
		cancel:       &domain.JobData{Class: domain.Sequential},
		suspend:      &domain.JobData{Class: domain.Sequential},
		resume:       &domain.JobData{Class: domain.Sequential},
		dabClass:     domain.Concurrent,
	}
}

func newTestStroke(t *testing.T, strategy domain.Strategy) *Stroke {
	t.Helper()
	s, err := New(context.Background(), domain.StrokeID{Slot: 1, Gen: 1}, "uuid-1", strategy, 0)
	require.NoError(t, err)
	return s
}

// dispatch takes and completes the next eligible job.
func dispatch(t *testing.T, s *Stroke) *Entry {
	t.Helper()
	e := s.Next(true)
	require.NotNil(t, e, "expected an eligible job")
	s.Take(e)
	return e
}

func TestStroke_New_Validation(t *testing.T) {
	_, err := New(context.Background(), domain.StrokeID{Gen: 1}, "", nil, 0)
	assert.ErrorIs(t, err, errs.ErrNilStrategy)

	_, err = New(context.Background(), domain.StrokeID{Gen: 1}, "", &domain.BaseStrategy{}, 0)
	assert.ErrorIs(t, err, errs.ErrEmptyID)
}

func TestStroke_New_WithoutInitIsRunning(t *testing.T) {
	s := newTestStroke(t, &domain.BaseStrategy{StrategyID: "plain"})
	assert.Equal(t, domain.Running, s.Status())
	assert.Equal(t, 0, s.Pending())
}

func TestStroke_Lifecycle(t *testing.T) {
	s := newTestStroke(t, newTestStrategy(domain.DefaultPolicy()))
	assert.Equal(t, domain.Initializing, s.Status())

	assert.NoError(t, s.AddDab(1))
	// dabs wait for the init job
	init := s.Next(true)
	require.NotNil(t, init)
	assert.Equal(t, domain.PhaseInit, init.Phase)
	s.Take(init)
	assert.Nil(t, s.Next(true), "dab must wait until init completes")

	s.Complete(init, nil)
	assert.Equal(t, domain.Running, s.Status())

	dab := dispatch(t, s)
	assert.Equal(t, domain.PhaseDab, dab.Phase)

	assert.NoError(t, s.End())
	assert.Equal(t, domain.Ending, s.Status())
	assert.ErrorIs(t, s.AddDab(2), errs.ErrStrokeEnded)
	assert.ErrorIs(t, s.End(), errs.ErrStrokeEnded)

	assert.Nil(t, s.Next(true), "finish barrier must wait for the running dab")
	s.Complete(dab, nil)

	finish := dispatch(t, s)
	assert.Equal(t, domain.PhaseFinish, finish.Phase)
	assert.False(t, s.Settled())
	s.Complete(finish, nil)
	assert.True(t, s.Settled())

	s.Retire()
	assert.Equal(t, domain.Finished, s.Status())
	assert.Equal(t, 3, s.Snapshot(false).JobsDone)
}

func TestStroke_SequentialNeverOverlap(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	st.dabClass = domain.Sequential
	s := newTestStroke(t, st)

	assert.NoError(t, s.AddDab(1))
	assert.NoError(t, s.AddDab(2))

	first := dispatch(t, s)
	assert.Equal(t, 1, first.Payload)
	assert.Nil(t, s.Next(true))
	s.Complete(first, nil)

	second := dispatch(t, s)
	assert.Equal(t, 2, second.Payload)
}

func TestStroke_UnorderedOnlyConcurrent(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	s := newTestStroke(t, st)

	assert.NoError(t, s.AddDab(1))
	assert.NotNil(t, s.Next(false), "concurrent job may start without head rights")

	st.dabClass = domain.Sequential
	s2 := newTestStroke(t, st)
	assert.NoError(t, s2.AddDab(1))
	assert.Nil(t, s2.Next(false), "sequential job needs head rights")
}

func TestStroke_Cancel(t *testing.T) {
	p := domain.DefaultPolicy()
	p.NeedsExplicitCancel = true
	st := newTestStrategy(p)
	st.init = nil
	s := newTestStroke(t, st)

	assert.NoError(t, s.AddDab(1))
	running := dispatch(t, s)
	assert.NoError(t, s.AddDab(2))
	assert.NoError(t, s.AddDab(3))
	s.enqueue(domain.PhaseDab, &domain.JobData{Class: domain.Concurrent, NonCancellable: true, Payload: "keep"})

	assert.True(t, s.Cancel())
	assert.Equal(t, domain.Cancelling, s.Status())
	assert.False(t, s.Cancel(), "second cancel is a no-op")
	assert.Error(t, s.Context().Err())

	// non-cancellable job survives and the single cancel job is appended
	require.Equal(t, 2, s.Pending())
	assert.Equal(t, "keep", s.pending[0].Payload)
	assert.Equal(t, domain.PhaseCancel, s.pending[1].Phase)
	assert.NoError(t, s.JobContext(s.pending[1]).Err(), "cancel job context stays live")

	s.Complete(running, nil)
	keep := dispatch(t, s)
	s.Complete(keep, nil)
	cancel := dispatch(t, s)
	s.Complete(cancel, nil)
	assert.True(t, s.Settled())
	s.Retire()
	assert.Equal(t, domain.Cancelled, s.Status())
}

func TestStroke_CancelWithoutExplicitCancelJob(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	s := newTestStroke(t, st)
	assert.NoError(t, s.AddDab(1))

	assert.True(t, s.Cancel())
	assert.Equal(t, 0, s.Pending())
	assert.True(t, s.Settled())
}

func TestStroke_CancelAfterFinishDispatched(t *testing.T) {
	st := newTestStrategy(domain.Policy{NeedsExplicitCancel: true})
	st.init = nil
	s := newTestStroke(t, st)
	assert.NoError(t, s.End())
	finish := dispatch(t, s)

	assert.False(t, s.Cancel(), "stroke is already finishing")

	s.Complete(finish, errors.New("boom"))
	assert.True(t, s.Cancel(), "failed finish job re-opens the stroke for cancellation")
	assert.Equal(t, "boom", s.Err().Error())
}

func TestStroke_SuspendResume(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	s := newTestStroke(t, st)
	assert.NoError(t, s.AddDab(1))

	assert.NoError(t, s.Suspend())
	assert.Equal(t, domain.Suspended, s.Status())
	assert.ErrorIs(t, s.Suspend(), errs.ErrWrongStatus)

	suspend := s.Next(false)
	require.NotNil(t, suspend, "suspend job runs without head rights")
	assert.Equal(t, domain.PhaseSuspend, suspend.Phase)
	s.Take(suspend)
	s.Complete(suspend, nil)
	assert.Nil(t, s.Next(true), "suspended stroke runs nothing else")

	assert.NoError(t, s.Resume())
	assert.ErrorIs(t, s.Resume(), errs.ErrWrongStatus)
	resume := dispatch(t, s)
	assert.Equal(t, domain.PhaseResume, resume.Phase)
	s.Complete(resume, nil)

	dab := dispatch(t, s)
	assert.Equal(t, domain.PhaseDab, dab.Phase)
}

func TestStroke_ResumeBeforeSuspendJobRan(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	s := newTestStroke(t, st)

	assert.NoError(t, s.Suspend())
	assert.NoError(t, s.Resume())
	require.Equal(t, 2, s.Pending())
	assert.Equal(t, domain.PhaseSuspend, s.pending[0].Phase)
	assert.Equal(t, domain.PhaseResume, s.pending[1].Phase)
}

func TestStroke_AddMutated(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	st.dabClass = domain.Sequential
	s := newTestStroke(t, st)

	assert.NoError(t, s.AddDab("parent"))
	assert.NoError(t, s.AddDab("next"))
	parent := dispatch(t, s)

	err := s.AddMutated(parent, []*domain.JobData{
		{Class: domain.Concurrent, Payload: "m1"},
		{Class: domain.Concurrent, Payload: "m2"},
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, s.AddMutated(parent, []*domain.JobData{nil}), errs.ErrNilJob)

	require.Equal(t, 3, s.Pending())
	assert.Equal(t, "m1", s.pending[0].Payload)
	assert.True(t, s.pending[0].Mutated)
	assert.Equal(t, domain.PhaseDab, s.pending[0].Phase)
	assert.Nil(t, s.Next(true), "mutated jobs are held until the parent completes")

	s.Complete(parent, nil)
	m1 := dispatch(t, s)
	m2 := dispatch(t, s)
	assert.Equal(t, "m2", m2.Payload)
	next := dispatch(t, s)
	assert.Equal(t, "next", next.Payload)

	s.Complete(m1, nil)
	s.Complete(m2, nil)
	s.Complete(next, nil)
}

func TestStroke_AddMutatedOnCancelledStroke(t *testing.T) {
	st := newTestStrategy(domain.Policy{NeedsExplicitCancel: true})
	st.init = nil
	s := newTestStroke(t, st)
	assert.NoError(t, s.AddDab(1))
	dab := dispatch(t, s)

	assert.True(t, s.Cancel())
	err := s.AddMutated(dab, []*domain.JobData{{Class: domain.Sequential}})
	assert.ErrorIs(t, err, errs.ErrStrokeCanceled)

	s.Complete(dab, nil)
	cancel := dispatch(t, s)
	assert.NoError(t, s.AddMutated(cancel, []*domain.JobData{{Class: domain.Sequential}}))
	assert.Equal(t, domain.PhaseCancel, s.pending[0].Phase)
}

func TestStroke_MutatedJobsWhileSuspended(t *testing.T) {
	st := newTestStrategy(domain.Policy{})
	st.init = nil
	s := newTestStroke(t, st)
	require.NoError(t, s.AddDab(1))
	dab := dispatch(t, s)

	require.NoError(t, s.Suspend())
	require.NoError(t, s.AddMutated(dab, []*domain.JobData{{Class: domain.Sequential}}))
	assert.Nil(t, s.Next(false), "mutated job waits for its parent")

	s.Complete(dab, nil)
	front := s.Next(false)
	require.NotNil(t, front, "suspended stroke still runs jobs injected by its last dab")
	assert.True(t, front.Mutated)

	require.NoError(t, s.Resume())
	var phases []domain.Phase
	for s.Pending() > 0 {
		e := dispatch(t, s)
		phases = append(phases, e.Phase)
		s.Complete(e, nil)
	}
	assert.Equal(t, []domain.Phase{domain.PhaseDab, domain.PhaseSuspend, domain.PhaseResume}, phases)
}

func TestStroke_ExclusiveWithoutInitAwaitsFirstDispatch(t *testing.T) {
	st := newTestStrategy(domain.Policy{Exclusive: true})
	st.init = nil
	s := newTestStroke(t, st)
	assert.Equal(t, domain.Initializing, s.Status())
	assert.True(t, s.Initialized())

	require.NoError(t, s.AddDab(1))
	dab := dispatch(t, s)
	assert.Equal(t, domain.Running, s.Status())
	s.Complete(dab, nil)
	assert.Equal(t, domain.Running, s.Status())
}

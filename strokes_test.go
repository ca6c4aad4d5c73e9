package strokes

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osmike/strokes/internal/testutil"
	"github.com/osmike/strokes/monitoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder keeps an ordered log of job events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type testStrategy struct {
	BaseStrategy
	init, finish, cancel *JobData
	dab                  func(data any) *JobData
	clone                Strategy
}

func (s *testStrategy) InitJob() *JobData   { return s.init }
func (s *testStrategy) FinishJob() *JobData { return s.finish }
func (s *testStrategy) CancelJob() *JobData { return s.cancel }

func (s *testStrategy) DabJob(data any) *JobData {
	if s.dab == nil {
		return nil
	}
	return s.dab(data)
}

func (s *testStrategy) LodClone(int) Strategy { return s.clone }

func newScheduler(t *testing.T, cfg Config) (*Scheduler, *monitoring.Monitoring) {
	t.Helper()
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 10 * time.Millisecond
	}
	mon := monitoring.New()
	s, err := New(context.Background(), cfg, mon)
	require.NoError(t, err)
	t.Cleanup(s.Kill)
	return s, mon
}

func start(s *Scheduler) {
	go func() { _ = s.Run() }()
}

func wait(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestScheduler_New(t *testing.T) {
	s, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &monitoring.Monitoring{}, s.Monitoring())

	_, err = New(context.Background(), Config{MaxWorkers: -1}, nil)
	assert.Error(t, err)
}

func TestScheduler_StrokeLifecycle(t *testing.T) {
	var retired atomic.Int32
	s, mon := newScheduler(t, Config{
		MaxWorkers: 4,
		Hooks:      Hooks{OnStrokeRetired: func(StrokeState) { retired.Add(1) }},
	})
	var dabs atomic.Int32
	st := &testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "brush", StrategyName: "Brush"},
		init:         &JobData{Class: Sequential, Fn: func(JobControl) error { return nil }},
		finish:       &JobData{Class: Barrier, Fn: func(JobControl) error { return nil }},
		dab: func(data any) *JobData {
			return &JobData{Class: Concurrent, Payload: data, Fn: func(JobControl) error {
				dabs.Add(1)
				return nil
			}}
		},
	}
	start(s)

	id, err := s.StartStroke(st)
	require.NoError(t, err)
	info, err := s.StrokeInfo(id)
	require.NoError(t, err)
	assert.Equal(t, "Brush", info.Name)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddJob(id, i))
	}
	require.NoError(t, s.EndStroke(id))
	wait(t, s)

	assert.Equal(t, int32(5), dabs.Load())
	assert.Equal(t, int32(1), retired.Load())
	assert.Equal(t, 0, s.StrokeCount())
	_, err = s.StrokeInfo(id)
	assert.ErrorIs(t, err, ErrStrokeNotFound)

	last := mon.GetMetrics()[info.UUID]
	assert.Equal(t, Finished, last.Status)
	assert.Equal(t, 7, last.JobsDone)
	assert.True(t, last.EndedByUser)
}

func TestScheduler_BarrierWaitsForConcurrentJobs(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 8})

	var (
		running  atomic.Int32
		lastEnd  atomic.Int64
		violated atomic.Bool
	)
	st := &testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "filter"},
		dab: func(data any) *JobData {
			return &JobData{Class: Concurrent, Fn: func(JobControl) error {
				running.Add(1)
				time.Sleep(3 * time.Millisecond)
				lastEnd.Store(time.Now().UnixNano())
				running.Add(-1)
				return nil
			}}
		},
		finish: &JobData{Class: Barrier, Fn: func(JobControl) error {
			if running.Load() != 0 || time.Now().UnixNano() < lastEnd.Load() {
				violated.Store(true)
			}
			return nil
		}},
	}

	id, err := s.StartStroke(st)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddJob(id, i))
	}
	require.NoError(t, s.EndStroke(id))
	start(s)
	wait(t, s)

	assert.False(t, violated.Load(), "barrier overlapped a concurrent job")
}

func TestScheduler_ExclusiveStrokesNeverOverlap(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 8})

	var (
		mu       sync.Mutex
		active   = map[string]int{}
		violated atomic.Bool
	)
	body := func(name string, exclusive bool) Fn {
		return func(JobControl) error {
			mu.Lock()
			for other, n := range active {
				if other != name && n > 0 && (exclusive || other[0] == 'x') {
					violated.Store(true)
				}
			}
			active[name]++
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active[name]--
			mu.Unlock()
			return nil
		}
	}
	newStroke := func(name string, exclusive bool) *testStrategy {
		return &testStrategy{
			BaseStrategy: BaseStrategy{StrategyID: name, Flags: Policy{Exclusive: exclusive}},
			finish:       &JobData{Class: Barrier, Fn: body(name, exclusive)},
			dab: func(any) *JobData {
				return &JobData{Class: Concurrent, Fn: body(name, exclusive)}
			},
		}
	}
	start(s)

	// exclusive strategies are prefixed with x
	names := []string{"a", "x1", "b", "x2", "c", "x3"}
	for _, name := range names {
		id, err := s.StartStroke(newStroke(name, name[0] == 'x'))
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.AddJob(id, i))
		}
		require.NoError(t, s.EndStroke(id))
	}
	wait(t, s)

	assert.False(t, violated.Load(), "an exclusive stroke ran alongside another stroke")
}

func TestScheduler_MutatedJobsRunBeforeNextSequentialJob(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 4})
	rec := &recorder{}

	st := &testStrategy{BaseStrategy: BaseStrategy{StrategyID: "mutating"}}
	st.dab = func(data any) *JobData {
		name := data.(string)
		return &JobData{Class: Sequential, Payload: name, Fn: func(ctrl JobControl) error {
			rec.add(name)
			if name != "parent" {
				return nil
			}
			return ctrl.AddMutatedJobs(
				&JobData{Class: Sequential, Fn: func(JobControl) error { rec.add("m1"); return nil }},
				&JobData{Class: Sequential, Fn: func(JobControl) error { rec.add("m2"); return nil }},
			)
		}}
	}

	id, err := s.StartStroke(st)
	require.NoError(t, err)
	require.NoError(t, s.AddJob(id, "parent"))
	require.NoError(t, s.AddJob(id, "next"))
	require.NoError(t, s.EndStroke(id))
	start(s)
	wait(t, s)

	assert.Equal(t, []string{"parent", "m1", "m2", "next"}, rec.list())
}

func TestScheduler_CancelRunsOneCancelJob(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 2})

	var dabs, cancels atomic.Int32
	st := &testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "cancellable", Flags: Policy{NeedsExplicitCancel: true}},
		cancel: &JobData{Class: Sequential, Fn: func(ctrl JobControl) error {
			assert.NoError(t, ctrl.Context().Err())
			cancels.Add(1)
			return nil
		}},
		dab: func(any) *JobData {
			return &JobData{Class: Concurrent, Fn: func(JobControl) error {
				dabs.Add(1)
				return nil
			}}
		},
	}

	id, err := s.StartStroke(st)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddJob(id, i))
	}
	require.NoError(t, s.CancelStroke(id))
	require.NoError(t, s.CancelStroke(id))
	assert.ErrorIs(t, s.EndStroke(id), ErrStrokeEnded)

	start(s)
	wait(t, s)

	assert.Equal(t, int32(0), dabs.Load())
	assert.Equal(t, int32(1), cancels.Load())
}

func TestScheduler_ClearsRedoBeforeInit(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 4})
	rec := &recorder{}

	redo := func(name string) *testStrategy {
		return &testStrategy{
			BaseStrategy: BaseStrategy{StrategyID: name, Flags: Policy{Redo: true, NeedsExplicitCancel: true}},
			cancel: &JobData{Class: Sequential, Fn: func(JobControl) error {
				rec.add(name + "-cancel")
				return nil
			}},
		}
	}
	_, err := s.StartStroke(redo("r1"))
	require.NoError(t, err)
	_, err = s.StartStroke(redo("r2"))
	require.NoError(t, err)

	id, err := s.StartStroke(&testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "paint", Flags: DefaultPolicy()},
		init: &JobData{Class: Sequential, Fn: func(JobControl) error {
			rec.add("init")
			return nil
		}},
	})
	require.NoError(t, err)
	require.NoError(t, s.EndStroke(id))

	start(s)
	wait(t, s)

	assert.Equal(t, []string{"r1-cancel", "r2-cancel", "init"}, rec.list())
}

func TestScheduler_ExclusiveStrokeForgetsForgettable(t *testing.T) {
	var (
		mu      sync.Mutex
		retired = map[string]StrokeStatus{}
	)
	s, _ := newScheduler(t, Config{
		MaxWorkers: 2,
		Hooks: Hooks{OnStrokeRetired: func(st StrokeState) {
			mu.Lock()
			retired[st.StrategyID] = st.Status
			mu.Unlock()
		}},
	})
	start(s)

	f, err := s.StartStroke(&testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "preview", Flags: Policy{CanForgetAboutMe: true}},
	})
	require.NoError(t, err)
	info, err := s.StrokeInfo(f)
	require.NoError(t, err)
	assert.Equal(t, Running, info.Status)

	g, err := s.StartStroke(&testStrategy{
		BaseStrategy: BaseStrategy{StrategyID: "transform", Flags: Policy{Exclusive: true}},
	})
	require.NoError(t, err)
	require.NoError(t, s.EndStroke(g))
	wait(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, Cancelled, retired["preview"])
	assert.Equal(t, Finished, retired["transform"])
}

func TestScheduler_LevelOfDetailPreview(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 2, LevelOfDetail: 2})

	var (
		mu   sync.Mutex
		lods []int
	)
	dab := func(any) *JobData {
		return &JobData{Class: Concurrent, Fn: func(ctrl JobControl) error {
			mu.Lock()
			lods = append(lods, ctrl.LevelOfDetail())
			mu.Unlock()
			return nil
		}}
	}
	st := &testStrategy{BaseStrategy: BaseStrategy{StrategyID: "brush"}, dab: dab}
	st.clone = &testStrategy{BaseStrategy: BaseStrategy{StrategyID: "brush-lod"}, dab: dab}

	id, err := s.StartStroke(st)
	require.NoError(t, err)
	assert.Equal(t, 2, s.StrokeCount())
	require.NoError(t, s.AddJob(id, 1))
	require.NoError(t, s.EndStroke(id))
	start(s)
	wait(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{0, 2}, lods)
}

func TestScheduler_WaitTimesOut(t *testing.T) {
	s, _ := newScheduler(t, Config{})
	start(s)

	_, err := s.StartStroke(&testStrategy{BaseStrategy: BaseStrategy{StrategyID: "open"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestScheduler_Updates(t *testing.T) {
	s, _ := newScheduler(t, Config{MaxWorkers: 2})
	start(s)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddUpdate(UpdateJob{ID: "redraw", Fn: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	testutil.WaitForCondition(t, time.Second, func() bool { return ran.Load() == 10 }, "all updates ran")
	wait(t, s)
}

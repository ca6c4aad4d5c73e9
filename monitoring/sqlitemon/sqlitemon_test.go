package sqlitemon

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/osmike/strokes/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "strokes.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UpsertsPerStroke(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now()

	s.SaveMetrics(domain.StateDTO{
		UUID: "u1", StrokeID: "stroke-0.1", StrategyID: "brush", Name: "Brush",
		Status: domain.Running, StartAt: start,
	})
	s.SaveMetrics(domain.StateDTO{
		UUID: "u1", StrokeID: "stroke-0.1", StrategyID: "brush", Name: "Brush",
		Status: domain.Cancelling, JobsDone: 2, StartAt: start, Error: errors.New("boom"),
	})
	s.SaveMetrics(domain.StateDTO{
		UUID: "u1", StrokeID: "stroke-0.1", StrategyID: "brush", Name: "Brush",
		Status: domain.Cancelled, JobsDone: 3, StartAt: start, EndAt: start.Add(time.Second),
	})

	r, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Cancelled, r.Status)
	assert.Equal(t, 3, r.JobsDone)
	assert.Equal(t, "boom", r.Error, "error survives later snapshots")
	assert.Equal(t, start.UnixNano(), r.StartedAt.UnixNano())
	assert.Equal(t, start.Add(time.Second).UnixNano(), r.EndedAt.UnixNano())

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_History(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveMetrics(domain.StateDTO{
			UUID: id, StrategyID: "filter", Status: domain.Finished,
			StartAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	got, err := s.History(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].UUID)
	assert.Equal(t, "b", got[1].UUID)
}

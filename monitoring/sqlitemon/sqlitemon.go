// Package sqlitemon keeps a history of stroke snapshots in a SQLite database.
package sqlitemon

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/osmike/strokes/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS strokes (
	uuid       TEXT PRIMARY KEY,
	stroke_id  TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	lod        INTEGER NOT NULL,
	jobs_done  INTEGER NOT NULL,
	error      TEXT,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER,
	updated_at INTEGER NOT NULL
);`

const upsert = `
INSERT INTO strokes (uuid, stroke_id, strategy, name, status, lod, jobs_done, error, started_at, ended_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uuid) DO UPDATE SET
	status     = excluded.status,
	jobs_done  = excluded.jobs_done,
	error      = COALESCE(excluded.error, strokes.error),
	ended_at   = excluded.ended_at,
	updated_at = excluded.updated_at`

// Record is one row of the strokes table.
type Record struct {
	UUID      string
	StrokeID  string
	Strategy  string
	Name      string
	Status    domain.StrokeStatus
	LOD       int
	JobsDone  int
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Store implements domain.Monitoring by upserting every snapshot into the
// strokes table, one row per stroke UUID.
type Store struct {
	db     *sql.DB
	upsert *sql.Stmt
	log    *zap.Logger
}

// Open opens (creating if needed) the database at path and prepares the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	stmt, err := db.Prepare(upsert)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	return &Store{db: db, upsert: stmt, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.upsert.Close()
	return s.db.Close()
}

// SaveMetrics upserts the snapshot. Write errors are logged; monitoring
// never fails a stroke.
func (s *Store) SaveMetrics(state domain.StateDTO) {
	var errText, endedAt any
	if state.Error != nil {
		errText = state.Error.Error()
	}
	if !state.EndAt.IsZero() {
		endedAt = state.EndAt.UnixNano()
	}
	_, err := s.upsert.Exec(
		state.UUID, state.StrokeID, state.StrategyID, state.Name, string(state.Status),
		state.LevelOfDetail, state.JobsDone, errText,
		state.StartAt.UnixNano(), endedAt, time.Now().UnixNano(),
	)
	if err != nil {
		s.log.Warn("stroke snapshot not stored", zap.String("uuid", state.UUID), zap.Error(err))
	}
}

// Get returns the record of one stroke, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, uuid string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, stroke_id, strategy, name, status, lod, jobs_done, error, started_at, ended_at
		FROM strokes WHERE uuid = ?`, uuid)
	return scan(row)
}

// History returns the most recently started strokes, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, stroke_id, strategy, name, status, lod, jobs_done, error, started_at, ended_at
		FROM strokes
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (Record, error) {
	var (
		r       Record
		status  string
		errText sql.NullString
		started int64
		ended   sql.NullInt64
	)
	err := row.Scan(&r.UUID, &r.StrokeID, &r.Strategy, &r.Name, &status, &r.LOD, &r.JobsDone, &errText, &started, &ended)
	if err != nil {
		return Record{}, err
	}
	r.Status = domain.StrokeStatus(status)
	r.Error = errText.String
	r.StartedAt = time.Unix(0, started)
	if ended.Valid {
		r.EndedAt = time.Unix(0, ended.Int64)
	}
	return r, nil
}

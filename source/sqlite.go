package source

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ftahirops/airtop/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	ts        INTEGER NOT NULL,
	value     INTEGER,
	max_value INTEGER NOT NULL DEFAULT 10
);
CREATE INDEX IF NOT EXISTS readings_ts ON readings(ts);
`

// OpenDB opens (creating if needed) a SQLite reading store.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the readings table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Insert stores raw readings.
func Insert(ctx context.Context, db *sql.DB, readings []model.Reading) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO readings (ts, value, max_value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range readings {
		var v sql.NullInt64
		if r.Value != nil {
			v = sql.NullInt64{Int64: int64(*r.Value), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.Timestamp.Unix(), v, r.MaxValue); err != nil {
			return fmt.Errorf("insert reading at %s: %w", r.Timestamp.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// SQLite aggregates raw readings stored in a local database. Stored
// timestamps are unix seconds; periods are cut in loc.
type SQLite struct {
	db      *sql.DB
	scale   model.TimeScale
	refresh time.Duration
	loc     *time.Location
	now     func() time.Time
}

// NewSQLite creates a source for scale on db, bucketing in loc (nil means
// time.Local).
func NewSQLite(db *sql.DB, scale model.TimeScale, refresh time.Duration, loc *time.Location) *SQLite {
	if loc == nil {
		loc = time.Local
	}
	return &SQLite{db: db, scale: scale, refresh: refresh, loc: loc, now: time.Now}
}

func (s *SQLite) Scale() model.TimeScale { return s.scale }

func (s *SQLite) Subscribe(ctx context.Context) <-chan model.Batch {
	return poll(ctx, s.scale, s.refresh, s.fetch)
}

// bucket accumulates one period.
type bucket struct {
	start    time.Time
	sum, n   int64
	maxValue int
}

// fetch averages rows per period. strftime only knows UTC and the process
// zone, so periods are cut here with periodStart in s.loc.
func (s *SQLite) fetch(ctx context.Context) ([]model.Reading, error) {
	from := windowStart(s.scale, s.now(), s.loc)
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value, max_value FROM readings WHERE ts >= ? ORDER BY ts`, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var buckets []*bucket
	for rows.Next() {
		var (
			ts    int64
			value sql.NullInt64
			maxV  int
		)
		if err := rows.Scan(&ts, &value, &maxV); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		start := periodStart(s.scale, time.Unix(ts, 0), s.loc)
		if len(buckets) == 0 || !buckets[len(buckets)-1].start.Equal(start) {
			buckets = append(buckets, &bucket{start: start})
		}
		b := buckets[len(buckets)-1]
		if value.Valid {
			b.sum += value.Int64
			b.n++
		}
		if maxV > b.maxValue {
			b.maxValue = maxV
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	readings := make([]model.Reading, 0, len(buckets))
	for _, b := range buckets {
		r := model.Reading{Timestamp: b.start, MaxValue: b.maxValue}
		if b.n > 0 {
			v := int(math.Round(float64(b.sum) / float64(b.n)))
			r.Value = &v
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// ReadAverage averages present values in the scale window ending at cursor.
func (s *SQLite) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	from := windowStart(s.scale, cursor, s.loc)
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(value) FROM readings WHERE ts >= ? AND ts <= ? AND value IS NOT NULL`,
		from.Unix(), cursor.Unix()).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("query average: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return int(math.Round(avg.Float64)), nil
}

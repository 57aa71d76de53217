package source

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/model"
)

// OpenPool connects to PostgreSQL and checks the connection.
func OpenPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL configuration: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create PostgreSQL pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Printf("airtop: postgres pool ready host=%s db=%s table=%s",
		poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Database, cfg.Table)
	return pool, nil
}

// Postgres aggregates raw readings from a table with columns
// (ts timestamptz, value integer NULL, max_value integer).
type Postgres struct {
	pool    *pgxpool.Pool
	table   string
	zone    string
	scale   model.TimeScale
	refresh time.Duration
	loc     *time.Location
	now     func() time.Time
}

// NewPostgres creates a source for scale sharing pool.
func NewPostgres(pool *pgxpool.Pool, cfg config.Config, scale model.TimeScale) *Postgres {
	zone, loc := zoneFor(cfg)
	return &Postgres{
		pool:    pool,
		table:   cfg.Postgres.Table,
		zone:    zone,
		scale:   scale,
		refresh: cfg.Refresh(),
		loc:     loc,
		now:     time.Now,
	}
}

// zoneFor returns an IANA zone name the server understands and the matching
// location. Without a configured zone, a process zone named "Local" cannot be
// sent to the server, so UTC is used.
func zoneFor(cfg config.Config) (string, *time.Location) {
	if loc, err := cfg.Location(); err == nil && loc.String() != "Local" {
		return loc.String(), loc
	}
	return "UTC", time.UTC
}

func (s *Postgres) Scale() model.TimeScale { return s.scale }

// truncUnit is the date_trunc unit naming one period at scale.
func truncUnit(scale model.TimeScale) string {
	switch scale {
	case model.ScaleDays:
		return "day"
	case model.ScaleMonths:
		return "month"
	default:
		return "hour"
	}
}

// historySQL buckets readings in the source's time zone; the zone name is
// passed as a parameter so the bucket boundaries match periodStart.
func (s *Postgres) historySQL() string {
	return fmt.Sprintf(`
		SELECT date_trunc('%s', ts AT TIME ZONE $1) AS bucket,
		       AVG(value)::float8,
		       MAX(max_value)
		FROM %s
		WHERE ts >= $2
		GROUP BY bucket
		ORDER BY bucket`, truncUnit(s.scale), pgx.Identifier{s.table}.Sanitize())
}

func (s *Postgres) averageSQL() string {
	return fmt.Sprintf(`SELECT AVG(value)::float8 FROM %s WHERE ts >= $1 AND ts <= $2 AND value IS NOT NULL`,
		pgx.Identifier{s.table}.Sanitize())
}

func (s *Postgres) Subscribe(ctx context.Context) <-chan model.Batch {
	return poll(ctx, s.scale, s.refresh, s.fetch)
}

func (s *Postgres) fetch(ctx context.Context) ([]model.Reading, error) {
	from := windowStart(s.scale, s.now(), s.loc)
	rows, err := s.pool.Query(ctx, s.historySQL(), s.zone, from)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		var (
			bucket time.Time
			avg    *float64
			maxV   int32
		)
		if err := rows.Scan(&bucket, &avg, &maxV); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		// bucket is a wall-clock time in s.loc.
		r := model.Reading{
			Timestamp: time.Date(bucket.Year(), bucket.Month(), bucket.Day(), bucket.Hour(), 0, 0, 0, s.loc),
			MaxValue:  int(maxV),
		}
		if avg != nil {
			v := int(math.Round(*avg))
			r.Value = &v
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return readings, nil
}

// ReadAverage averages present values in the scale window ending at cursor.
func (s *Postgres) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	from := windowStart(s.scale, cursor, s.loc)
	var avg *float64
	if err := s.pool.QueryRow(ctx, s.averageSQL(), from, cursor).Scan(&avg); err != nil {
		return 0, fmt.Errorf("query average: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return int(math.Round(*avg)), nil
}

package source

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/model"
)

// Influx reads aggregated history from InfluxDB.
type Influx struct {
	client   influxdb2.Client
	cfg      config.InfluxConfig
	scale    model.TimeScale
	maxValue int
	refresh  time.Duration
	loc      *time.Location
	now      func() time.Time
}

// NewInfluxClient connects to the configured server.
func NewInfluxClient(cfg config.InfluxConfig) influxdb2.Client {
	return influxdb2.NewClient(cfg.URL, cfg.Token)
}

// NewInflux creates a source for scale sharing client.
func NewInflux(client influxdb2.Client, cfg config.Config, scale model.TimeScale, loc *time.Location) *Influx {
	if loc == nil {
		loc = time.Local
	}
	return &Influx{
		client:   client,
		cfg:      cfg.Influx,
		scale:    scale,
		maxValue: cfg.MaxValue,
		refresh:  cfg.Refresh(),
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Influx) Scale() model.TimeScale { return s.scale }

// windowEvery is the aggregateWindow period for each scale.
func windowEvery(scale model.TimeScale) string {
	switch scale {
	case model.ScaleDays:
		return "1d"
	case model.ScaleMonths:
		return "1mo"
	default:
		return "1h"
	}
}

func (s *Influx) filters() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\t\t|> filter(fn: (r) => r[\"_measurement\"] == %q)", s.cfg.Measurement)
	fmt.Fprintf(&sb, "\n\t\t|> filter(fn: (r) => r[\"_field\"] == %q)", s.cfg.Field)
	if s.cfg.DeviceID != "" {
		fmt.Fprintf(&sb, "\n\t\t|> filter(fn: (r) => r[\"device_id\"] == %q)", s.cfg.DeviceID)
	}
	return sb.String()
}

// historyQuery builds the Flux query for the window ending at now.
func (s *Influx) historyQuery(now time.Time) string {
	start := windowStart(s.scale, now, s.loc)
	stop := step(s.scale, periodStart(s.scale, now, s.loc), 1)
	return fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: %s, stop: %s)%s
		|> aggregateWindow(every: %s, fn: mean, createEmpty: true, timeSrc: "_start")
		|> yield(name: "mean")
	`, s.cfg.Bucket, start.UTC().Format(time.RFC3339), stop.UTC().Format(time.RFC3339), s.filters(), windowEvery(s.scale))
}

// averageQuery builds the Flux query for the banner average.
func (s *Influx) averageQuery(cursor time.Time) string {
	start := windowStart(s.scale, cursor, s.loc)
	return fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: %s, stop: %s)%s
		|> mean()
	`, s.cfg.Bucket, start.UTC().Format(time.RFC3339), cursor.UTC().Format(time.RFC3339), s.filters())
}

// ReadAverage returns the mean over the scale window ending at cursor.
func (s *Influx) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	result, err := s.client.QueryAPI(s.cfg.Org).Query(ctx, s.averageQuery(cursor))
	if err != nil {
		return 0, fmt.Errorf("error querying InfluxDB: %w", err)
	}
	defer result.Close()
	avg := 0
	for result.Next() {
		if v, ok := toFloat(result.Record().Value()); ok {
			avg = int(math.Round(v))
		}
	}
	if result.Err() != nil {
		return 0, fmt.Errorf("error reading InfluxDB result: %w", result.Err())
	}
	return avg, nil
}

func (s *Influx) Subscribe(ctx context.Context) <-chan model.Batch {
	return poll(ctx, s.scale, s.refresh, s.fetch)
}

func (s *Influx) fetch(ctx context.Context) ([]model.Reading, error) {
	result, err := s.client.QueryAPI(s.cfg.Org).Query(ctx, s.historyQuery(s.now()))
	if err != nil {
		return nil, fmt.Errorf("error querying InfluxDB: %w", err)
	}
	defer result.Close()

	var readings []model.Reading
	for result.Next() {
		rec := result.Record()
		r := model.Reading{Timestamp: rec.Time(), MaxValue: s.maxValue}
		if v, ok := toFloat(rec.Value()); ok {
			iv := int(math.Round(v))
			r.Value = &iv
		}
		if mv, ok := toFloat(rec.ValueByKey("max_value")); ok {
			r.MaxValue = int(mv)
		}
		readings = append(readings, r)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error reading InfluxDB result: %w", result.Err())
	}
	log.Printf("airtop: influx %s: %d readings", s.scale, len(readings))
	return readings, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

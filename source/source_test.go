package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/model"
)

func collect(ch <-chan model.Batch) []model.Batch {
	var out []model.Batch
	for b := range ch {
		out = append(out, b)
	}
	return out
}

func TestPeriodStart(t *testing.T) {
	ts := time.Date(2024, 3, 15, 13, 47, 12, 0, time.UTC)
	tests := []struct {
		scale model.TimeScale
		want  time.Time
	}{
		{model.ScaleHours, time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)},
		{model.ScaleDays, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{model.ScaleMonths, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.scale.String(), func(t *testing.T) {
			if got := periodStart(tt.scale, ts, time.UTC); !got.Equal(tt.want) {
				t.Errorf("periodStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 47, 0, 0, time.UTC)
	tests := []struct {
		scale model.TimeScale
		want  time.Time
	}{
		{model.ScaleHours, time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)},
		{model.ScaleDays, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{model.ScaleMonths, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.scale.String(), func(t *testing.T) {
			if got := windowStart(tt.scale, now, time.UTC); !got.Equal(tt.want) {
				t.Errorf("windowStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPollSingleBatch(t *testing.T) {
	calls := 0
	ch := poll(context.Background(), model.ScaleDays, 0, func(context.Context) ([]model.Reading, error) {
		calls++
		return []model.Reading{{MaxValue: 10}}, nil
	})
	got := collect(ch)
	if len(got) != 1 || calls != 1 {
		t.Fatalf("batches = %d, calls = %d, want 1/1", len(got), calls)
	}
	if got[0].Scale != model.ScaleDays || len(got[0].Readings) != 1 {
		t.Errorf("batch = %+v", got[0])
	}
}

func TestPollErrorEndsSubscription(t *testing.T) {
	boom := errors.New("query failed")
	ch := poll(context.Background(), model.ScaleHours, time.Millisecond, func(context.Context) ([]model.Reading, error) {
		return nil, boom
	})
	got := collect(ch)
	if len(got) != 1 || !errors.Is(got[0].Err, boom) {
		t.Fatalf("got %+v, want one failed batch", got)
	}
}

func TestPollRefreshUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := poll(ctx, model.ScaleHours, time.Millisecond, func(context.Context) ([]model.Reading, error) {
		return nil, nil
	})
	for i := 0; i < 3; i++ {
		if _, ok := <-ch; !ok {
			t.Fatalf("closed after %d batches", i)
		}
	}
	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after cancel")
		}
	}
}

func TestDemoDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	for _, scale := range []model.TimeScale{model.ScaleHours, model.ScaleDays, model.ScaleMonths} {
		t.Run(scale.String(), func(t *testing.T) {
			a := collect(NewDemo(scale, 10, time.UTC, WithClock(clock), WithSeed(7)).Subscribe(context.Background()))
			b := collect(NewDemo(scale, 10, time.UTC, WithClock(clock), WithSeed(7)).Subscribe(context.Background()))
			if len(a) != 1 || len(b) != 1 {
				t.Fatalf("batches = %d/%d, want 1", len(a), len(b))
			}
			ra, rb := a[0].Readings, b[0].Readings
			if len(ra) != periodCount(scale) || len(rb) != len(ra) {
				t.Fatalf("readings = %d/%d, want %d", len(ra), len(rb), periodCount(scale))
			}
			for i := range ra {
				if !ra[i].Timestamp.Equal(rb[i].Timestamp) || ra[i].ValueOrZero() != rb[i].ValueOrZero() {
					t.Fatalf("reading %d differs: %+v vs %+v", i, ra[i], rb[i])
				}
				if v := ra[i].ValueOrZero(); v < 0 || v > 10 {
					t.Errorf("reading %d value %d out of range", i, v)
				}
				if i > 0 && !ra[i].Timestamp.After(ra[i-1].Timestamp) {
					t.Errorf("reading %d not after %d", i, i-1)
				}
			}
			if last := ra[len(ra)-1].Timestamp; !last.Equal(periodStart(scale, now, time.UTC)) {
				t.Errorf("last reading at %v, want current period", last)
			}
		})
	}
}

func TestDemoAverageInRange(t *testing.T) {
	d := NewDemo(model.ScaleDays, 10, time.UTC, WithSeed(3))
	v, err := d.ReadAverage(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadAverage: %v", err)
	}
	if v < 0 || v > 10 {
		t.Errorf("average %d out of range", v)
	}
}

func TestSynthesize(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := Synthesize(from, from.Add(24*time.Hour), 15*time.Minute, 10, 1)
	if len(got) != 96 {
		t.Fatalf("readings = %d, want 96", len(got))
	}
	if Synthesize(from, from, time.Minute, 10, 1) != nil {
		t.Error("empty range: want nil")
	}
}

func TestSQLiteAggregates(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "air.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)
	ctx := context.Background()
	err = Insert(ctx, db, []model.Reading{
		{Timestamp: base.AddDate(0, 0, -3), Value: model.IntPtr(1), MaxValue: 10}, // outside the window
		{Timestamp: base.Add(15 * time.Minute), Value: model.IntPtr(3), MaxValue: 10},
		{Timestamp: base.Add(45 * time.Minute), Value: model.IntPtr(6), MaxValue: 10},
		{Timestamp: base.Add(90 * time.Minute), MaxValue: 10},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	s := NewSQLite(db, model.ScaleHours, 0, nil)
	now := base.Add(2 * time.Hour)
	s.now = func() time.Time { return now }

	batches := collect(s.Subscribe(ctx))
	if len(batches) != 1 || batches[0].Err != nil {
		t.Fatalf("batches = %+v", batches)
	}
	rs := batches[0].Readings
	if len(rs) != 2 {
		t.Fatalf("readings = %d, want 2", len(rs))
	}
	if !rs[0].Timestamp.Equal(base) || rs[0].Value == nil || *rs[0].Value != 5 {
		t.Errorf("first bucket = %v/%v, want %v/5", rs[0].Timestamp, rs[0].Value, base)
	}
	if !rs[1].Timestamp.Equal(base.Add(time.Hour)) || rs[1].Value != nil {
		t.Errorf("second bucket = %v/%v, want %v/nil", rs[1].Timestamp, rs[1].Value, base.Add(time.Hour))
	}
	if rs[0].MaxValue != 10 {
		t.Errorf("max value = %d", rs[0].MaxValue)
	}

	avg, err := s.ReadAverage(ctx, now)
	if err != nil {
		t.Fatalf("ReadAverage: %v", err)
	}
	if avg != 5 {
		t.Errorf("average = %d, want 5", avg)
	}
}

func TestSQLiteBucketsInConfiguredZone(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "air.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	// 2024-03-04 22:30 UTC is already 03-05 in UTC+3.
	zone := time.FixedZone("UTC+3", 3*3600)
	ctx := context.Background()
	err = Insert(ctx, db, []model.Reading{
		{Timestamp: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), Value: model.IntPtr(2), MaxValue: 10},
		{Timestamp: time.Date(2024, 3, 4, 22, 30, 0, 0, time.UTC), Value: model.IntPtr(8), MaxValue: 10},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	s := NewSQLite(db, model.ScaleDays, 0, zone)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, zone) }
	batches := collect(s.Subscribe(ctx))
	if len(batches) != 1 || batches[0].Err != nil {
		t.Fatalf("batches = %+v", batches)
	}
	rs := batches[0].Readings
	if len(rs) != 2 {
		t.Fatalf("readings = %d, want 2 days", len(rs))
	}
	want := []time.Time{
		time.Date(2024, 3, 4, 0, 0, 0, 0, zone),
		time.Date(2024, 3, 5, 0, 0, 0, 0, zone),
	}
	for i, r := range rs {
		if !r.Timestamp.Equal(want[i]) {
			t.Errorf("bucket %d = %v, want %v", i, r.Timestamp, want[i])
		}
	}
	if *rs[1].Value != 8 {
		t.Errorf("second day = %d, want 8", *rs[1].Value)
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Timezone = "UTC"
	open, closer, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open demo: %v", err)
	}
	src, err := open(model.ScaleMonths)
	if err != nil || src.Scale() != model.ScaleMonths {
		t.Fatalf("demo source = %v, %v", src, err)
	}
	if err := closer(); err != nil {
		t.Errorf("close: %v", err)
	}

	cfg.Source = config.SourceSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "air.db")
	open, closer, err = Open(cfg)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer closer()
	if src, err := open(model.ScaleHours); err != nil || src.Scale() != model.ScaleHours {
		t.Fatalf("sqlite source = %v, %v", src, err)
	}

	cfg.Source = config.SourceInflux
	if _, _, err := Open(cfg); err == nil {
		t.Error("incomplete influx config: expected error")
	}
}

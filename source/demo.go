package source

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ftahirops/airtop/model"
)

// Demo generates a deterministic synthetic air-quality history.
type Demo struct {
	scale    model.TimeScale
	maxValue int
	refresh  time.Duration
	loc      *time.Location
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// DemoOption customizes a Demo source.
type DemoOption func(*Demo)

// WithClock fixes the clock used to place the window.
func WithClock(now func() time.Time) DemoOption {
	return func(d *Demo) { d.now = now }
}

// WithSeed fixes the random seed.
func WithSeed(seed int64) DemoOption {
	return func(d *Demo) { d.rng = rand.New(rand.NewSource(seed)) }
}

// WithRefresh republishes a fresh batch every interval.
func WithRefresh(interval time.Duration) DemoOption {
	return func(d *Demo) { d.refresh = interval }
}

// NewDemo creates a demo source for scale.
func NewDemo(scale model.TimeScale, maxValue int, loc *time.Location, opts ...DemoOption) *Demo {
	if loc == nil {
		loc = time.Local
	}
	d := &Demo{
		scale:    scale,
		maxValue: maxValue,
		loc:      loc,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(1)),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Demo) Scale() model.TimeScale { return d.scale }

// ReadAverage averages the generated window, skipping missing values.
func (d *Demo) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	readings := d.generate(cursor)
	sum, n := 0, 0
	for _, r := range readings {
		if r.Value != nil {
			sum += *r.Value
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return int(math.Round(float64(sum) / float64(n))), nil
}

func (d *Demo) Subscribe(ctx context.Context) <-chan model.Batch {
	return poll(ctx, d.scale, d.refresh, func(context.Context) ([]model.Reading, error) {
		return d.generate(d.now()), nil
	})
}

// generate produces one reading per period of the window ending at now.
// Values follow a wave over the window with noise; roughly one in twelve is
// missing.
func (d *Demo) generate(now time.Time) []model.Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := periodCount(d.scale)
	start := windowStart(d.scale, now, d.loc)
	out := make([]model.Reading, 0, n)
	for i := 0; i < n; i++ {
		ts := step(d.scale, start, i)
		out = append(out, sample(d.rng, ts, float64(i)/float64(n), d.maxValue))
	}
	return out
}

// Synthesize generates raw readings every interval in [from, to), following
// a daily wave. Used to seed a reading store.
func Synthesize(from, to time.Time, every time.Duration, maxValue int, seed int64) []model.Reading {
	if every <= 0 || !from.Before(to) {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	var out []model.Reading
	for ts := from; ts.Before(to); ts = ts.Add(every) {
		h := ts.Hour()*60 + ts.Minute()
		out = append(out, sample(rng, ts, float64(h)/(24*60), maxValue))
	}
	return out
}

// sample draws one reading at phase in [0, 1) of a wave cycle.
func sample(rng *rand.Rand, ts time.Time, phase float64, maxValue int) model.Reading {
	r := model.Reading{Timestamp: ts, MaxValue: maxValue}
	if rng.Intn(12) == 0 {
		return r
	}
	wave := math.Sin(phase * 2 * math.Pi)
	v := int(math.Round(float64(maxValue)/2 + wave*float64(maxValue)/3 + rng.NormFloat64()))
	if v < 0 {
		v = 0
	}
	if v > maxValue {
		v = maxValue
	}
	r.Value = &v
	return r
}

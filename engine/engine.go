package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ftahirops/airtop/model"
)

// ErrStale is returned for results that belong to a superseded scale selection.
var ErrStale = errors.New("stale result for superseded scale")

// Pipeline runs factory -> grouper -> reconciler -> scroll invariant for one
// batch at a time and owns the currently rendered snapshot.
type Pipeline struct {
	factory Factory
	rec     *Reconciler
	Metrics *MetricsStore

	applyMu sync.Mutex // single writer: serializes Apply/SwitchScale

	mu      sync.RWMutex // guards the fields below for readers
	scale   model.TimeScale
	gen     uint64
	session string
	snap    *model.Update
	banner  *model.Banner
}

// NewPipeline creates a pipeline for the initial scale, bucketing in loc.
func NewPipeline(scale model.TimeScale, loc *time.Location) *Pipeline {
	return &Pipeline{
		factory: NewFactory(loc),
		rec:     NewReconciler(),
		scale:   scale,
		gen:     1,
		session: uuid.NewString(),
	}
}

// Current returns the active scale and its generation.
func (p *Pipeline) Current() (model.TimeScale, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scale, p.gen
}

// Session identifies the current scale selection in logs.
func (p *Pipeline) Session() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// SwitchScale tears down all state of the previous selection. Results tagged
// with an older generation are rejected from now on.
func (p *Pipeline) SwitchScale(scale model.TimeScale) uint64 {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.rec.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.scale = scale
	p.gen++
	p.session = uuid.NewString()
	p.snap = nil
	p.banner = nil
	return p.gen
}

// Snapshot returns the currently rendered update, or nil before the first batch.
func (p *Pipeline) Snapshot() *model.Update {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Banner returns the last applied banner, or nil.
func (p *Pipeline) Banner() *model.Banner {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.banner
}

// Tracked returns how many on-screen cells the reconciler follows.
func (p *Pipeline) Tracked() int {
	return p.rec.Tracked()
}

// Bind records a payload the render surface configured itself.
func (p *Pipeline) Bind(item model.DisplayItem) {
	p.rec.Bind(item)
}

// Apply processes one batch produced under generation gen. visible lists the
// keys the render surface currently shows. A subscription failure is
// returned unchanged.
func (p *Pipeline) Apply(gen uint64, b model.Batch, visible []model.ItemKey) (*model.Update, error) {
	if b.Err != nil {
		return nil, b.Err
	}

	// Building items and sections is pure; do it before taking the writer lock.
	items := p.factory.MakeAll(Dedupe(b.Readings), b.Scale)
	sections := Group(items)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	scale, cur := p.Current()
	if gen != cur || b.Scale != scale {
		p.Metrics.stale()
		return nil, ErrStale
	}

	decls, refreshes := p.rec.Reconcile(sections, visible)
	upd := &model.Update{
		Scale:      b.Scale,
		Generation: gen,
		Sections:   sections,
		Decls:      decls,
		Refreshes:  refreshes,
		ItemCount:  countItems(sections),
		AppliedAt:  time.Now(),
	}
	if key, ok := ScrollTarget(sections); ok {
		upd.Scroll = &key
	}

	p.mu.Lock()
	p.snap = upd
	banner := p.banner
	p.mu.Unlock()

	p.Metrics.Update(upd, banner)
	return upd, nil
}

// ApplyAverage stores the banner for an aggregate value read under gen.
func (p *Pipeline) ApplyAverage(gen uint64, value int) (model.Banner, error) {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	scale, cur := p.Current()
	if gen != cur {
		p.Metrics.stale()
		return model.Banner{}, ErrStale
	}
	b := MakeBanner(value, scale)

	p.mu.Lock()
	p.banner = &b
	snap := p.snap
	p.mu.Unlock()

	p.Metrics.Update(snap, &b)
	return b, nil
}

// Run reads the banner average and then every batch of one subscription of
// src, in publish order, handing each applied update to sink. Stale results
// are dropped. It returns when the subscription ends, ctx is done, or the
// subscription fails.
func (p *Pipeline) Run(ctx context.Context, src Source, gen uint64, visible func() []model.ItemKey, sink func(*model.Update, *model.Banner)) error {
	avg, err := src.ReadAverage(ctx, time.Now())
	if err != nil {
		log.Printf("airtop: read average (%s): %v", src.Scale(), err)
	} else if b, err := p.ApplyAverage(gen, avg); err == nil {
		sink(p.Snapshot(), &b)
	}

	for batch := range src.Subscribe(ctx) {
		var keys []model.ItemKey
		if visible != nil {
			keys = visible()
		}
		upd, err := p.Apply(gen, batch, keys)
		if errors.Is(err, ErrStale) {
			log.Printf("airtop: dropped stale %s batch (gen %d)", batch.Scale, gen)
			continue
		}
		if err != nil {
			return fmt.Errorf("subscription %s: %w", src.Scale(), err)
		}
		sink(upd, p.Banner())
	}
	return ctx.Err()
}

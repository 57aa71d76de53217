package source

import (
	"context"
	"time"

	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

type fetchFunc func(ctx context.Context) ([]model.Reading, error)

// poll publishes one batch right away and then one per refresh interval
// until ctx is done. A zero interval publishes a single batch. A fetch error
// is published once as a failed batch and ends the subscription.
func poll(ctx context.Context, scale model.TimeScale, refresh time.Duration, fetch fetchFunc) <-chan model.Batch {
	out := make(chan model.Batch)
	go func() {
		defer close(out)
		var tick <-chan time.Time
		if refresh > 0 {
			t := time.NewTicker(refresh)
			defer t.Stop()
			tick = t.C
		}
		for {
			readings, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			if !engine.SendBatch(ctx, out, model.Batch{Scale: scale, Readings: readings, Err: err}) || err != nil {
				return
			}
			if tick == nil {
				return
			}
			select {
			case <-tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

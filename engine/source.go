package engine

import (
	"context"
	"time"

	"github.com/ftahirops/airtop/model"
)

// Source abstracts a data source bound to one time scale.
type Source interface {
	// ReadAverage returns the aggregate value shown by the banner for the
	// period ending at cursor.
	ReadAverage(ctx context.Context, cursor time.Time) (int, error)
	// Subscribe starts a fresh sequence of batches. The channel is closed
	// when the sequence ends or ctx is done.
	Subscribe(ctx context.Context) <-chan model.Batch
	// Scale returns the scale the source was opened for.
	Scale() model.TimeScale
}

// SourceFactory opens a source for a scale.
type SourceFactory func(scale model.TimeScale) (Source, error)

// SendBatch delivers b on ch unless ctx is done first.
func SendBatch(ctx context.Context, ch chan<- model.Batch, b model.Batch) bool {
	select {
	case ch <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

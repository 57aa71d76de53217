package engine

import (
	"time"

	"github.com/ftahirops/airtop/model"
)

// Factory turns raw readings into display items.
type Factory struct {
	Policy Policy
}

// NewFactory creates a factory bucketing in loc (nil = time.Local).
func NewFactory(loc *time.Location) Factory {
	return Factory{Policy: NewPolicy(loc)}
}

// Make builds the display item for one reading. A missing value counts as 0.
func (f Factory) Make(r model.Reading, scale model.TimeScale) model.DisplayItem {
	v := r.ValueOrZero()
	return model.DisplayItem{
		SectionID: f.Policy.BucketID(r.Timestamp, scale),
		Value:     v,
		MaxValue:  r.MaxValue,
		Timestamp: f.Policy.local(r.Timestamp),
		Layout:    CellLayout(scale),
		State:     Classify(v),
	}
}

// MakeAll maps a batch, preserving input order.
func (f Factory) MakeAll(readings []model.Reading, scale model.TimeScale) []model.DisplayItem {
	items := make([]model.DisplayItem, len(readings))
	for i, r := range readings {
		items[i] = f.Make(r, scale)
	}
	return items
}

// Dedupe collapses readings sharing a timestamp. The last reading wins but
// keeps the position of the first occurrence, so the strip order is stable.
func Dedupe(readings []model.Reading) []model.Reading {
	if len(readings) < 2 {
		return readings
	}
	pos := make(map[int64]int, len(readings))
	out := make([]model.Reading, 0, len(readings))
	for _, r := range readings {
		k := r.Timestamp.UnixNano()
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

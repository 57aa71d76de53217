package engine

import (
	"time"

	"github.com/ftahirops/airtop/model"
)

// Layouts for section ids and cell labels, per scale.
const (
	hoursBucketLayout  = "02 Mon" // day of month + weekday
	daysBucketLayout   = "Jan"
	monthsBucketLayout = "2006"

	hoursCellLayout  = "15:00"
	daysCellLayout   = "02 Jan"
	monthsCellLayout = "Jan"
)

// Policy maps timestamps to bucket ids and cell layouts for a time zone.
type Policy struct {
	Location *time.Location
}

// NewPolicy returns a policy for loc; nil means time.Local.
func NewPolicy(loc *time.Location) Policy {
	if loc == nil {
		loc = time.Local
	}
	return Policy{Location: loc}
}

func (p Policy) local(ts time.Time) time.Time {
	if p.Location == nil {
		return ts.In(time.Local)
	}
	return ts.In(p.Location)
}

// BucketID returns the section id a timestamp falls into at the given scale.
func (p Policy) BucketID(ts time.Time, scale model.TimeScale) string {
	return p.local(ts).Format(bucketLayout(scale))
}

// CellLayout returns the label layout for cells at the given scale.
func CellLayout(scale model.TimeScale) string {
	switch scale {
	case model.ScaleDays:
		return daysCellLayout
	case model.ScaleMonths:
		return monthsCellLayout
	default:
		return hoursCellLayout
	}
}

func bucketLayout(scale model.TimeScale) string {
	switch scale {
	case model.ScaleDays:
		return daysBucketLayout
	case model.ScaleMonths:
		return monthsBucketLayout
	default:
		return hoursBucketLayout
	}
}

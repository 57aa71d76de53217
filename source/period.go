package source

import (
	"time"

	"github.com/ftahirops/airtop/model"
)

// periodStart truncates t to the start of its reading period at scale:
// the hour for Hours, the day for Days, the month for Months.
func periodStart(scale model.TimeScale, t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	switch scale {
	case model.ScaleDays:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case model.ScaleMonths:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	}
}

// step advances a period start by n periods.
func step(scale model.TimeScale, t time.Time, n int) time.Time {
	switch scale {
	case model.ScaleDays:
		return t.AddDate(0, 0, n)
	case model.ScaleMonths:
		return t.AddDate(0, n, 0)
	default:
		return t.Add(time.Duration(n) * time.Hour)
	}
}

// periodCount is how many readings one scale shows: a day of hours,
// a month of days, a year of months.
func periodCount(scale model.TimeScale) int {
	switch scale {
	case model.ScaleDays:
		return 31
	case model.ScaleMonths:
		return 12
	default:
		return 24
	}
}

// windowStart returns the first period start of the window ending at now.
func windowStart(scale model.TimeScale, now time.Time, loc *time.Location) time.Time {
	return step(scale, periodStart(scale, now, loc), -(periodCount(scale) - 1))
}

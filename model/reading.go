package model

import (
	"fmt"
	"strings"
	"time"
)

// Reading is one raw sample delivered by a data source.
type Reading struct {
	Timestamp time.Time `json:"ts"`
	Value     *int      `json:"value,omitempty"` // nil when the sensor reported nothing
	MaxValue  int       `json:"max_value"`
}

// IntPtr is a helper for building readings with a present value.
func IntPtr(v int) *int { return &v }

// ValueOrZero returns the reading value, or 0 when absent.
func (r Reading) ValueOrZero() int {
	if r.Value == nil {
		return 0
	}
	return *r.Value
}

// Batch is one element of a source subscription.
// A non-nil Err means the subscription failed; Readings is then ignored.
type Batch struct {
	Scale    TimeScale `json:"scale"`
	Readings []Reading `json:"readings"`
	Err      error     `json:"-"`
}

// TimeScale selects the bucketing granularity of the history strip.
type TimeScale int

const (
	ScaleHours TimeScale = iota
	ScaleDays
	ScaleMonths
)

// ToggleScales is the left-to-right order of the scale toggle bar.
var ToggleScales = []TimeScale{ScaleMonths, ScaleDays, ScaleHours}

func (s TimeScale) String() string {
	switch s {
	case ScaleHours:
		return "hours"
	case ScaleDays:
		return "days"
	case ScaleMonths:
		return "months"
	}
	return "unknown"
}

// Short returns the one-letter toggle label.
func (s TimeScale) Short() string {
	switch s {
	case ScaleHours:
		return "H"
	case ScaleDays:
		return "D"
	case ScaleMonths:
		return "M"
	}
	return "?"
}

// Next returns the scale to the right of s in the toggle bar, wrapping around.
func (s TimeScale) Next() TimeScale {
	for i, ts := range ToggleScales {
		if ts == s {
			return ToggleScales[(i+1)%len(ToggleScales)]
		}
	}
	return ToggleScales[0]
}

// ParseTimeScale accepts "hours", "h", "days", "d", "months", "m" (any case).
func ParseTimeScale(s string) (TimeScale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hours", "hour", "h":
		return ScaleHours, nil
	case "days", "day", "d":
		return ScaleDays, nil
	case "months", "month", "m":
		return ScaleMonths, nil
	}
	return ScaleHours, fmt.Errorf("unknown time scale %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s TimeScale) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TimeScale) UnmarshalText(b []byte) error {
	v, err := ParseTimeScale(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

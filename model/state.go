package model

// BalanceState is the per-cell classification of a reading.
type BalanceState int

const (
	StateOff BalanceState = iota
	StateLow
	StateBalanced
	StateHigh
)

func (s BalanceState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateLow:
		return "low"
	case StateBalanced:
		return "balanced"
	case StateHigh:
		return "high"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s BalanceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BannerState is the coarse classification shown by the summary banner.
// It has its own range table and is not derived from BalanceState.
type BannerState int

const (
	BannerLow BannerState = iota
	BannerBalanced
	BannerHigh
)

func (s BannerState) String() string {
	switch s {
	case BannerLow:
		return "low"
	case BannerBalanced:
		return "balanced"
	case BannerHigh:
		return "high"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s BannerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Banner is the summary shown above the strip.
type Banner struct {
	MainValue   int         `json:"main_value"`
	State       BannerState `json:"state"`
	Caption     string      `json:"caption"`
	Description string      `json:"description"`
}

package engine

import (
	"math"

	"github.com/ftahirops/airtop/model"
)

type valueRange struct {
	state  model.BalanceState
	lo, hi int // inclusive
}

// cellRanges is the per-cell classification table. Values outside every
// range fall back to StateOff.
var cellRanges = []valueRange{
	{model.StateOff, 0, 0},
	{model.StateLow, 1, 5},
	{model.StateBalanced, 6, 7},
	{model.StateHigh, 8, 11},
}

// Classify maps a reading value to its cell state.
func Classify(value int) model.BalanceState {
	for _, r := range cellRanges {
		if value >= r.lo && value <= r.hi {
			return r.state
		}
	}
	return model.StateOff
}

type bannerRange struct {
	state  model.BannerState
	lo, hi int
}

// bannerRanges is coarser than cellRanges and has different boundaries.
var bannerRanges = []bannerRange{
	{model.BannerLow, math.MinInt, 3},
	{model.BannerBalanced, 4, 6},
	{model.BannerHigh, 7, math.MaxInt},
}

// BannerStateFor maps an aggregate value to the banner state.
func BannerStateFor(value int) model.BannerState {
	for _, r := range bannerRanges {
		if value >= r.lo && value <= r.hi {
			return r.state
		}
	}
	return model.BannerHigh
}

// BannerText returns the banner caption for a scale.
func BannerText(scale model.TimeScale) string {
	switch scale {
	case model.ScaleDays:
		return "Your air for a month"
	case model.ScaleMonths:
		return "Your air for a year"
	default:
		return "Your air for a day"
	}
}

// BannerDescription returns the sentence shown under the caption.
func BannerDescription(state model.BannerState) string {
	switch state {
	case model.BannerLow:
		return "Means that you are mostly in a stuffy atmosphere."
	case model.BannerBalanced:
		return "Means that you are mostly in a productive atmosphere."
	default:
		return "Means that you are mostly in a fresh atmosphere."
	}
}

// MakeBanner builds the banner for an aggregate value at a scale.
func MakeBanner(value int, scale model.TimeScale) model.Banner {
	state := BannerStateFor(value)
	return model.Banner{
		MainValue:   value,
		State:       state,
		Caption:     BannerText(scale),
		Description: BannerDescription(state),
	}
}

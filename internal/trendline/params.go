package trendline

import (
	"fmt"
	"sort"

	"TrendScope/internal/hough"
	"TrendScope/internal/model"
)

// Detection methods.
const (
	MethodHough    = "hough"
	MethodPairwise = "pairwise"
)

// Params configures one detection run.
type Params struct {
	Method            string       // hough or pairwise, empty means hough
	Window            int          // pivot half-window in bars
	Ranges            []int        // look-ahead ranges in pivots, not bars
	MinScore          float64      // lines scoring below are dropped
	MaxFalseBreakouts int          // lines with more false breakouts are dropped
	Hough             hough.Params // line fitter tuning
	Workers           int          // 0 means GOMAXPROCS
}

// DefaultParams mirrors the short/long look-ahead setup.
func DefaultParams() Params {
	return Params{
		Method:            MethodHough,
		Window:            5,
		Ranges:            []int{10, 25},
		MinScore:          5,
		MaxFalseBreakouts: 2,
		Hough:             hough.DefaultParams(),
	}
}

// Validate rejects non-positive windows and ranges, negative limits and bad
// fitter settings.
func (p Params) Validate() error {
	switch p.Method {
	case "", MethodHough, MethodPairwise:
	default:
		return fmt.Errorf("detection method %q is not hough or pairwise: %w", p.Method, model.ErrInvalidConfiguration)
	}
	if p.Window <= 0 {
		return fmt.Errorf("pivot window %d must be positive: %w", p.Window, model.ErrInvalidConfiguration)
	}
	if len(p.Ranges) == 0 {
		return fmt.Errorf("at least one look-ahead range is required: %w", model.ErrInvalidConfiguration)
	}
	for _, r := range p.Ranges {
		if r <= 0 {
			return fmt.Errorf("look-ahead range %d must be positive: %w", r, model.ErrInvalidConfiguration)
		}
	}
	if p.MaxFalseBreakouts < 0 {
		return fmt.Errorf("max false breakouts %d must not be negative: %w", p.MaxFalseBreakouts, model.ErrInvalidConfiguration)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative: %w", p.Workers, model.ErrInvalidConfiguration)
	}
	return p.Hough.Validate()
}

func (p Params) method() string {
	if p.Method == "" {
		return MethodHough
	}
	return p.Method
}

// normalizedRanges returns the ranges ascending and without duplicates.
func (p Params) normalizedRanges() []int {
	rs := append([]int(nil), p.Ranges...)
	sort.Ints(rs)
	out := rs[:0]
	for i, r := range rs {
		if i > 0 && r == rs[i-1] {
			continue
		}
		out = append(out, r)
	}
	return out
}

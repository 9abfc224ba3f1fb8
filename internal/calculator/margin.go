package calculator

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"TrendScope/internal/model"
)

// MarginProvider yields one non-negative tolerance per bar of a series.
type MarginProvider interface {
	Margins(series model.PriceSeries) ([]float64, error)
	Name() string
}

// FixedMargin applies the same tolerance to every bar.
type FixedMargin struct {
	Value float64
}

func (f FixedMargin) Name() string { return fmt.Sprintf("fixed(%.4g)", f.Value) }

// Margins returns Value for every bar.
func (f FixedMargin) Margins(series model.PriceSeries) ([]float64, error) {
	if f.Value <= 0 {
		return nil, fmt.Errorf("fixed margin %v must be positive: %w", f.Value, model.ErrInvalidConfiguration)
	}
	out := make([]float64, series.Len())
	for i := range out {
		out[i] = f.Value
	}
	return out, nil
}

// ATRMargin scales the average true range by Multiplier. When the series
// carries no high/low data it falls back to a fixed Fallback margin.
type ATRMargin struct {
	Period     int
	Multiplier float64
	Fallback   float64
}

func (a ATRMargin) Name() string { return fmt.Sprintf("atr(%d)x%.4g", a.Period, a.Multiplier) }

// Margins computes ATR(Period) * Multiplier per bar.
func (a ATRMargin) Margins(series model.PriceSeries) ([]float64, error) {
	if a.Period <= 0 || a.Multiplier <= 0 {
		return nil, fmt.Errorf("atr period %d / multiplier %v must be positive: %w",
			a.Period, a.Multiplier, model.ErrInvalidConfiguration)
	}
	if a.Fallback < 0 {
		return nil, fmt.Errorf("atr fallback %v must not be negative: %w", a.Fallback, model.ErrInvalidConfiguration)
	}
	if !series.HasRange() {
		if a.Fallback == 0 {
			return nil, fmt.Errorf("atr margin needs high/low data: %w", model.ErrInvalidSeries)
		}
		log.Warn().Str("symbol", series.Symbol).Float64("fallback", a.Fallback).
			Msg("series has no high/low data, using fixed margin")
		return FixedMargin{Value: a.Fallback}.Margins(series)
	}

	atr, err := CalculateATR(series.Highs(), series.Lows(), series.Closes(), a.Period)
	if err != nil {
		return nil, err
	}
	for i := range atr {
		atr[i] *= a.Multiplier
	}
	return atr, nil
}

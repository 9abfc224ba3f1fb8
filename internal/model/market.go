package model

import (
	"math"
	"time"
)

// Bar represents a single candlestick bar. Only Close is required; High and
// Low are needed when tolerance margins are derived from ATR.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds an ordered, immutable run input indexed 0..N-1.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// HasRange reports whether every bar carries a usable high/low pair.
func (s PriceSeries) HasRange() bool {
	if len(s.Bars) == 0 {
		return false
	}
	for _, b := range s.Bars {
		if b.High == 0 && b.Low == 0 {
			return false
		}
		if b.High < b.Low {
			return false
		}
	}
	return true
}

// Validate checks the structural shape of the series: every close must be a
// finite positive number.
func (s PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return &SeriesError{Index: i, Reason: "close must be a finite positive number"}
		}
	}
	return nil
}

package calculator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"TrendScope/internal/model"
)

// CalculateATR returns the simple rolling mean of the true range over period
// bars. Bar 0 has no previous close, so its true range is high minus low.
// The warm-up prefix is back-filled with the first full-window value so every
// bar has a usable tolerance. Requires at least period bars.
func CalculateATR(highs, lows, closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("atr period %d must be positive: %w", period, model.ErrInvalidConfiguration)
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil, fmt.Errorf("atr inputs differ in length (%d/%d/%d): %w", len(highs), len(lows), n, model.ErrInvalidSeries)
	}
	if n < period || n == 0 {
		return nil, fmt.Errorf("atr(%d) needs at least %d bars, got %d: %w", period, period, n, model.ErrInsufficientData)
	}

	tr := talib.TRange(highs, lows, closes)
	tr[0] = highs[0] - lows[0]
	if period == 1 {
		return tr, nil
	}

	atr := talib.Sma(tr, period)
	for i := 0; i < period-1; i++ {
		atr[i] = atr[period-1]
	}
	return atr, nil
}

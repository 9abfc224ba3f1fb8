// Package pivot finds local closing-price extrema.
package pivot

import (
	"fmt"

	"TrendScope/internal/model"
)

// Extract returns the high and low pivots of closes for window w. Index i is
// a high (low) pivot iff closes[i] is strictly greater (less) than every other
// close in [i-w, i+w]. Bars within w of either end are never pivots.
func Extract(closes []float64, w int) (model.PivotSet, error) {
	if w <= 0 {
		return model.PivotSet{}, fmt.Errorf("pivot window %d must be positive: %w", w, model.ErrInvalidConfiguration)
	}
	n := len(closes)
	if n <= 2*w {
		return model.PivotSet{}, fmt.Errorf("pivot window %d needs more than %d bars, got %d: %w", w, 2*w, n, model.ErrInsufficientData)
	}

	// maxEnd[j] / minEnd[j] cover the w bars ending at j.
	maxEnd := slidingExtreme(closes, w, func(a, b float64) bool { return a >= b })
	minEnd := slidingExtreme(closes, w, func(a, b float64) bool { return a <= b })

	highs := []int{}
	lows := []int{}
	for i := w; i < n-w; i++ {
		c := closes[i]
		if c > maxEnd[i-1] && c > maxEnd[i+w] {
			highs = append(highs, i)
		} else if c < minEnd[i-1] && c < minEnd[i+w] {
			lows = append(lows, i)
		}
	}
	return model.NewPivotSet(highs, lows), nil
}

// slidingExtreme returns, for each j >= w-1, the extreme of vals[j-w+1..j]
// under dominates. Entries before w-1 are left zero.
func slidingExtreme(vals []float64, w int, dominates func(a, b float64) bool) []float64 {
	out := make([]float64, len(vals))
	dq := make([]int, 0, w)
	for j, v := range vals {
		for len(dq) > 0 && dominates(v, vals[dq[len(dq)-1]]) {
			dq = dq[:len(dq)-1]
		}
		dq = append(dq, j)
		if dq[0] <= j-w {
			dq = dq[1:]
		}
		if j >= w-1 {
			out[j] = vals[dq[0]]
		}
	}
	return out
}

package pivot

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScope/internal/model"
)

func TestExtract_Basic(t *testing.T) {
	closes := []float64{1, 2, 3, 2, 1, 2, 4, 2, 1}
	ps, err := Extract(closes, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 6}, ps.Highs)
	assert.Equal(t, []int{4}, ps.Lows)
	assert.True(t, ps.IsHigh(6))
	assert.True(t, ps.IsLow(4))
	assert.False(t, ps.IsLow(6))
	assert.Equal(t, []int{2, 4, 6}, ps.All())
}

func TestExtract_PlateauIsNotPivot(t *testing.T) {
	closes := []float64{1, 3, 3, 1, 0, 1, 2}
	ps, err := Extract(closes, 1)
	require.NoError(t, err)
	assert.Empty(t, ps.Highs)
	assert.Equal(t, []int{4}, ps.Lows)
}

func TestExtract_BoundariesExcluded(t *testing.T) {
	// The global maxima sit within w of the ends.
	closes := []float64{10, 6, 5, 4, 5, 6, 10}
	ps, err := Extract(closes, 2)
	require.NoError(t, err)
	for _, i := range append(ps.Highs, ps.Lows...) {
		assert.GreaterOrEqual(t, i, 2)
		assert.Less(t, i, len(closes)-2)
	}
	assert.Equal(t, []int{3}, ps.Lows)
}

func TestExtract_InsufficientData(t *testing.T) {
	_, err := Extract([]float64{1, 2, 3, 4}, 2)
	assert.True(t, errors.Is(err, model.ErrInsufficientData))

	_, err = Extract(make([]float64, 10), 5)
	assert.True(t, errors.Is(err, model.ErrInsufficientData))

	_, err = Extract(make([]float64, 11), 5)
	assert.NoError(t, err)
}

func TestExtract_InvalidWindow(t *testing.T) {
	_, err := Extract([]float64{1, 2, 3}, 0)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func naive(closes []float64, w int) (highs, lows []int) {
	for i := w; i < len(closes)-w; i++ {
		hi, lo := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if closes[j] >= closes[i] {
				hi = false
			}
			if closes[j] <= closes[i] {
				lo = false
			}
		}
		if hi {
			highs = append(highs, i)
		}
		if lo {
			lows = append(lows, i)
		}
	}
	return highs, lows
}

func TestExtract_MatchesNaiveScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 20 + rng.Intn(200)
		w := 1 + rng.Intn(6)
		closes := make([]float64, n)
		p := 100.0
		for i := range closes {
			// coarse steps so ties actually happen
			p += float64(rng.Intn(7) - 3)
			closes[i] = p
		}
		ps, err := Extract(closes, w)
		require.NoError(t, err)

		wantH, wantL := naive(closes, w)
		assert.ElementsMatch(t, wantH, ps.Highs, "round %d highs", round)
		assert.ElementsMatch(t, wantL, ps.Lows, "round %d lows", round)

		for _, h := range ps.Highs {
			assert.False(t, ps.IsLow(h), "index %d is both high and low", h)
		}
	}
}

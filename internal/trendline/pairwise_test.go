package trendline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScope/internal/calculator"
	"TrendScope/internal/model"
)

func TestPairLines(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		pivots []int
		pol    model.Polarity
		want   []PairLine
	}{
		{
			name:   "support pair broken later",
			closes: []float64{5, 1, 3, 4, 4, 6, 2},
			pivots: []int{1, 4},
			pol:    model.Support,
			want:   []PairLine{{Line: model.Line{Slope: 1, Intercept: 0, Anchor: 1}, End: 4, Breakout: 6}},
		},
		{
			name:   "support segment crossed",
			closes: []float64{5, 1, 0.5, 4, 4, 6, 2},
			pivots: []int{1, 4},
			pol:    model.Support,
			want:   nil,
		},
		{
			name:   "support never broken",
			closes: []float64{5, 1, 3, 4, 4, 6},
			pivots: []int{1, 4},
			pol:    model.Support,
			want:   []PairLine{{Line: model.Line{Slope: 1, Intercept: 0, Anchor: 1}, End: 4, Breakout: 6}},
		},
		{
			name:   "resistance broken upward",
			closes: []float64{0, 10, 7, 8, 10, 9, 12},
			pivots: []int{1, 4},
			pol:    model.Resistance,
			want:   []PairLine{{Line: model.Line{Slope: 0, Intercept: 10, Anchor: 1}, End: 4, Breakout: 6}},
		},
		{
			name:   "resistance segment crossed",
			closes: []float64{0, 10, 11, 8, 10, 9},
			pivots: []int{1, 4},
			pol:    model.Resistance,
			want:   nil,
		},
		{
			name:   "only the uncrossed pair survives",
			closes: []float64{5, 1, 3, 4, 4, 3, 6, 7},
			pivots: []int{1, 4, 7},
			pol:    model.Support,
			want:   []PairLine{{Line: model.Line{Slope: 1, Intercept: 0, Anchor: 1}, End: 4, Breakout: 5}},
		},
		{
			name:   "single pivot",
			closes: []float64{3, 1, 3},
			pivots: []int{1},
			pol:    model.Support,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PairLines(tt.closes, tt.pivots, tt.pol)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w.Line.Anchor, got[i].Line.Anchor)
				assert.InDelta(t, w.Line.Slope, got[i].Line.Slope, 1e-9)
				assert.InDelta(t, w.Line.Intercept, got[i].Line.Intercept, 1e-9)
				assert.Equal(t, w.End, got[i].End)
				assert.Equal(t, w.Breakout, got[i].Breakout)
			}
		})
	}
}

func TestDetect_PairwiseMethod(t *testing.T) {
	p := zigzagParams(10)
	p.Method = MethodPairwise
	// The margin provider is not consulted by the pairwise method.
	e, err := NewEngine(p, calculator.ATRMargin{Period: 14, Multiplier: 1})
	require.NoError(t, err)

	res, err := e.Detect(context.Background(), seriesOf(zigzag(61)))
	require.NoError(t, err)
	assert.Equal(t, MethodPairwise, res.Method)
	assert.Nil(t, res.Margins)

	require.Len(t, res.Support, 4)
	for i, tl := range res.Support {
		anchor := 10 * (i + 1)
		assert.Equal(t, anchor, tl.Line.Anchor)
		assert.InDelta(t, 1.0, tl.Line.Slope, 1e-9)
		assert.InDelta(t, 100.0, tl.Line.Intercept, 1e-6)
		assert.Equal(t, []int{anchor, anchor + 10}, tl.SupportingPoints)
		assert.Equal(t, []int{anchor + 10}, tl.Events.Touches)
		assert.Empty(t, tl.Events.Breakouts)
		assert.Equal(t, 5.0, tl.Score)
	}
	require.Len(t, res.Resistance, 5)
	assert.Equal(t, 5, res.Resistance[0].Line.Anchor)

	assert.Equal(t, model.PolarityStats{Polarity: "support", Anchors: 5, Candidates: 4, Scored: 4, Accepted: 4}, res.Stats[0])
	assert.Equal(t, model.PolarityStats{Polarity: "resistance", Anchors: 6, Candidates: 5, Scored: 5, Accepted: 5}, res.Stats[1])
}

func TestDetect_PairwiseReportsBreakout(t *testing.T) {
	closes := zigzag(61)
	closes[58] = 100 // far below the support through the lows, and a new low pivot
	p := zigzagParams(10)
	p.Method = MethodPairwise
	e, err := NewEngine(p, calculator.FixedMargin{Value: 1})
	require.NoError(t, err)

	res, err := e.Detect(context.Background(), seriesOf(closes))
	require.NoError(t, err)
	require.Len(t, res.Support, 5)
	for _, tl := range res.Support[:4] {
		assert.Equal(t, []int{58}, tl.Events.Breakouts, "anchor %d", tl.Line.Anchor)
	}
	last := res.Support[4]
	assert.Equal(t, []int{50, 58}, last.SupportingPoints)
	assert.Empty(t, last.Events.Breakouts)
}

func TestDetect_PairwiseHonoursCancellation(t *testing.T) {
	p := zigzagParams(10)
	p.Method = MethodPairwise
	e, err := NewEngine(p, calculator.FixedMargin{Value: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Detect(ctx, seriesOf(zigzag(61)))
	assert.ErrorIs(t, err, context.Canceled)
}

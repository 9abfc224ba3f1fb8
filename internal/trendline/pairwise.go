package trendline

import "TrendScope/internal/model"

// PairLine is a line drawn through two consecutive pivots of one kind.
type PairLine struct {
	Line     model.Line // anchored on the first pivot
	End      int        // second pivot
	Breakout int        // first bar after End closing through the line, len(closes) if none
}

// PairLines draws a line through every pair of consecutive pivots and keeps
// the pairs whose segment no close crosses. Support lines are crossed by a
// close below them, resistance lines by a close above. Pivot endpoints lie
// on the line and are not tested.
func PairLines(closes []float64, pivots []int, pol model.Polarity) []PairLine {
	var out []PairLine
	for k := 0; k+1 < len(pivots); k++ {
		x1, x2 := pivots[k], pivots[k+1]
		if x1 < 0 || x2 <= x1 || x2 >= len(closes) {
			continue
		}
		slope := (closes[x2] - closes[x1]) / float64(x2-x1)
		line := model.Line{Slope: slope, Intercept: closes[x1] - slope*float64(x1), Anchor: x1}

		if firstCross(closes, line, pol, x1+1, x2) < x2 {
			continue
		}
		out = append(out, PairLine{
			Line:     line,
			End:      x2,
			Breakout: firstCross(closes, line, pol, x2+1, len(closes)),
		})
	}
	return out
}

// firstCross returns the first bar in [from, to) closing through line, or to.
func firstCross(closes []float64, line model.Line, pol model.Polarity, from, to int) int {
	for i := from; i < to; i++ {
		v := line.ValueAt(i)
		if pol == model.Support && closes[i] < v || pol == model.Resistance && closes[i] > v {
			return i
		}
	}
	return to
}

// pairTrendlines turns the pair lines of one polarity into trendlines. The
// second pivot counts as the only touch and a later crossing as the only
// breakout.
func pairTrendlines(closes []float64, pivots []int, pol model.Polarity) []model.Trendline {
	pls := PairLines(closes, pivots, pol)
	out := make([]model.Trendline, 0, len(pls))
	for _, pl := range pls {
		ev := model.Events{FirstTouch: pl.End, Touches: []int{pl.End}}
		if pl.Breakout < len(closes) {
			ev.Breakouts = []int{pl.Breakout}
		}
		out = append(out, model.Trendline{
			Polarity:         pol,
			Line:             pl.Line,
			SupportingPoints: []int{pl.Line.Anchor, pl.End},
			Events:           ev,
			Score:            Score(ev),
			Range:            1,
		})
	}
	return out
}

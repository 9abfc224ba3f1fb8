package trendline

import (
	"math"

	"TrendScope/internal/hough"
	"TrendScope/internal/model"
)

// runInput is the read-only state shared by every worker of a run.
type runInput struct {
	closes  []float64
	margins []float64
	pivots  model.PivotSet
	all     []int       // both polarities, ascending
	seq     map[int]int // bar index -> position in all
}

func newRunInput(closes, margins []float64, pivots model.PivotSet) *runInput {
	all := pivots.All()
	seq := make(map[int]int, len(all))
	for pos, idx := range all {
		seq[idx] = pos
	}
	return &runInput{closes: closes, margins: margins, pivots: pivots, all: all, seq: seq}
}

// candidate is a fitted line that passed the geometric checks.
type candidate struct {
	line       model.Line
	supporting []int
	rng        int
	votes      float64
	events     model.Events
}

// findCandidates fits one line per range through anchor and keeps those with
// at least two supporting points and an unbroken early segment. ranges must
// be ascending.
func findCandidates(f *hough.Fitter, in *runInput, pol model.Polarity, anchor int, ranges []int) []candidate {
	pos, ok := in.seq[anchor]
	if !ok {
		return nil
	}
	origin := hough.Point{X: float64(anchor), Y: in.closes[anchor]}

	var out []candidate
	for _, r := range ranges {
		end := pos + r + 1
		if end > len(in.all) {
			end = len(in.all)
		}
		future := in.all[pos+1 : end]
		if len(future) == 0 {
			continue
		}
		pts := make([]hough.Point, len(future))
		for i, idx := range future {
			pts[i] = hough.Point{X: float64(idx), Y: in.closes[idx]}
		}

		fit, err := f.Fit(origin, pts)
		if err != nil {
			// no line and degenerate angles are ordinary outcomes
			continue
		}
		line := model.Line{Slope: fit.Slope, Intercept: fit.Intercept, Anchor: anchor}

		supporting := supportingPoints(line, in, pol)
		if len(supporting) < 2 {
			continue
		}
		if !clearBetween(line, supporting[0], supporting[1], in, pol) {
			continue
		}
		out = append(out, candidate{line: line, supporting: supporting, rng: r, votes: fit.Votes})
	}
	return out
}

// supportingPoints returns the same-polarity pivots at or after the anchor
// that sit within their bar's margin of the line.
func supportingPoints(line model.Line, in *runInput, pol model.Polarity) []int {
	var out []int
	for _, idx := range in.pivots.Of(pol) {
		if idx < line.Anchor {
			continue
		}
		if math.Abs(in.closes[idx]-line.ValueAt(idx)) <= in.margins[idx] {
			out = append(out, idx)
		}
	}
	return out
}

// clearBetween reports whether no pivot strictly between from and to pierces
// the line beyond its margin on the violating side.
func clearBetween(line model.Line, from, to int, in *runInput, pol model.Polarity) bool {
	for _, idx := range in.all {
		if idx <= from {
			continue
		}
		if idx >= to {
			break
		}
		if violates(pol, in.closes[idx]-line.ValueAt(idx), in.margins[idx]) {
			return false
		}
	}
	return true
}

// violates reports whether signed distance d lies beyond margin on the side
// that breaks a line: below a support line, above a resistance line.
func violates(pol model.Polarity, d, margin float64) bool {
	if pol == model.Support {
		return d < -margin
	}
	return d > margin
}

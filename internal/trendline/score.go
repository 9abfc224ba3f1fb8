package trendline

import (
	"sort"

	"TrendScope/internal/model"
)

const (
	touchWeight         = 5.0
	throwbackWeight     = 3.0
	falseBreakoutWeight = 2.0
)

// Score rates a line by its events. Breakouts are neutral.
func Score(ev model.Events) float64 {
	return touchWeight*float64(len(ev.Touches)) +
		throwbackWeight*float64(len(ev.Throwbacks)) -
		falseBreakoutWeight*float64(len(ev.FalseBreakouts))
}

// rank scores candidates, drops those over the false-breakout limit or under
// the score floor, and orders the rest by anchor then range.
func rank(cands []candidate, pol model.Polarity, minScore float64, maxFalseBreakouts int) []model.Trendline {
	out := make([]model.Trendline, 0, len(cands))
	for _, c := range cands {
		if len(c.events.FalseBreakouts) > maxFalseBreakouts {
			continue
		}
		score := Score(c.events)
		if score < minScore {
			continue
		}
		out = append(out, model.Trendline{
			Polarity:         pol,
			Line:             c.line,
			SupportingPoints: c.supporting,
			Events:           c.events,
			Score:            score,
			Range:            c.rng,
			Votes:            c.votes,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line.Anchor != out[j].Line.Anchor {
			return out[i].Line.Anchor < out[j].Line.Anchor
		}
		return out[i].Range < out[j].Range
	})
	return out
}

// Deduplicate walks lines in order and accepts one only if it shares fewer
// than two supporting points with every line accepted before it.
func Deduplicate(lines []model.Trendline) []model.Trendline {
	accepted := make([]model.Trendline, 0, len(lines))
	for _, tl := range lines {
		redundant := false
		for _, a := range accepted {
			if overlap(tl.SupportingPoints, a.SupportingPoints) >= 2 {
				redundant = true
				break
			}
		}
		if !redundant {
			accepted = append(accepted, tl)
		}
	}
	return accepted
}

// overlap counts common entries of two ascending slices.
func overlap(a, b []int) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

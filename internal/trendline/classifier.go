package trendline

import (
	"math"

	"TrendScope/internal/model"
)

type scanState int

const (
	seekingFirstTouch scanState = iota
	tracking
	waitingForConfirmation
)

// scan is the state threaded through one forward pass.
type scan struct {
	state      scanState
	pending    int  // bar of the unconfirmed breakout while waiting
	prevBeyond bool // previous bar sat beyond margin on the violating side
	broken     bool // a breakout of this line has been confirmed
}

// Classify replays closes forward from the line's anchor and records how
// price interacts with it. margins holds one tolerance per bar. A bar lands
// in at most one event set; margin containment is checked before any
// breakout test.
func Classify(line model.Line, pol model.Polarity, closes, margins []float64, pivots model.PivotSet) model.Events {
	ev := model.Events{FirstTouch: -1}
	s := scan{state: seekingFirstTouch}

	for i := line.Anchor + 1; i < len(closes); i++ {
		d := closes[i] - line.ValueAt(i)
		m := margins[i]
		within := math.Abs(d) <= m
		beyond := violates(pol, d, m)

		switch s.state {
		case seekingFirstTouch:
			if within && pivots.Is(pol, i) {
				ev.FirstTouch = i
				ev.Touches = append(ev.Touches, i)
				s.state = tracking
			}

		case tracking:
			switch {
			case within:
				if pivots.Is(pol, i) {
					ev.Touches = append(ev.Touches, i)
				} else if s.broken && pivots.IsOpposite(pol, i) {
					ev.Throwbacks = append(ev.Throwbacks, i)
				}
			case beyond && !s.prevBeyond:
				s.pending = i
				s.state = waitingForConfirmation
			}

		case waitingForConfirmation:
			if !pivots.IsOpposite(pol, i) {
				break
			}
			if beyond {
				ev.FalseBreakouts = append(ev.FalseBreakouts, s.pending)
			} else {
				ev.Breakouts = append(ev.Breakouts, s.pending)
				s.broken = true
				if within {
					ev.Throwbacks = append(ev.Throwbacks, i)
				}
			}
			s.state = tracking
		}
		s.prevBeyond = beyond
	}

	if s.state == waitingForConfirmation {
		ev.FalseBreakouts = append(ev.FalseBreakouts, s.pending)
	}
	return ev
}

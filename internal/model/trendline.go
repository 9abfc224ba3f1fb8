package model

import "sort"

// Polarity tells whether a line acts as support or resistance.
type Polarity int

const (
	Support Polarity = iota
	Resistance
)

func (p Polarity) String() string {
	switch p {
	case Support:
		return "support"
	case Resistance:
		return "resistance"
	default:
		return "unknown"
	}
}

// PivotSet holds high and low pivot indices, each ascending and duplicate-free.
type PivotSet struct {
	Highs []int `json:"highs"`
	Lows  []int `json:"lows"`

	high map[int]struct{}
	low  map[int]struct{}
}

// NewPivotSet builds a PivotSet and its membership indexes.
func NewPivotSet(highs, lows []int) PivotSet {
	ps := PivotSet{
		Highs: highs,
		Lows:  lows,
		high:  make(map[int]struct{}, len(highs)),
		low:   make(map[int]struct{}, len(lows)),
	}
	for _, i := range highs {
		ps.high[i] = struct{}{}
	}
	for _, i := range lows {
		ps.low[i] = struct{}{}
	}
	return ps
}

// IsHigh reports whether i is a high pivot.
func (p PivotSet) IsHigh(i int) bool {
	_, ok := p.high[i]
	return ok
}

// IsLow reports whether i is a low pivot.
func (p PivotSet) IsLow(i int) bool {
	_, ok := p.low[i]
	return ok
}

// Is reports whether i is a pivot of the given polarity's own kind: low
// pivots for support, high pivots for resistance.
func (p PivotSet) Is(pol Polarity, i int) bool {
	if pol == Support {
		return p.IsLow(i)
	}
	return p.IsHigh(i)
}

// IsOpposite reports whether i is a pivot of the opposing kind.
func (p PivotSet) IsOpposite(pol Polarity, i int) bool {
	if pol == Support {
		return p.IsHigh(i)
	}
	return p.IsLow(i)
}

// Of returns the pivots a line of the given polarity is anchored on.
func (p PivotSet) Of(pol Polarity) []int {
	if pol == Support {
		return p.Lows
	}
	return p.Highs
}

// All returns the sorted union of both sets.
func (p PivotSet) All() []int {
	out := make([]int, 0, len(p.Highs)+len(p.Lows))
	out = append(out, p.Highs...)
	out = append(out, p.Lows...)
	sort.Ints(out)
	return out
}

// Line is price = Slope*index + Intercept for index >= Anchor.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Anchor    int     `json:"anchor"`
}

// ValueAt returns the line price at bar i.
func (l Line) ValueAt(i int) float64 {
	return l.Slope*float64(i) + l.Intercept
}

// Events holds the classified interactions of price with one line. The four
// index sets are ascending and pairwise disjoint.
type Events struct {
	FirstTouch     int   `json:"first_touch"` // -1 when the line was never touched
	Touches        []int `json:"touches"`
	Breakouts      []int `json:"breakouts"`
	Throwbacks     []int `json:"throwbacks"`
	FalseBreakouts []int `json:"false_breakouts"`
}

// Trendline is a validated, scored line.
type Trendline struct {
	Polarity         Polarity `json:"-"`
	Line             Line     `json:"line"`
	SupportingPoints []int    `json:"supporting_points"`
	Events           Events   `json:"events"`
	Score            float64  `json:"score"`
	Range            int      `json:"range"`
	Votes            float64  `json:"votes"`
}

// ThrowbackSignal is a per-line throwback handed to trade simulation as an
// entry trigger.
type ThrowbackSignal struct {
	Index     int      `json:"index"`
	Polarity  Polarity `json:"-"`
	Side      string   `json:"polarity"`
	Price     float64  `json:"price"`
	LineValue float64  `json:"line_value"`
	Anchor    int      `json:"anchor"`
}

// PolarityStats counts how many lines survived each stage for one polarity.
type PolarityStats struct {
	Polarity   string `json:"polarity"`
	Anchors    int    `json:"anchors"`
	Candidates int    `json:"candidates"`
	Scored     int    `json:"scored"`
	Accepted   int    `json:"accepted"`
}

// Result is the final trendline set of one run.
type Result struct {
	Symbol     string      `json:"symbol"`
	Method     string      `json:"method"`
	Bars       int         `json:"bars"`
	Pivots     PivotSet    `json:"pivots"`
	Closes     []float64   `json:"-"`
	Margins    []float64   `json:"-"`
	Support    []Trendline `json:"support"`
	Resistance []Trendline `json:"resistance"`

	Stats []PolarityStats `json:"stats"`
}

// Lines returns the trendlines of one polarity.
func (r *Result) Lines(pol Polarity) []Trendline {
	if pol == Support {
		return r.Support
	}
	return r.Resistance
}

// ThrowbackSignals flattens every line's throwbacks, ordered by bar index.
func (r *Result) ThrowbackSignals() []ThrowbackSignal {
	var out []ThrowbackSignal
	for _, pol := range []Polarity{Support, Resistance} {
		for _, tl := range r.Lines(pol) {
			for _, i := range tl.Events.Throwbacks {
				sig := ThrowbackSignal{
					Index:     i,
					Polarity:  pol,
					Side:      pol.String(),
					LineValue: tl.Line.ValueAt(i),
					Anchor:    tl.Line.Anchor,
				}
				if i < len(r.Closes) {
					sig.Price = r.Closes[i]
				}
				out = append(out, sig)
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

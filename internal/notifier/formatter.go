package notifier

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"TrendScope/internal/model"
)

// FormatReport renders a run result as plain text for terminals and logs.
func FormatReport(res *model.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("TrendScope | %s | %s bars\n", res.Symbol, humanize.Comma(int64(res.Bars))))
	b.WriteString(fmt.Sprintf("Method: %s\n", res.Method))
	b.WriteString(fmt.Sprintf("Pivots: %d high, %d low\n", len(res.Pivots.Highs), len(res.Pivots.Lows)))

	for _, pol := range []model.Polarity{model.Support, model.Resistance} {
		lines := res.Lines(pol)
		b.WriteString(fmt.Sprintf("\n%s lines (%d):\n", title(pol), len(lines)))
		if len(lines) == 0 {
			b.WriteString("  none\n")
			continue
		}
		for i, tl := range lines {
			ev := tl.Events
			b.WriteString(fmt.Sprintf("  #%d anchor %d  slope %+.4f  intercept %.2f  score %g  range %d\n",
				i+1, tl.Line.Anchor, tl.Line.Slope, tl.Line.Intercept, tl.Score, tl.Range))
			b.WriteString(fmt.Sprintf("     touches %d  breakouts %d  throwbacks %d  false breakouts %d\n",
				len(ev.Touches), len(ev.Breakouts), len(ev.Throwbacks), len(ev.FalseBreakouts)))
			b.WriteString(fmt.Sprintf("     supporting: %s\n", joinInts(tl.SupportingPoints)))
		}
	}

	signals := res.ThrowbackSignals()
	if len(signals) > 0 {
		b.WriteString(fmt.Sprintf("\nThrowback signals (%d):\n", len(signals)))
		for _, s := range signals {
			b.WriteString(fmt.Sprintf("  bar %d  %s  price %.2f  line %.2f  anchor %d\n",
				s.Index, s.Side, s.Price, s.LineValue, s.Anchor))
		}
	}
	return b.String()
}

// FormatSummary renders a short HTML message for Telegram.
func FormatSummary(res *model.Result, runID string, took time.Duration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>TrendScope</b> | %s\n\n", html.EscapeString(res.Symbol)))
	b.WriteString(fmt.Sprintf("Bars: %s\n", humanize.Comma(int64(res.Bars))))
	b.WriteString(fmt.Sprintf("Support lines: %d\n", len(res.Support)))
	b.WriteString(fmt.Sprintf("Resistance lines: %d\n", len(res.Resistance)))

	signals := res.ThrowbackSignals()
	if n := len(signals); n > 0 {
		last := signals[n-1]
		b.WriteString(fmt.Sprintf("Throwbacks: %d (latest bar %d, %s at %.2f)\n", n, last.Index, last.Side, last.Price))
	}
	if best, ok := bestLine(res); ok {
		b.WriteString(fmt.Sprintf("Best: %s from bar %d, score %g\n", best.Polarity, best.Line.Anchor, best.Score))
	}
	b.WriteString(fmt.Sprintf("\n<i>run %s, %s</i>", html.EscapeString(runID), took.Round(time.Millisecond)))
	return b.String()
}

// FormatError renders a failed run for Telegram.
func FormatError(symbol, runID string, err error) string {
	return fmt.Sprintf("❌ <b>TrendScope</b> | %s\n\nrun %s failed: %s",
		html.EscapeString(symbol), html.EscapeString(runID), html.EscapeString(err.Error()))
}

// report is the export consumed by chart renderers.
type report struct {
	Symbol           string                  `json:"symbol"`
	Method           string                  `json:"method"`
	Bars             int                     `json:"bars"`
	Pivots           model.PivotSet          `json:"pivots"`
	Support          []model.Trendline       `json:"support"`
	Resistance       []model.Trendline       `json:"resistance"`
	ThrowbackSignals []model.ThrowbackSignal `json:"throwback_signals"`
	Stats            []model.PolarityStats   `json:"stats"`
}

// FormatJSON exports a result with its throwback signals, indented.
func FormatJSON(res *model.Result) ([]byte, error) {
	r := report{
		Symbol:           res.Symbol,
		Method:           res.Method,
		Bars:             res.Bars,
		Pivots:           res.Pivots,
		Support:          nonNil(res.Support),
		Resistance:       nonNil(res.Resistance),
		ThrowbackSignals: res.ThrowbackSignals(),
		Stats:            res.Stats,
	}
	if r.ThrowbackSignals == nil {
		r.ThrowbackSignals = []model.ThrowbackSignal{}
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return out, nil
}

func bestLine(res *model.Result) (model.Trendline, bool) {
	var best model.Trendline
	found := false
	for _, pol := range []model.Polarity{model.Support, model.Resistance} {
		for _, tl := range res.Lines(pol) {
			if !found || tl.Score > best.Score {
				best, found = tl, true
			}
		}
	}
	return best, found
}

func nonNil(lines []model.Trendline) []model.Trendline {
	if lines == nil {
		return []model.Trendline{}
	}
	return lines
}

func title(pol model.Polarity) string {
	s := pol.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}

// Package trendline finds support and resistance lines in a price series,
// classifies how price later interacts with each line and keeps a ranked,
// non-redundant set.
package trendline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"TrendScope/internal/calculator"
	"TrendScope/internal/hough"
	"TrendScope/internal/model"
	"TrendScope/internal/pivot"
)

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine runs the detection pipeline. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	params Params
	ranges []int
	margin calculator.MarginProvider
	log    zerolog.Logger
}

// NewEngine validates p before anything is computed.
func NewEngine(p Params, margin calculator.MarginProvider, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if margin == nil {
		return nil, fmt.Errorf("margin provider is required: %w", model.ErrInvalidConfiguration)
	}
	e := &Engine{
		params: p,
		ranges: p.normalizedRanges(),
		margin: margin,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the engine configuration.
func (e *Engine) Params() Params { return e.params }

// Detect runs the full pipeline over series. Structural problems (bad
// series, too few bars, bad margins) are returned as errors; finding no line
// is a valid empty result.
func (e *Engine) Detect(ctx context.Context, series model.PriceSeries) (*model.Result, error) {
	start := time.Now()
	if err := series.Validate(); err != nil {
		return nil, err
	}
	closes := series.Closes()

	pivots, err := pivot.Extract(closes, e.params.Window)
	if err != nil {
		return nil, fmt.Errorf("extract pivots: %w", err)
	}
	res := &model.Result{
		Symbol: series.Symbol,
		Method: e.params.method(),
		Bars:   len(closes),
		Pivots: pivots,
		Closes: closes,
	}
	if res.Method == MethodPairwise {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.detectPairs(res)
	} else if err := e.detectHough(ctx, series, res); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("symbol", series.Symbol).
		Str("method", res.Method).
		Int("bars", res.Bars).
		Int("high_pivots", len(pivots.Highs)).
		Int("low_pivots", len(pivots.Lows)).
		Int("support", len(res.Support)).
		Int("resistance", len(res.Resistance)).
		Dur("took", time.Since(start)).
		Msg("trendline detection finished")
	return res, nil
}

// detectHough fits, classifies, scores and deduplicates lines of both
// polarities, filling res.
func (e *Engine) detectHough(ctx context.Context, series model.PriceSeries, res *model.Result) error {
	closes, pivots := res.Closes, res.Pivots
	margins, err := e.margin.Margins(series)
	if err != nil {
		return fmt.Errorf("margins via %s: %w", e.margin.Name(), err)
	}
	if len(margins) != len(closes) {
		return fmt.Errorf("margin provider %s returned %d values for %d bars: %w",
			e.margin.Name(), len(margins), len(closes), model.ErrInvalidSeries)
	}
	res.Margins = margins

	in := newRunInput(closes, margins, pivots)
	for _, pol := range []model.Polarity{model.Support, model.Resistance} {
		cands, err := e.search(ctx, in, pol)
		if err != nil {
			return fmt.Errorf("search %s lines: %w", pol, err)
		}
		scored := rank(cands, pol, e.params.MinScore, e.params.MaxFalseBreakouts)
		final := Deduplicate(scored)

		e.record(res, pol, model.PolarityStats{
			Polarity:   pol.String(),
			Anchors:    len(pivots.Of(pol)),
			Candidates: len(cands),
			Scored:     len(scored),
			Accepted:   len(final),
		}, final)
	}
	return nil
}

// detectPairs keeps every uncrossed line through consecutive pivots. No score
// floor or deduplication applies.
func (e *Engine) detectPairs(res *model.Result) {
	for _, pol := range []model.Polarity{model.Support, model.Resistance} {
		anchors := res.Pivots.Of(pol)
		lines := pairTrendlines(res.Closes, anchors, pol)
		pairs := 0
		if len(anchors) > 1 {
			pairs = len(anchors) - 1
		}
		e.record(res, pol, model.PolarityStats{
			Polarity:   pol.String(),
			Anchors:    len(anchors),
			Candidates: pairs,
			Scored:     len(lines),
			Accepted:   len(lines),
		}, lines)
	}
}

func (e *Engine) record(res *model.Result, pol model.Polarity, stats model.PolarityStats, lines []model.Trendline) {
	res.Stats = append(res.Stats, stats)
	e.log.Debug().
		Str("method", res.Method).
		Str("polarity", stats.Polarity).
		Int("anchors", stats.Anchors).
		Int("candidates", stats.Candidates).
		Int("scored", stats.Scored).
		Int("accepted", stats.Accepted).
		Msg("polarity searched")

	if pol == model.Support {
		res.Support = lines
	} else {
		res.Resistance = lines
	}
}

// search fits and classifies every anchor of one polarity. Anchors are
// striped over a bounded set of workers, each owning its own fitter buffer;
// cancellation is checked between anchors. Output keeps anchor order.
func (e *Engine) search(ctx context.Context, in *runInput, pol model.Polarity) ([]candidate, error) {
	anchors := in.pivots.Of(pol)
	if len(anchors) == 0 {
		return nil, nil
	}
	perAnchor := make([][]candidate, len(anchors))

	workers := e.params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(anchors) {
		workers = len(anchors)
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			fitter, err := hough.NewFitter(e.params.Hough)
			if err != nil {
				return err
			}
			for i := w; i < len(anchors); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				cands := findCandidates(fitter, in, pol, anchors[i], e.ranges)
				for j := range cands {
					cands[j].events = Classify(cands[j].line, pol, in.closes, in.margins, in.pivots)
				}
				perAnchor[i] = cands
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []candidate
	for _, cs := range perAnchor {
		out = append(out, cs...)
	}
	return out, nil
}

package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"TrendScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Without Bars it generates Count daily bars of a rising wave around Price.
type MockFetcher struct {
	Price float64
	Count int
	Bars  []model.Bar
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	price, count := m.Price, m.Count
	if price <= 0 {
		price = 100
	}
	if count <= 0 {
		count = 300
	}
	return generateMockBars(price, count), nil
}

var mockStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// generateMockBars draws a slow uptrend with a 20 bar wave on top, so pivots
// line up along two parallel channels.
func generateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.002*float64(i) + 0.03*math.Sin(2*math.Pi*float64(i)/20))
		bars[i] = model.Bar{
			Time:   mockStart.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector turns a Fetcher's bars into a validated price series.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol}
}

// Collect fetches the bar history, orders it by time and validates it.
func (c *Collector) Collect(ctx context.Context) (model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchBars(ctx, c.Symbol)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch bars from %s: %w", c.Fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%s returned no bars for %q: %w",
			c.Fetcher.Name(), c.Symbol, model.ErrInsufficientData)
	}

	if timed(bars) {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	} else {
		log.Warn().Str("source", c.Fetcher.Name()).Msg("bars carry no timestamps, keeping file order")
	}

	series := model.PriceSeries{Symbol: c.Symbol, Bars: bars}
	if err := series.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	log.Debug().Str("source", c.Fetcher.Name()).Str("symbol", c.Symbol).Int("bars", len(bars)).
		Msg("bars collected")
	return series, nil
}

func timed(bars []model.Bar) bool {
	for _, b := range bars {
		if b.Time.IsZero() {
			return false
		}
	}
	return true
}

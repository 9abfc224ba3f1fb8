package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScope/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCSVFetcher_HeaderMappedColumns(t *testing.T) {
	path := writeFile(t, "bars.csv", `Date,Open,High,Low,Close,Volume
2024-01-03,11,12,10,11.5,300
2024-01-02,10,11,9,10.5,200
`)
	bars, err := NewCSVFetcher(path).FetchBars(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 11.5, bars[0].Close)
	assert.Equal(t, 12.0, bars[0].High)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestCSVFetcher_CloseOnlyAndSymbolFilter(t *testing.T) {
	path := writeFile(t, "bars.csv", `symbol,close
AAA,10
BBB,99
AAA,11
`)
	bars, err := NewCSVFetcher(path).FetchBars(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Close)
	assert.Equal(t, 11.0, bars[1].Close)
	assert.True(t, bars[0].Time.IsZero())
	assert.Zero(t, bars[0].High)
}

func TestCSVFetcher_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no close column", "time,open\n2024-01-02,1\n"},
		{"bad close", "close\nabc\n"},
		{"empty close", "close,open\n,1\n"},
		{"bad time", "time,close\nyesterday,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVFetcher(writeFile(t, "bars.csv", tt.body)).FetchBars(context.Background(), "")
			assert.ErrorIs(t, err, model.ErrInvalidSeries)
		})
	}

	_, err := NewCSVFetcher(filepath.Join(t.TempDir(), "missing.csv")).FetchBars(context.Background(), "")
	assert.Error(t, err)
}

func TestParseTime_UnixSeconds(t *testing.T) {
	ts, err := parseTime("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

func TestCollector_SortsAndValidates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	m := &MockFetcher{Bars: []model.Bar{
		{Time: day(3), Close: 3},
		{Time: day(1), Close: 1},
		{Time: day(2), Close: 2},
	}}
	series, err := NewCollector(m, "X").Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "X", series.Symbol)
	assert.Equal(t, []float64{1, 2, 3}, series.Closes())
}

func TestCollector_KeepsOrderWithoutTimestamps(t *testing.T) {
	m := &MockFetcher{Bars: []model.Bar{{Close: 3}, {Close: 1}, {Close: 2}}}
	series, err := NewCollector(m, "X").Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, series.Closes())
}

func TestCollector_Errors(t *testing.T) {
	_, err := NewCollector(&MockFetcher{Bars: []model.Bar{}}, "X").Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = NewCollector(&MockFetcher{Bars: []model.Bar{{Close: 1}, {Close: -2}}}, "X").Collect(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidSeries)

	boom := errors.New("boom")
	_, err = NewCollector(&MockFetcher{Err: boom}, "X").Collect(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMockFetcher_Generated(t *testing.T) {
	bars, err := (&MockFetcher{Count: 50}).FetchBars(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, bars, 50)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Time.After(bars[i-1].Time))
		assert.Greater(t, bars[i].High, bars[i].Low)
	}
}

package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"TrendScope/internal/model"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSVFetcher reads bars from a headed CSV file. Columns are matched by name,
// case-insensitively: time (or date), open, high, low, close, volume and an
// optional symbol. Only close is required. When a symbol column exists, rows
// of other symbols are skipped.
type CSVFetcher struct {
	Path string
}

// NewCSVFetcher creates a fetcher for the file at path.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path}
}

func (f *CSVFetcher) Name() string { return "csv" }

// FetchBars parses the whole file.
func (f *CSVFetcher) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()
	return readCSV(ctx, file, symbol)
}

func readCSV(ctx context.Context, r io.Reader, symbol string) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["date"]; ok {
		if _, ok := cols["time"]; !ok {
			cols["time"] = cols["date"]
		}
	}
	if _, ok := cols["close"]; !ok {
		return nil, fmt.Errorf("csv has no close column: %w", model.ErrInvalidSeries)
	}

	var bars []model.Bar
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if i, ok := cols["symbol"]; ok && symbol != "" && i < len(rec) && rec[i] != symbol {
			continue
		}

		var bar model.Bar
		if bar.Close, err = field(rec, cols, "close"); err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		for name, dst := range map[string]*float64{
			"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "volume": &bar.Volume,
		} {
			if _, ok := cols[name]; !ok {
				continue
			}
			if *dst, err = field(rec, cols, name); err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
		}
		if i, ok := cols["time"]; ok && i < len(rec) {
			if bar.Time, err = parseTime(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func field(rec []string, cols map[string]int, name string) (float64, error) {
	i := cols[name]
	if i >= len(rec) {
		return 0, fmt.Errorf("missing %s: %w", name, model.ErrInvalidSeries)
	}
	s := strings.TrimSpace(rec[i])
	if s == "" && name != "close" {
		return 0, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, model.ErrInvalidSeries)
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("time %q: %w", s, model.ErrInvalidSeries)
}

package collector

import (
	"context"

	"TrendScope/internal/model"
)

// Fetcher defines the interface for loading a bar history.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string) ([]model.Bar, error)
	Name() string
}

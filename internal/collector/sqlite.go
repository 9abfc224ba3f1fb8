package collector

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"TrendScope/internal/model"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteFetcher reads bars from an OHLCV table:
//
//	symbol TEXT, ts INTEGER (unix seconds), open REAL, high REAL,
//	low REAL, close REAL, volume REAL
type SQLiteFetcher struct {
	db    *sqlx.DB
	table string
}

type barRow struct {
	TS     int64   `db:"ts"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume float64 `db:"volume"`
}

// NewSQLiteFetcher opens the database at dbPath read-only.
func NewSQLiteFetcher(dbPath, table string) (*SQLiteFetcher, error) {
	db, err := sqlx.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	f, err := NewSQLiteFetcherDB(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", dbPath).Str("table", table).Msg("sqlite bar source opened")
	return f, nil
}

// NewSQLiteFetcherDB wraps an already open database.
func NewSQLiteFetcherDB(db *sqlx.DB, table string) (*SQLiteFetcher, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("table name %q: %w", table, model.ErrInvalidConfiguration)
	}
	return &SQLiteFetcher{db: db, table: table}, nil
}

func (f *SQLiteFetcher) Name() string { return "sqlite" }

// FetchBars returns every bar of symbol ordered by time.
func (f *SQLiteFetcher) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	q := fmt.Sprintf(`SELECT ts, open, high, low, close, volume FROM %s WHERE symbol = ? ORDER BY ts`, f.table)
	var rows []barRow
	if err := f.db.SelectContext(ctx, &rows, q, symbol); err != nil {
		return nil, fmt.Errorf("query %s: %w", f.table, err)
	}
	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		bars[i] = model.Bar{
			Time:   time.Unix(r.TS, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

// Close closes the underlying database.
func (f *SQLiteFetcher) Close() error {
	return f.db.Close()
}

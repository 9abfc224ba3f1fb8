package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"TrendScope/internal/collector"
	"TrendScope/internal/config"
	"TrendScope/internal/trendline"
)

type rootOptions struct {
	configPath string
	source     string
	path       string
	symbol     string
	logLevel   string
	method     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "trendscope",
		Short:         "Detect support and resistance trendlines in price history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "path to the YAML config file")
	pf.StringVar(&opts.source, "source", "", "bar source: csv, sqlite, yahoo or mock")
	pf.StringVar(&opts.path, "path", "", "CSV file or SQLite database for file sources")
	pf.StringVar(&opts.symbol, "symbol", "", "symbol to analyse")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level override")

	root.AddCommand(newAnalyzeCmd(opts), newScheduleCmd(opts))
	return root
}

// load reads the config file and applies command line overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.source != "" {
		cfg.Source.Kind = o.source
	}
	if o.path != "" {
		cfg.Source.Path = o.path
	}
	if o.symbol != "" {
		cfg.Source.Symbol = o.symbol
	}
	if o.method != "" {
		cfg.Detection.Method = o.method
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := setLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// closer is implemented by fetchers holding resources.
type closer interface{ Close() error }

func buildFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.Source.Kind {
	case config.SourceCSV:
		return collector.NewCSVFetcher(cfg.Source.Path), nil
	case config.SourceSQLite:
		return collector.NewSQLiteFetcher(cfg.Source.Path, cfg.Source.Table)
	case config.SourceYahoo:
		return collector.NewYahooFetcher(cfg.Proxy, cfg.Source.Interval, cfg.Source.Range, cfg.Source.RatePerMinute), nil
	case config.SourceMock:
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source.Kind)
	}
}

// pipeline wires the collector and engine for cfg. The returned release
// func frees the fetcher.
func pipeline(cfg *config.Config) (*collector.Collector, *trendline.Engine, func(), error) {
	margin, err := cfg.MarginProvider()
	if err != nil {
		return nil, nil, nil, err
	}
	eng, err := trendline.NewEngine(cfg.DetectionParams(), margin, trendline.WithLogger(log.Logger))
	if err != nil {
		return nil, nil, nil, err
	}
	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if c, ok := fetcher.(closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close bar source")
			}
		}
	}
	log.Info().Str("source", fetcher.Name()).Str("margin", margin.Name()).Msg("pipeline ready")
	return collector.NewCollector(fetcher, cfg.Source.Symbol), eng, release, nil
}

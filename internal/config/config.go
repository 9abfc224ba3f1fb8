package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"TrendScope/internal/calculator"
	"TrendScope/internal/hough"
	"TrendScope/internal/model"
	"TrendScope/internal/trendline"
)

// Source kinds understood by the collector.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceYahoo  = "yahoo"
	SourceMock   = "mock"
)

// Margin modes.
const (
	MarginFixed = "fixed"
	MarginATR   = "atr"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Source struct {
		Kind          string  `yaml:"kind"`
		Path          string  `yaml:"path"`
		Symbol        string  `yaml:"symbol"`
		Table         string  `yaml:"table"`
		Interval      string  `yaml:"interval"`
		Range         string  `yaml:"range"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
	} `yaml:"source"`
	Detection struct {
		Method            string  `yaml:"method"`
		Window            int     `yaml:"window"`
		Ranges            []int   `yaml:"ranges"`
		MinScore          float64 `yaml:"min_score"`
		MaxFalseBreakouts int     `yaml:"max_false_breakouts"`
		Workers           int     `yaml:"workers"`
	} `yaml:"detection"`
	Margin struct {
		Mode          string  `yaml:"mode"`
		Fixed         float64 `yaml:"fixed"`
		ATRPeriod     int     `yaml:"atr_period"`
		ATRMultiplier float64 `yaml:"atr_multiplier"`
	} `yaml:"margin"`
	Hough    hough.Params `yaml:"hough"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when no file or override says
// otherwise.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"

	cfg.Source.Kind = SourceCSV
	cfg.Source.Path = "data.csv"
	cfg.Source.Symbol = "SPX500"
	cfg.Source.Table = "bars"
	cfg.Source.Interval = "1d"
	cfg.Source.Range = "2y"
	cfg.Source.RatePerMinute = 30

	p := trendline.DefaultParams()
	cfg.Detection.Method = p.Method
	cfg.Detection.Window = p.Window
	cfg.Detection.Ranges = p.Ranges
	cfg.Detection.MinScore = p.MinScore
	cfg.Detection.MaxFalseBreakouts = p.MaxFalseBreakouts
	cfg.Hough = p.Hough

	cfg.Margin.Mode = MarginFixed
	cfg.Margin.Fixed = 10
	cfg.Margin.ATRPeriod = 14
	cfg.Margin.ATRMultiplier = 1

	cfg.Schedule.Cron = "0 0 22 * * 1-5"
	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TRENDSCOPE_LOG_LEVEL":      &c.Log.Level,
		"TRENDSCOPE_SOURCE":         &c.Source.Kind,
		"TRENDSCOPE_SOURCE_PATH":    &c.Source.Path,
		"TRENDSCOPE_SYMBOL":         &c.Source.Symbol,
		"TRENDSCOPE_METHOD":         &c.Detection.Method,
		"TRENDSCOPE_MARGIN_MODE":    &c.Margin.Mode,
		"TRENDSCOPE_CRON":           &c.Schedule.Cron,
		"TRENDSCOPE_METRICS_LISTEN": &c.Metrics.Listen,
		"TELEGRAM_BOT_TOKEN":        &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":          &c.Telegram.ChatID,
		"HTTPS_PROXY":               &c.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TRENDSCOPE_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRENDSCOPE_WINDOW=%q: %w", v, model.ErrInvalidConfiguration)
		}
		c.Detection.Window = n
	}
	if v := os.Getenv("TRENDSCOPE_RANGES"); v != "" {
		ranges, err := parseRanges(v)
		if err != nil {
			return fmt.Errorf("TRENDSCOPE_RANGES=%q: %w", v, err)
		}
		c.Detection.Ranges = ranges
	}
	if v := os.Getenv("TRENDSCOPE_MARGIN"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRENDSCOPE_MARGIN=%q: %w", v, model.ErrInvalidConfiguration)
		}
		c.Margin.Fixed = f
	}
	if v := os.Getenv("TRENDSCOPE_RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true" || v == "1"
	}
	return nil
}

// parseRanges reads a comma separated list such as "10,25".
func parseRanges(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, model.ErrInvalidConfiguration
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate checks every field that can be checked without I/O.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %q: %w", c.Log.Level, model.ErrInvalidConfiguration)
	}

	switch c.Source.Kind {
	case SourceCSV, SourceSQLite:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for %s: %w", c.Source.Kind, model.ErrInvalidConfiguration)
		}
	case SourceYahoo:
		if c.Source.RatePerMinute <= 0 {
			return fmt.Errorf("source.rate_per_minute must be positive: %w", model.ErrInvalidConfiguration)
		}
	case SourceMock:
	default:
		return fmt.Errorf("source.kind %q is not one of csv, sqlite, yahoo, mock: %w",
			c.Source.Kind, model.ErrInvalidConfiguration)
	}
	if c.Source.Symbol == "" && c.Source.Kind != SourceCSV {
		return fmt.Errorf("source.symbol is required: %w", model.ErrInvalidConfiguration)
	}

	if err := c.DetectionParams().Validate(); err != nil {
		return err
	}
	if _, err := c.MarginProvider(); err != nil {
		return err
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together: %w", model.ErrInvalidConfiguration)
	}
	return nil
}

// TelegramEnabled reports whether reports should be pushed to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// DetectionParams converts the detection section into engine parameters.
func (c *Config) DetectionParams() trendline.Params {
	return trendline.Params{
		Method:            c.Detection.Method,
		Window:            c.Detection.Window,
		Ranges:            append([]int(nil), c.Detection.Ranges...),
		MinScore:          c.Detection.MinScore,
		MaxFalseBreakouts: c.Detection.MaxFalseBreakouts,
		Hough:             c.Hough,
		Workers:           c.Detection.Workers,
	}
}

// MarginProvider builds the tolerance strategy named by margin.mode. ATR
// mode keeps the fixed value as a fallback for close-only series.
func (c *Config) MarginProvider() (calculator.MarginProvider, error) {
	switch c.Margin.Mode {
	case MarginFixed:
		if c.Margin.Fixed <= 0 {
			return nil, fmt.Errorf("margin.fixed must be positive: %w", model.ErrInvalidConfiguration)
		}
		return calculator.FixedMargin{Value: c.Margin.Fixed}, nil
	case MarginATR:
		if c.Margin.ATRPeriod <= 0 || c.Margin.ATRMultiplier <= 0 {
			return nil, fmt.Errorf("margin.atr_period and margin.atr_multiplier must be positive: %w", model.ErrInvalidConfiguration)
		}
		if c.Margin.Fixed < 0 {
			return nil, fmt.Errorf("margin.fixed must not be negative: %w", model.ErrInvalidConfiguration)
		}
		return calculator.ATRMargin{
			Period:     c.Margin.ATRPeriod,
			Multiplier: c.Margin.ATRMultiplier,
			Fallback:   c.Margin.Fixed,
		}, nil
	default:
		return nil, fmt.Errorf("margin.mode %q is not fixed or atr: %w", c.Margin.Mode, model.ErrInvalidConfiguration)
	}
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"TrendScope/internal/metrics"
	"TrendScope/internal/model"
	"TrendScope/internal/notifier"
)

// Source yields the price series to analyse.
type Source interface {
	Collect(ctx context.Context) (model.PriceSeries, error)
}

// Detector runs trendline detection over a series.
type Detector interface {
	Detect(ctx context.Context, series model.PriceSeries) (*model.Result, error)
}

// Notifier delivers run summaries.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Report is the outcome of one run.
type Report struct {
	RunID  string
	Symbol string
	At     time.Time
	Took   time.Duration
	Result *model.Result
	Err    error
}

// Scheduler re-runs detection on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Source
	Engine    Detector
	Notifier  Notifier          // optional
	Metrics   *metrics.Registry // optional
	Symbol    string
	Ctx       context.Context

	runMu sync.Mutex
	bg    sync.WaitGroup
	mu    sync.RWMutex
	last  *Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col Source, eng Detector, symbol string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Engine:    eng,
		Symbol:    symbol,
		Ctx:       ctx,
	}
}

// Register adds the scan task on spec (six fields, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.Run(s.Ctx, true) }); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for scheduled and background
// scans to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.bg.Wait()
	log.Info().Msg("scheduler stopped")
}

// RunInBackground starts Run on its own goroutine. Stop waits for it.
func (s *Scheduler) RunInBackground(ctx context.Context, notify bool) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.Run(ctx, notify)
	}()
}

// Last returns the most recent report, or nil before the first run.
func (s *Scheduler) Last() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Run collects, detects and records one report. Runs never overlap. When
// notify is set the summary is pushed through the Notifier.
func (s *Scheduler) Run(ctx context.Context, notify bool) *Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rep := &Report{RunID: uuid.New().String(), Symbol: s.Symbol, At: time.Now()}
	logger := log.With().Str("run_id", rep.RunID).Str("symbol", s.Symbol).Logger()
	logger.Info().Msg("scan started")

	series, err := s.Collector.Collect(ctx)
	if err == nil {
		rep.Result, err = s.Engine.Detect(ctx, series)
	}
	rep.Err = err
	rep.Took = time.Since(rep.At)

	if s.Metrics != nil {
		s.Metrics.Observe(rep.Result, rep.Took, rep.Err)
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Dur("took", rep.Took).Msg("scan failed")
	} else {
		logger.Info().
			Int("support", len(rep.Result.Support)).
			Int("resistance", len(rep.Result.Resistance)).
			Dur("took", rep.Took).
			Msg("scan finished")
	}

	if notify {
		s.trySend(ctx, summary(rep))
	}
	return rep
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/scan":
		return summary(s.Run(ctx, false))
	case "/lines":
		rep := s.Last()
		if rep == nil {
			return "No scan has run yet. Send /scan to start one."
		}
		return fmt.Sprintf("Last scan %s\n\n%s", humanize.Time(rep.At), summary(rep))
	default:
		return "Available commands:\n• /scan - run detection now\n• /lines - show the last result"
	}
}

func summary(rep *Report) string {
	if rep.Err != nil {
		return notifier.FormatError(rep.Symbol, rep.RunID, rep.Err)
	}
	return notifier.FormatSummary(rep.Result, rep.RunID, rep.Took)
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

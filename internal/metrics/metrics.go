// Package metrics exposes detection run statistics to Prometheus.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"TrendScope/internal/model"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds the run metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Candidates  *prometheus.CounterVec
	Trendlines  *prometheus.GaugeVec
	Throwbacks  prometheus.Gauge

	mu      sync.RWMutex
	lastRun time.Time
	lastErr string
}

// NewRegistry creates and registers all TrendScope metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendscope_runs_total",
				Help: "Detection runs by result",
			},
			[]string{"result"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trendscope_run_duration_seconds",
				Help:    "Duration of a full fetch and detection run in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		Candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendscope_candidates_total",
				Help: "Candidate lines fitted by polarity",
			},
			[]string{"polarity"},
		),
		Trendlines: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendscope_trendlines",
				Help: "Accepted trendlines of the last successful run by polarity",
			},
			[]string{"polarity"},
		),
		Throwbacks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendscope_throwback_signals",
				Help: "Throwback signals in the last successful run",
			},
		),
	}
	r.reg.MustRegister(r.Runs, r.RunDuration, r.Candidates, r.Trendlines, r.Throwbacks)
	return r
}

// Observe records one run. res is ignored when err is set.
func (r *Registry) Observe(res *model.Result, took time.Duration, err error) {
	r.RunDuration.Observe(took.Seconds())

	r.mu.Lock()
	r.lastRun = time.Now()
	r.lastErr = ""
	if err != nil {
		r.lastErr = err.Error()
	}
	r.mu.Unlock()

	if err != nil || res == nil {
		r.Runs.WithLabelValues(ResultError).Inc()
		return
	}
	r.Runs.WithLabelValues(ResultOK).Inc()
	for _, st := range res.Stats {
		r.Candidates.WithLabelValues(st.Polarity).Add(float64(st.Candidates))
	}
	for _, pol := range []model.Polarity{model.Support, model.Resistance} {
		r.Trendlines.WithLabelValues(pol.String()).Set(float64(len(res.Lines(pol))))
	}
	r.Throwbacks.Set(float64(len(res.ThrowbackSignals())))
}

// Gatherer exposes the private registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Router serves /metrics and /healthz.
func (r *Registry) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", r.health).Methods(http.MethodGet)
	return router
}

func (r *Registry) health(w http.ResponseWriter, _ *http.Request) {
	r.mu.RLock()
	body := map[string]interface{}{"status": "ok"}
	if !r.lastRun.IsZero() {
		body["last_run"] = r.lastRun.UTC().Format(time.RFC3339)
	}
	if r.lastErr != "" {
		body["last_error"] = r.lastErr
	}
	r.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package metrics exposes Prometheus collectors for the crawl loop.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	notesPersistedTotal *prometheus.CounterVec
	notesSkippedTotal   *prometheus.CounterVec
	keywordsDoneTotal   prometheus.Counter
	blockedTotal        prometheus.Counter
	breakerTripsTotal   prometheus.Counter
	sinkErrorsTotal     prometheus.Counter
	delaySeconds        *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		notesPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_notes_persisted_total",
				Help: "Notes written to the sink, labeled by traffic tier.",
			},
			[]string{"tier"},
		)

		notesSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_notes_skipped_total",
				Help: "Notes dropped before persistence, labeled by reason.",
			},
			[]string{"reason"},
		)

		keywordsDoneTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_keywords_done_total",
				Help: "Keywords fully processed this run.",
			},
		)

		blockedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_blocked_total",
				Help: "Anti-automation interstitials encountered.",
			},
		)

		breakerTripsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_breaker_trips_total",
				Help: "Circuit breaker cooldowns served.",
			},
		)

		sinkErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_sink_errors_total",
				Help: "Persistence failures that were skipped over.",
			},
		)

		delaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_delay_seconds",
				Help:    "Histogram of governed delays, labeled by operation class.",
				Buckets: []float64{1, 5, 10, 20, 45, 90, 180, 300},
			},
			[]string{"class"},
		)
	})
}

// ObserveNotePersisted counts a persisted note by tier.
func ObserveNotePersisted(tier string) {
	notesPersistedTotal.WithLabelValues(tier).Inc()
}

// ObserveNoteSkipped counts a dropped note by reason.
func ObserveNoteSkipped(reason string) {
	notesSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveKeywordDone counts a completed keyword.
func ObserveKeywordDone() {
	keywordsDoneTotal.Inc()
}

// ObserveBlocked counts an anti-automation hit.
func ObserveBlocked() {
	blockedTotal.Inc()
}

// ObserveBreakerTrip counts a circuit breaker cooldown.
func ObserveBreakerTrip() {
	breakerTripsTotal.Inc()
}

// ObserveSinkError counts a persistence failure.
func ObserveSinkError() {
	sinkErrorsTotal.Inc()
}

// ObserveDelay records one governed delay.
func ObserveDelay(class string, d time.Duration) {
	delaySeconds.WithLabelValues(class).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs the scrape endpoint until the context is canceled. It is a
// sidecar to the crawl loop and never takes it down.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics endpoint failed", zap.Error(err))
	}
}

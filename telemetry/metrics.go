// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesProcessed     prometheus.Counter
	Classified         *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
	RecordsPersisted   *prometheus.CounterVec
	PersistFailures    prometheus.Counter
	WebhookSends       prometheus.Counter
	WebhookFailures    prometheus.Counter
	PollCycles         *prometheus.CounterVec

	// Histograms (seconds)
	PriceLookupDuration prometheus.Histogram

	// Gauges
	LiveStreamersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "clanwatch_lines_processed_total", Help: "Number of relayed chat lines handed to the pipeline"})
		Classified = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clanwatch_lines_classified_total", Help: "Number of lines classified, by category"}, []string{"category"})
		ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "clanwatch_extraction_failures_total", Help: "Number of classified lines dropped because field extraction failed"})
		RecordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clanwatch_records_persisted_total", Help: "Number of records written to the store, by category"}, []string{"category"})
		PersistFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "clanwatch_persist_failures_total", Help: "Number of store writes that failed"})
		WebhookSends = promauto.NewCounter(prometheus.CounterOpts{Name: "clanwatch_webhook_sends_total", Help: "Number of webhook posts attempted"})
		WebhookFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "clanwatch_webhook_failures_total", Help: "Number of webhook posts that failed after retries"})
		PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clanwatch_poll_cycles_total", Help: "Number of streamer poll cycles, by platform"}, []string{"platform"})
		PriceLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clanwatch_price_lookup_duration_seconds", Help: "Live price lookup duration seconds", Buckets: prometheus.DefBuckets})
		LiveStreamersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clanwatch_live_streamers", Help: "Current number of streamers reported live"})
	})
}

// SetLiveStreamers records the current count of live streamers.
func SetLiveStreamers(n int) {
	if LiveStreamersGauge != nil {
		LiveStreamersGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	webhookEventCounter   *prometheus.CounterVec
	ledgerConflictCounter prometheus.Counter
	walletCASRetryCounter prometheus.Counter
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		webhookEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by event type",
		}, []string{"event"})

		ledgerConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_conflicts_total",
			Help: "Gateway state conflicts and balance drift detections",
		})

		walletCASRetryCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_version_retries_total",
			Help: "Guarded balance updates lost to a concurrent writer",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			webhookEventCounter,
			ledgerConflictCounter,
			walletCASRetryCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWebhookEvent(event string) {
	if webhookEventCounter == nil {
		return
	}
	webhookEventCounter.WithLabelValues(event).Inc()
}

func IncrementLedgerConflict() {
	if ledgerConflictCounter == nil {
		return
	}
	ledgerConflictCounter.Inc()
}

func IncrementWalletCASRetry() {
	if walletCASRetryCounter == nil {
		return
	}
	walletCASRetryCounter.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/creatorx/wallet-service/internal/idempotency"
	"github.com/creatorx/wallet-service/internal/observability"
	"github.com/creatorx/wallet-service/internal/service"
	"go.uber.org/zap"
)

// CleanupWorker periodically times out pending transactions that the
// payer abandoned at checkout and purges expired idempotency records.
type CleanupWorker struct {
	svc      *service.WalletService
	idem     *idempotency.Store
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupWorker constructs a worker with a default ten minute
// interval.
func NewCleanupWorker(svc *service.WalletService) *CleanupWorker {
	return &CleanupWorker{
		svc:      svc,
		interval: 10 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithIdempotencyStore adds idempotency record purging to the sweep.
func (w *CleanupWorker) WithIdempotencyStore(idem *idempotency.Store) *CleanupWorker {
	w.idem = idem
	return w
}

// WithInterval updates the run interval.
func (w *CleanupWorker) WithInterval(interval time.Duration) *CleanupWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *CleanupWorker) Start(ctx context.Context) {
	zap.L().Info("cleanup worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("cleanup worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("cleanup worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *CleanupWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *CleanupWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	count, err := w.svc.SweepStalePending(ctx)
	if err != nil {
		observability.IncrementWorkerRun("cleanup", "failed")
		zap.L().Error("stale pending sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("cleanup", "success")
	if count > 0 {
		zap.L().Info("stale pending sweep finished", zap.Int("timed_out", count))
	}

	if w.idem != nil {
		purged, err := w.idem.PurgeExpired(ctx)
		if err != nil {
			zap.L().Error("idempotency purge failed", zap.Error(err))
			return
		}
		if purged > 0 {
			zap.L().Info("idempotency purge finished", zap.Int64("purged", purged))
		}
	}
}

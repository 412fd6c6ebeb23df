// internal/app/system/workers/leasereaper.go
package workers

import (
	"context"
	"sync"
	"time"

	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	"go.uber.org/zap"
)

// LeaseReaper is a background worker that clears expired leases from the
// crawl queue. Expiry is already folded into the lease query itself, so
// the reaper is hygiene: it keeps abandoned holder fields from lingering
// in entries no agent asks for.
type LeaseReaper struct {
	queue    *queuestore.Store
	log      *zap.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewLeaseReaper creates a new lease reaper.
//
// Parameters:
//   - queue: the queue store
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - ttl: the lease TTL; leases older than this are cleared
func NewLeaseReaper(queue *queuestore.Store, logger *zap.Logger, interval, ttl time.Duration) *LeaseReaper {
	return &LeaseReaper{
		queue:    queue,
		log:      logger,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *LeaseReaper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("lease reaper started",
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *LeaseReaper) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("lease reaper stopped")
}

func (w *LeaseReaper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *LeaseReaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.queue.ClearExpired(ctx, w.ttl)
	if err != nil {
		w.log.Error("failed to clear expired leases", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("cleared expired leases", zap.Int64("count", count))
	}
}

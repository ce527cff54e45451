/*
scheduler.go - Automated booking completion

PURPOSE:
  Periodically completes CONFIRMED bookings whose charter has ended, so
  operators do not have to close each one by hand.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Delegates to booking.Service.CompleteDue, which uses the same versioned
    transition as a manual Complete
  - Bookings that race with an admin action are skipped and retried next tick

CONFIGURATION:
  - Interval: How often to check (default: 15 minutes)
  - Enabled:  Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewCompletionScheduler(svc, logger, 15*time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CompleteBooking endpoint (manual completion)
  - booking/service.go: CompleteDue
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/logging"
)

// CompletionScheduler completes finished charters in the background.
type CompletionScheduler struct {
	Service  *booking.Service
	Logger   *zap.Logger
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCompletionScheduler creates a new scheduler.
func NewCompletionScheduler(svc *booking.Service, logger *zap.Logger, interval time.Duration) *CompletionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionScheduler{
		Service:  svc,
		Logger:   logger.Named("scheduler"),
		Interval: interval,
		Enabled:  true,
	}
}

// Start begins the scheduler.
func (cs *CompletionScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(logging.WithActor(context.Background(), "scheduler"))
	cs.cancel = cancel
	cs.stop = make(chan struct{})
	cs.ticker = time.NewTicker(cs.Interval)
	cs.wg.Add(1)

	go cs.run(ctx, cs.ticker.C)

	cs.Logger.Info("started", zap.Duration("interval", cs.Interval))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (cs *CompletionScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker == nil {
		return
	}
	cs.ticker.Stop()
	close(cs.stop)
	cs.cancel()
	cs.wg.Wait()
	cs.ticker = nil
	cs.Logger.Info("stopped")
}

func (cs *CompletionScheduler) run(ctx context.Context, tick <-chan time.Time) {
	defer cs.wg.Done()

	// Run immediately on start
	cs.RunNow(ctx)

	for {
		select {
		case <-tick:
			cs.RunNow(ctx)
		case <-cs.stop:
			return
		}
	}
}

// RunNow completes due bookings once and returns how many were completed.
func (cs *CompletionScheduler) RunNow(ctx context.Context) int {
	n, err := cs.Service.CompleteDue(ctx)
	if err != nil && ctx.Err() == nil {
		cs.Logger.Error("completing due bookings", zap.Error(err), zap.Int("completed", n))
		return n
	}
	if n > 0 {
		cs.Logger.Info("completed due bookings", zap.Int("completed", n))
	}
	return n
}

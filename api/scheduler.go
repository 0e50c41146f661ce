/*
scheduler.go - Periodic expiry-alert scan

PURPOSE:
  Periodically computes expiry alerts for every active employee, logs each
  one and keeps the latest scan for GET /api/alerts/latest.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Scans once immediately on start
  - Reads the policy on every scan, so a reloaded alert window applies to
    the next run

CONFIGURATION:
  - CheckInterval: How often to scan (default: 24 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewExpiryAlertScheduler(service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - timeoff/alerts.go: DeriveAlert
  - handlers.go: LatestAlerts endpoint
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/zap"
)

// ExpiryAlertScheduler runs the alert scan on a ticker.
type ExpiryAlertScheduler struct {
	Service       *timeoff.RequestService
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	resultMu sync.RWMutex
	latest   []timeoff.ExpiryAlert
	ranAt    time.Time
}

func NewExpiryAlertScheduler(service *timeoff.RequestService, logger ...*zap.Logger) *ExpiryAlertScheduler {
	l := zap.L().Named("api.scheduler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("api.scheduler")
	}
	return &ExpiryAlertScheduler{
		Service:       service,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		logger:        l,
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (s *ExpiryAlertScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("scheduler started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running scan to finish.
func (s *ExpiryAlertScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("scheduler stopped")
	}
}

func (s *ExpiryAlertScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one scan and records its result.
func (s *ExpiryAlertScheduler) RunNow(ctx context.Context) ([]timeoff.ExpiryAlert, error) {
	alerts, err := s.Service.ExpiryAlerts(ctx)
	if err != nil {
		s.logger.Error("expiry alert scan failed", zap.Error(err))
		return nil, err
	}

	for _, a := range alerts {
		s.logger.Info("leave expiring",
			zap.String("employee_id", a.EmployeeID),
			zap.String("category", string(a.Category)),
			zap.String("remaining_hours", a.Remaining.Value.String()),
			zap.String("expiry", a.Expiry.String()),
			zap.Int("days_left", a.DaysLeft),
		)
	}

	s.resultMu.Lock()
	s.latest = alerts
	s.ranAt = s.Service.Clock()
	s.resultMu.Unlock()

	s.logger.Debug("expiry alert scan completed", zap.Int("alerts", len(alerts)))
	return alerts, nil
}

// Latest returns the alerts of the last completed scan and when it ran.
func (s *ExpiryAlertScheduler) Latest() ([]timeoff.ExpiryAlert, time.Time) {
	s.resultMu.RLock()
	defer s.resultMu.RUnlock()
	return append([]timeoff.ExpiryAlert(nil), s.latest...), s.ranAt
}

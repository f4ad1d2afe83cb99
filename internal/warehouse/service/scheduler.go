package service

import (
	"context"
	"time"

	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// AlertScheduler runs the alert scanner periodically in the background.
type AlertScheduler struct {
	scanner  *AlertScanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewAlertScheduler creates a new alert scheduler.
func NewAlertScheduler(scanner *AlertScanner, interval time.Duration, log *logger.Logger) *AlertScheduler {
	return &AlertScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine. An initial scan
// runs immediately so a fresh deployment surfaces existing conditions.
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		s.runScan(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.runScan(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine.
func (s *AlertScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *AlertScheduler) runScan(ctx context.Context) {
	start := time.Now()
	if err := s.scanner.ScanAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("alert scan cycle finished with errors")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("alert scan cycle completed")
}

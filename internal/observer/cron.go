package observer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"safe-core/pkg/logger"
)

// Scheduler runs Observer.Tick on a cron schedule such as "@every 30s".
// Overlapping ticks are skipped rather than queued.
type Scheduler struct {
	cron     *cron.Cron
	observer *Observer
	cancel   context.CancelFunc
}

func NewScheduler(o *Observer) *Scheduler {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{cron: c, observer: o}
}

// Start registers the tick and starts the scheduler. Ticks use a context
// derived from ctx that Stop cancels.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	ctx, s.cancel = context.WithCancel(ctx)
	_, err := s.cron.AddFunc(schedule, func() { s.observer.Tick(ctx) })
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	logger.Info("observer scheduler started",
		zap.String("schedule", schedule),
		zap.Int("safes", len(s.observer.cfg.Safes)),
	)
	return nil
}

// Stop cancels in-flight ticks and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	logger.Info("observer scheduler stopped")
}

package requestlog

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	purgeHour   = 3
	purgeMinute = 0
)

// Scheduler enqueues the retention sweep once a day.
type Scheduler struct {
	service *Service
	now     func() time.Time
}

func NewScheduler(svc *Service) *Scheduler {
	return &Scheduler{service: svc, now: func() time.Time { return time.Now().UTC() }}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started request log retention scheduler")

	for {
		now := s.now()
		next := nextRunTime(now, purgeHour, purgeMinute)

		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", next.Sub(now)),
		)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			s.runDaily(ctx)
		case <-ctx.Done():
			timer.Stop()
			zap.L().Info("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	if err := s.service.EnqueuePurge(ctx); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue request log purge", zap.Error(err))
		return
	}
	zap.L().Info("[Scheduler] enqueued request log purge")
}

// nextRunTime returns the next occurrence of hour:minute strictly after now.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

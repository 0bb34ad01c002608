package draft

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeper schedules SweepTimeouts on a fixed interval. Callers own the
// returned scheduler and must Shutdown it on exit.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.SweepTimeouts(ctx) }),
	); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

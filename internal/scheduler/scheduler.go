// Package scheduler fires the nightly allocation: at the configured hour
// it auto-creates default requests for tomorrow, runs the engine, and
// issues boarding passes. All semantics live in the services it calls.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-shuttle/internal/allocation"
	"ms-shuttle/internal/boarding"
	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/requests"
	"ms-shuttle/internal/utils"
)

type Scheduler struct {
	Allocation *allocation.Service
	Requests   *requests.Service
	Boarding   *boarding.Service
	Logger     *logger.Logger
	RunHour    int
}

// Start launches the trigger loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			wait := time.Until(s.nextRun(time.Now()))
			s.Logger.LogProcess("SCHEDULER", fmt.Sprintf("next allocation run in %s", wait.Round(time.Second)))

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				s.fire(ctx)
			}
		}
	}()
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.RunHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// fire runs one nightly cycle for tomorrow's service date. Errors are
// logged, never fatal: a failed run is recorded for audit and may be
// re-invoked through the API.
func (s *Scheduler) fire(ctx context.Context) {
	date := utils.FormatServiceDate(time.Now().AddDate(0, 0, 1))

	if _, err := s.Requests.AutoCreateDefaults(ctx, date); err != nil {
		s.Logger.Error("SCHEDULER", fmt.Sprintf("auto-create defaults for %s: %v", date, err))
		return
	}

	if _, err := s.Allocation.RunAllocation(ctx, date); err != nil {
		if errors.Is(err, allocation.ErrAlreadyRun) || errors.Is(err, allocation.ErrAlreadyLocked) {
			s.Logger.LogProcess("SCHEDULER", fmt.Sprintf("allocation for %s already handled", date))
			return
		}
		s.Logger.Error("SCHEDULER", fmt.Sprintf("allocation run for %s: %v", date, err))
		return
	}

	if _, err := s.Boarding.IssuePasses(ctx, date); err != nil {
		s.Logger.Error("SCHEDULER", fmt.Sprintf("issue passes for %s: %v", date, err))
	}
}

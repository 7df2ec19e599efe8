package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/models"
)

type DBLayer interface {
	GetRun(ctx context.Context, date string) (*models.AllocationRun, error)
	AcquireLock(ctx context.Context, date string) error
	PendingRequests(ctx context.Context, date string) ([]*models.Request, error)
	Fleet(ctx context.Context) ([]models.Bus, []models.Seat, error)
	OccupiedSeats(ctx context.Context, date string) (map[string]bool, error)
	UpsertRun(ctx context.Context, run *models.AllocationRun) error
	FinalizeRun(ctx context.Context, run *models.AllocationRun, requests []*models.Request) error
}

type RedisLock interface {
	LockDate(date, runID string) (bool, error)
	UnlockDate(date, runID string) error
}

type KafkaPublisher interface {
	PublishRunCompleted(run models.AllocationRun) error
	PublishRunFailed(run models.AllocationRun) error
}

// Service runs the allocation engine for one service date at a time. It
// holds no mutable state between invocations; runs for different dates are
// independent and may execute concurrently.
type Service struct {
	DB     DBLayer
	Redis  RedisLock
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewService(db DBLayer, redisLock RedisLock, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Redis: redisLock, Kafka: kafka, Logger: log}
}

// GetRun returns the persisted audit record for a date, or nil if the
// allocation has not run.
func (s *Service) GetRun(ctx context.Context, date string) (*models.AllocationRun, error) {
	return s.DB.GetRun(ctx, date)
}

// RunAllocation executes the engine for one service date: acquire the date
// lock, classify and group the pending requests, assign seats in one
// deterministic pass, and persist the outcome atomically.
//
// A COMPLETED run for the date is rejected with ErrAlreadyRun and leaves
// all prior assignments unchanged. A FAILED run may be re-invoked
// explicitly; the lock acquired by the failed attempt is then reused.
func (s *Service) RunAllocation(ctx context.Context, date string) (*models.AllocationRun, error) {
	existing, err := s.DB.GetRun(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load existing run: %w", err)
	}
	if existing != nil && existing.Status == models.RunCompleted {
		s.Logger.LogAllocation("SKIP", date, "run already completed")
		return existing, ErrAlreadyRun
	}
	retry := existing != nil

	run := &models.AllocationRun{
		RunDate:    date,
		RunID:      uuid.NewString(),
		ExecutedAt: time.Now().UTC(),
		Status:     models.RunRunning,
	}

	// Fast duplicate-trigger guard. The durable lock below is what blocks
	// the modification path; the Redis key only fences two engine
	// processes racing on the same date.
	if s.Redis != nil {
		ok, err := s.Redis.LockDate(date, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		if !ok {
			s.Logger.LogLock("CONTENDED", date, "run guard already held")
			return nil, ErrAlreadyLocked
		}
		defer func() { _ = s.Redis.UnlockDate(date, run.RunID) }()
	}

	if !retry {
		if err := s.DB.AcquireLock(ctx, date); err != nil {
			s.Logger.LogLock("DENIED", date, err.Error())
			return nil, err
		}
		s.Logger.LogLock("ACQUIRED", date, "date locked for allocation")
	}

	if err := s.DB.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	result, runErr := s.executeRun(ctx, date, run)
	if runErr != nil {
		// Precondition or persistence fault: no request statuses were
		// committed. Record the fault for audit and surface it.
		run.Status = models.RunFailed
		run.ErrorMessage = runErr.Error()
		if err := s.DB.FinalizeRun(ctx, run, nil); err != nil {
			s.Logger.Error("ALLOCATION", fmt.Sprintf("record failed run for %s: %v", date, err))
		}
		s.publish(*run)
		return run, runErr
	}

	s.publish(*result)
	return result, nil
}

func (s *Service) executeRun(ctx context.Context, date string, run *models.AllocationRun) (*models.AllocationRun, error) {
	requests, err := s.DB.PendingRequests(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}
	buses, seats, err := s.DB.Fleet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fleet: %w", err)
	}
	occupied, err := s.DB.OccupiedSeats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}

	capacity := NewCapacity(buses, seats, occupied)
	if len(requests) > 0 && capacity.Empty() {
		return nil, ErrNoCapacity
	}

	units, err := BuildUnits(requests)
	if err != nil {
		return nil, err
	}

	s.Logger.LogAllocation("START", date, fmt.Sprintf("%d requests in %d units", len(requests), len(units)))

	tally := Allocate(units, capacity)

	run.Status = models.RunCompleted
	run.TotalRequests = tally.TotalRequests
	run.GroupsAllocated = tally.GroupsAllocated
	run.HighPriorityAllocated = tally.HighPriorityAllocated
	run.MediumPriorityAllocated = tally.MediumPriorityAllocated
	run.LowPriorityAllocated = tally.LowPriorityAllocated
	run.FailedAllocations = tally.FailedAllocations

	if err := s.DB.FinalizeRun(ctx, run, requests); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}

	s.Logger.LogAllocation("COMPLETE", date, fmt.Sprintf(
		"groups=%d high=%d medium=%d low=%d failed=%d",
		tally.GroupsAllocated, tally.HighPriorityAllocated,
		tally.MediumPriorityAllocated, tally.LowPriorityAllocated,
		tally.FailedAllocations))

	return run, nil
}

func (s *Service) publish(run models.AllocationRun) {
	if s.Kafka == nil {
		return
	}
	var err error
	if run.Status == models.RunCompleted {
		err = s.Kafka.PublishRunCompleted(run)
	} else {
		err = s.Kafka.PublishRunFailed(run)
	}
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish run event for %s: %v", run.RunDate, err))
	}
}

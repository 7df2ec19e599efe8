package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-shuttle/internal/allocation"
	"ms-shuttle/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetRun fetches the audit record for a date; nil when the allocation has
// not run yet.
func (d *DB) GetRun(ctx context.Context, date string) (*models.AllocationRun, error) {
	var run models.AllocationRun
	err := d.Bun.NewSelect().
		Model(&run).
		Where("run_date = ?", date).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// AcquireLock sets the date's lock row, failing with ErrAlreadyLocked when
// the date is already locked. Insert and conditional update run inside one
// transaction so a concurrent acquisition cannot slip between them.
func (d *DB) AcquireLock(ctx context.Context, date string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&models.DailyLock{ServiceDate: date, IsLocked: true}).
			On("CONFLICT (service_date) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}
		// Row exists: flip the flag only if it is still clear.
		res, err = tx.NewUpdate().
			Model((*models.DailyLock)(nil)).
			Set("is_locked = ?", true).
			Where("service_date = ? AND is_locked = ?", date, false).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return allocation.ErrAlreadyLocked
		}
		return nil
	})
}

// IsLocked is the side-effect-free lock query used by the modification path.
func (d *DB) IsLocked(ctx context.Context, date string) (bool, error) {
	var lock models.DailyLock
	err := d.Bun.NewSelect().
		Model(&lock).
		Where("service_date = ?", date).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lock.IsLocked, nil
}

// PendingRequests returns the date's PENDING requests in the engine's
// deterministic base order.
func (d *DB) PendingRequests(ctx context.Context, date string) ([]*models.Request, error) {
	var requests []*models.Request
	err := d.Bun.NewSelect().
		Model(&requests).
		Where("service_date = ? AND status = ?", date, models.RequestPending).
		Order("created_at ASC", "request_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// Fleet returns all buses and seats. Ordering is re-applied by the capacity
// model; the queries order anyway so logs and tests read predictably.
func (d *DB) Fleet(ctx context.Context) ([]models.Bus, []models.Seat, error) {
	var buses []models.Bus
	if err := d.Bun.NewSelect().Model(&buses).Order("bus_id ASC").Scan(ctx); err != nil {
		return nil, nil, err
	}
	var seats []models.Seat
	err := d.Bun.NewSelect().
		Model(&seats).
		Order("bus_id ASC", "row ASC", "position ASC").
		Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	return buses, seats, nil
}

// OccupiedSeats returns the seat IDs already assigned for the date.
func (d *DB) OccupiedSeats(ctx context.Context, date string) (map[string]bool, error) {
	var seatIDs []string
	err := d.Bun.NewSelect().
		Column("allocated_seat_id").
		Table("daily_requests").
		Where("service_date = ? AND status = ?", date, models.RequestAllocated).
		Scan(ctx, &seatIDs)
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		occupied[id] = true
	}
	return occupied, nil
}

// UpsertRun writes the RUNNING run row for the date. Re-invoking a FAILED
// run reuses the date row with a fresh run ID and timestamp.
func (d *DB) UpsertRun(ctx context.Context, run *models.AllocationRun) error {
	_, err := d.Bun.NewInsert().
		Model(run).
		On("CONFLICT (run_date) DO UPDATE").
		Set("run_id = EXCLUDED.run_id").
		Set("executed_at = EXCLUDED.executed_at").
		Set("status = EXCLUDED.status").
		Set("error_message = EXCLUDED.error_message").
		Set("total_requests = EXCLUDED.total_requests").
		Set("groups_allocated = EXCLUDED.groups_allocated").
		Set("high_priority_allocated = EXCLUDED.high_priority_allocated").
		Set("medium_priority_allocated = EXCLUDED.medium_priority_allocated").
		Set("low_priority_allocated = EXCLUDED.low_priority_allocated").
		Set("failed_allocations = EXCLUDED.failed_allocations").
		Exec(ctx)
	return err
}

// FinalizeRun commits the run outcome and every request's terminal status
// as one transaction. On any fault the whole set rolls back: per-request
// outcomes are never partially visible relative to the run record.
func (d *DB) FinalizeRun(ctx context.Context, run *models.AllocationRun, requests []*models.Request) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, req := range requests {
			res, err := tx.NewUpdate().
				Model(req).
				Column("status", "allocated_bus_id", "allocated_seat_id").
				Where("request_id = ?", req.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("update request %s: %w", req.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("request %s vanished during run", req.ID)
			}
		}

		_, err := tx.NewUpdate().
			Model(run).
			Column("run_id", "executed_at", "status", "error_message",
				"total_requests", "groups_allocated",
				"high_priority_allocated", "medium_priority_allocated",
				"low_priority_allocated", "failed_allocations").
			Where("run_date = ?", run.RunDate).
			Exec(ctx)
		return err
	})
}

// GetRequest returns one request by ID for the query endpoints.
func (d *DB) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	err := d.Bun.NewSelect().
		Model(&req).
		Where("request_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

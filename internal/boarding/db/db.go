package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-shuttle/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// AllocatedRow joins an allocated request with the label of its seat.
type AllocatedRow struct {
	Request   models.Request
	SeatLabel string
}

// AllocatedRequests returns the date's allocated requests with seat labels,
// in seat order.
func (d *DB) AllocatedRequests(ctx context.Context, date string) ([]AllocatedRow, error) {
	var reqs []models.Request
	err := d.Bun.NewSelect().
		Model(&reqs).
		Where("service_date = ? AND status = ?", date, models.RequestAllocated).
		Order("allocated_bus_id ASC", "allocated_seat_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var seats []models.Seat
	if err := d.Bun.NewSelect().Model(&seats).Scan(ctx); err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(seats))
	for _, s := range seats {
		labels[s.ID] = s.Label
	}

	rows := make([]AllocatedRow, 0, len(reqs))
	for _, req := range reqs {
		row := AllocatedRow{Request: req}
		if req.AllocatedSeatID != nil {
			row.SeatLabel = labels[*req.AllocatedSeatID]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *DB) CreatePass(ctx context.Context, pass models.BoardingPass) error {
	_, err := d.Bun.NewInsert().Model(&pass).Exec(ctx)
	return err
}

// GetPassByRequest returns the pass issued for a request, if any.
func (d *DB) GetPassByRequest(ctx context.Context, requestID string) (*models.BoardingPass, error) {
	var pass models.BoardingPass
	err := d.Bun.NewSelect().
		Model(&pass).
		Where("request_id = ?", requestID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// HasPass reports whether a pass already exists for a request.
func (d *DB) HasPass(ctx context.Context, requestID string) (bool, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.BoardingPass)(nil)).
		Where("request_id = ?", requestID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

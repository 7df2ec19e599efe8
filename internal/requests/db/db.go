package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-shuttle/internal/models"
	"ms-shuttle/internal/requests"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("user_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().Model(&users).Order("user_id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

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

func (d *DB) UserIDsWithRequest(ctx context.Context, date string) (map[string]bool, error) {
	var userIDs []string
	err := d.Bun.NewSelect().
		Column("user_id").
		Table("daily_requests").
		Where("service_date = ?", date).
		Scan(ctx, &userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		out[id] = true
	}
	return out, nil
}

// UpsertIfUnlocked writes the request in a single statement that also
// checks the date lock: the insert's source row only exists while no lock
// is set, so a lock acquired concurrently can never be missed. A replaced
// request must still be PENDING; outcomes written by the engine are final.
//
// The conflict path keeps the existing row's request_id and created_at, so
// the row is read back and returned as stored.
func (d *DB) UpsertIfUnlocked(ctx context.Context, req *models.Request) (*models.Request, error) {
	res, err := d.Bun.ExecContext(ctx, `
		INSERT INTO daily_requests
			(request_id, user_id, service_date, request_lat, request_lng,
			 is_default_day, is_modified, group_id, status,
			 allocated_bus_id, allocated_seat_id, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM daily_locks WHERE service_date = ? AND is_locked
		)
		ON CONFLICT (user_id, service_date) DO UPDATE SET
			request_lat = excluded.request_lat,
			request_lng = excluded.request_lng,
			is_modified = excluded.is_modified,
			group_id    = excluded.group_id
		WHERE daily_requests.status = ?`,
		req.ID, req.UserID, req.ServiceDate, req.RequestLat, req.RequestLng,
		req.IsDefaultDay, req.IsModified, req.GroupID, req.Status,
		req.CreatedAt,
		req.ServiceDate,
		models.RequestPending,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, requests.ErrDateLocked
	}

	var stored models.Request
	err = d.Bun.NewSelect().
		Model(&stored).
		Where("user_id = ? AND service_date = ?", req.UserID, req.ServiceDate).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// CreateRequests inserts auto-created requests, subject to the same
// single-statement lock check as UpsertIfUnlocked: nothing lands on a
// locked date, and existing requests are never disturbed. Returns the
// number of rows actually inserted.
func (d *DB) CreateRequests(ctx context.Context, reqs []*models.Request) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	inserted := 0
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, req := range reqs {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO daily_requests
					(request_id, user_id, service_date, request_lat, request_lng,
					 is_default_day, is_modified, group_id, status,
					 allocated_bus_id, allocated_seat_id, created_at)
				SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?
				WHERE NOT EXISTS (
					SELECT 1 FROM daily_locks WHERE service_date = ? AND is_locked
				)
				ON CONFLICT (user_id, service_date) DO NOTHING`,
				req.ID, req.UserID, req.ServiceDate, req.RequestLat, req.RequestLng,
				req.IsDefaultDay, req.IsModified, req.GroupID, req.Status,
				req.CreatedAt,
				req.ServiceDate,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 1 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

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

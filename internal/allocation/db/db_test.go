package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-shuttle/internal/allocation"
	allocdb "ms-shuttle/internal/allocation/db"
	"ms-shuttle/internal/models"
)

const testDate = "2026-03-02"

func setupTestDB(t *testing.T) *allocdb.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })
	// A single connection keeps the shared in-memory database alive and
	// serializes transactions the way a file-backed instance would.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Request)(nil),
		(*models.Bus)(nil),
		(*models.Seat)(nil),
		(*models.DailyLock)(nil),
		(*models.AllocationRun)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	return &allocdb.DB{Bun: bunDB}
}

func insertRequest(t *testing.T, d *allocdb.DB, req *models.Request) {
	t.Helper()
	_, err := d.Bun.NewInsert().Model(req).Exec(context.Background())
	require.NoError(t, err)
}

func insertFleet(t *testing.T, d *allocdb.DB, busID string, seatCount int) {
	t.Helper()
	ctx := context.Background()
	bus := models.Bus{ID: busID, Name: busID, Capacity: seatCount}
	_, err := d.Bun.NewInsert().Model(&bus).Exec(ctx)
	require.NoError(t, err)
	for i := 1; i <= seatCount; i++ {
		seat := models.Seat{
			ID:       fmt.Sprintf("%s-s%d", busID, i),
			BusID:    busID,
			Row:      1,
			Position: i,
			Label:    fmt.Sprintf("1%c", 'A'+i-1),
		}
		_, err := d.Bun.NewInsert().Model(&seat).Exec(ctx)
		require.NoError(t, err)
	}
}

func TestAcquireLock(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	locked, err := d.IsLocked(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, d.AcquireLock(ctx, testDate))

	locked, err = d.IsLocked(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, locked)

	// Second acquisition must fail fast.
	err = d.AcquireLock(ctx, testDate)
	assert.ErrorIs(t, err, allocation.ErrAlreadyLocked)
}

func TestAcquireLockExistingUnlockedRow(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.Bun.NewInsert().
		Model(&models.DailyLock{ServiceDate: testDate, IsLocked: false}).
		Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, d.AcquireLock(ctx, testDate))
	locked, err := d.IsLocked(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestPendingRequestsOrderAndFilter(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	insertRequest(t, d, &models.Request{
		ID: "r-late", UserID: "u1", ServiceDate: testDate,
		Status: models.RequestPending, CreatedAt: base.Add(time.Hour),
	})
	insertRequest(t, d, &models.Request{
		ID: "r-early", UserID: "u2", ServiceDate: testDate,
		Status: models.RequestPending, CreatedAt: base,
	})
	insertRequest(t, d, &models.Request{
		ID: "r-done", UserID: "u3", ServiceDate: testDate,
		Status: models.RequestAllocated, CreatedAt: base,
	})
	insertRequest(t, d, &models.Request{
		ID: "r-other-day", UserID: "u4", ServiceDate: "2026-03-03",
		Status: models.RequestPending, CreatedAt: base,
	})

	reqs, err := d.PendingRequests(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "r-early", reqs[0].ID)
	assert.Equal(t, "r-late", reqs[1].ID)
}

func TestOccupiedSeats(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	seatID := "B1-s1"

	insertRequest(t, d, &models.Request{
		ID: "r1", UserID: "u1", ServiceDate: testDate,
		Status: models.RequestAllocated, AllocatedSeatID: &seatID,
		CreatedAt: time.Now(),
	})

	occupied, err := d.OccupiedSeats(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, occupied[seatID])
	assert.Len(t, occupied, 1)
}

func TestGetRunMissing(t *testing.T) {
	d := setupTestDB(t)

	run, err := d.GetRun(context.Background(), testDate)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestUpsertRunReusesDateRow(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	first := &models.AllocationRun{
		RunDate: testDate, RunID: "run-1",
		ExecutedAt: time.Now().UTC(), Status: models.RunFailed,
		ErrorMessage: "disk full",
	}
	require.NoError(t, d.UpsertRun(ctx, first))

	second := &models.AllocationRun{
		RunDate: testDate, RunID: "run-2",
		ExecutedAt: time.Now().UTC(), Status: models.RunRunning,
	}
	require.NoError(t, d.UpsertRun(ctx, second))

	got, err := d.GetRun(ctx, testDate)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, models.RunRunning, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestFinalizeRunCommitsAtomically(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	insertFleet(t, d, "B1", 2)

	req := &models.Request{
		ID: "r1", UserID: "u1", ServiceDate: testDate,
		Status: models.RequestPending, CreatedAt: time.Now(),
	}
	insertRequest(t, d, req)

	run := &models.AllocationRun{
		RunDate: testDate, RunID: "run-1",
		ExecutedAt: time.Now().UTC(), Status: models.RunRunning,
	}
	require.NoError(t, d.UpsertRun(ctx, run))

	busID, seatID := "B1", "B1-s1"
	req.Status = models.RequestAllocated
	req.AllocatedBusID = &busID
	req.AllocatedSeatID = &seatID
	run.Status = models.RunCompleted
	run.TotalRequests = 1
	run.HighPriorityAllocated = 1

	require.NoError(t, d.FinalizeRun(ctx, run, []*models.Request{req}))

	stored, err := d.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAllocated, stored.Status)
	require.NotNil(t, stored.AllocatedSeatID)
	assert.Equal(t, seatID, *stored.AllocatedSeatID)

	gotRun, err := d.GetRun(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, gotRun.Status)
	assert.Equal(t, 1, gotRun.TotalRequests)
}

func TestFinalizeRunRollsBackOnMissingRequest(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	present := &models.Request{
		ID: "r1", UserID: "u1", ServiceDate: testDate,
		Status: models.RequestPending, CreatedAt: time.Now(),
	}
	insertRequest(t, d, present)

	run := &models.AllocationRun{
		RunDate: testDate, RunID: "run-1",
		ExecutedAt: time.Now().UTC(), Status: models.RunRunning,
	}
	require.NoError(t, d.UpsertRun(ctx, run))

	present.Status = models.RequestAllocated
	ghost := &models.Request{ID: "r-ghost", Status: models.RequestFailed}
	run.Status = models.RunCompleted

	err := d.FinalizeRun(ctx, run, []*models.Request{present, ghost})
	require.Error(t, err)

	// The whole transaction rolled back: r1 is still PENDING and the run
	// row still RUNNING.
	stored, err := d.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)

	gotRun, err := d.GetRun(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, gotRun.Status)
}

func TestFleet(t *testing.T) {
	d := setupTestDB(t)
	insertFleet(t, d, "B2", 2)
	insertFleet(t, d, "B1", 2)

	buses, seats, err := d.Fleet(context.Background())
	require.NoError(t, err)
	require.Len(t, buses, 2)
	assert.Equal(t, "B1", buses[0].ID)
	assert.Equal(t, "B2", buses[1].ID)
	assert.Len(t, seats, 4)
}

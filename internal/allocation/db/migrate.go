package db

import (
	"context"
	"fmt"
	"log"

	"github.com/uptrace/bun"

	"ms-shuttle/internal/models"
)

// Migrate creates the schema if it does not exist and seeds a small fleet
// when the buses table is empty so a fresh instance can run end to end.
func Migrate(bunDB *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.User)(nil),
		(*models.Bus)(nil),
		(*models.Seat)(nil),
		(*models.Request)(nil),
		(*models.DailyLock)(nil),
		(*models.AllocationRun)(nil),
		(*models.BoardingPass)(nil),
	}
	for _, table := range tables {
		if _, err := bunDB.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("create table failed: %v", err)
		}
	}

	// One request per user per service date.
	if _, err := bunDB.NewCreateIndex().
		Model((*models.Request)(nil)).
		Index("idx_user_date_request").
		Unique().
		IfNotExists().
		Column("user_id", "service_date").
		Exec(ctx); err != nil {
		log.Fatalf("create index failed: %v", err)
	}

	seedFleet(ctx, bunDB)
}

func seedFleet(ctx context.Context, bunDB *bun.DB) {
	count, err := bunDB.NewSelect().Model((*models.Bus)(nil)).Count(ctx)
	if err != nil {
		log.Fatalf("count buses failed: %v", err)
	}
	if count > 0 {
		return
	}

	buses := []models.Bus{
		{ID: "bus-01", Name: "North Loop", Capacity: 12},
		{ID: "bus-02", Name: "South Loop", Capacity: 12},
	}
	if _, err := bunDB.NewInsert().Model(&buses).Exec(ctx); err != nil {
		log.Fatalf("seed buses failed: %v", err)
	}

	var seats []models.Seat
	for _, bus := range buses {
		for row := 1; row <= 3; row++ {
			for pos := 1; pos <= 4; pos++ {
				seats = append(seats, models.Seat{
					ID:       fmt.Sprintf("%s-r%dp%d", bus.ID, row, pos),
					BusID:    bus.ID,
					Row:      row,
					Position: pos,
					Label:    fmt.Sprintf("%d%c", row, 'A'+pos-1),
				})
			}
		}
	}
	if _, err := bunDB.NewInsert().Model(&seats).Exec(ctx); err != nil {
		log.Fatalf("seed seats failed: %v", err)
	}

	log.Println("seeded fleet:", len(buses), "buses,", len(seats), "seats")
}

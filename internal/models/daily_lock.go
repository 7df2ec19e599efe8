package models

import "github.com/uptrace/bun"

// DailyLock freezes all requests for a service date once the nightly run
// starts. The modification path checks this row in the same statement that
// writes the request, so a racing lock can never be missed.
type DailyLock struct {
	bun.BaseModel `bun:"table:daily_locks"`

	ServiceDate string `bun:"service_date,pk" json:"service_date"`
	IsLocked    bool   `bun:"is_locked" json:"is_locked"`
}

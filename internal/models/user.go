package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       string  `bun:"user_id,pk" json:"user_id"`
	FullName string  `bun:"full_name" json:"full_name"`
	HomeLat  float64 `bun:"home_lat" json:"home_lat"`
	HomeLng  float64 `bun:"home_lng" json:"home_lng"`

	// DefaultDays holds weekday abbreviations (MON..SUN) on which the user
	// travels by default. Requests are auto-created for these days before
	// the nightly run.
	DefaultDays []string `bun:"default_days" json:"default_days"`

	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

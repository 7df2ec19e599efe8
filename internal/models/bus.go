package models

import "github.com/uptrace/bun"

type Bus struct {
	bun.BaseModel `bun:"table:buses"`

	ID       string `bun:"bus_id,pk" json:"bus_id"`
	Name     string `bun:"name" json:"name"`
	Capacity int    `bun:"capacity" json:"capacity"`
}

// Seat is one seat in a bus layout. Seats in the same row with consecutive
// positions are adjacent; adjacency never crosses a row or a bus.
type Seat struct {
	bun.BaseModel `bun:"table:seats"`

	ID       string `bun:"seat_id,pk" json:"seat_id"`
	BusID    string `bun:"bus_id" json:"bus_id"`
	Row      int    `bun:"row" json:"row"`
	Position int    `bun:"position" json:"position"`
	Label    string `bun:"label" json:"label"`
}

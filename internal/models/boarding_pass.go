package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BoardingPass is issued for every allocated request after a completed run.
// QRCode holds a PNG whose payload is the encrypted pass data.
type BoardingPass struct {
	bun.BaseModel `bun:"table:boarding_passes"`

	ID          string    `bun:"pass_id,pk" json:"pass_id"`
	RequestID   string    `bun:"request_id" json:"request_id"`
	UserID      string    `bun:"user_id" json:"user_id"`
	ServiceDate string    `bun:"service_date" json:"service_date"`
	BusID       string    `bun:"bus_id" json:"bus_id"`
	SeatID      string    `bun:"seat_id" json:"seat_id"`
	SeatLabel   string    `bun:"seat_label" json:"seat_label"`
	IssuedAt    time.Time `bun:"issued_at" json:"issued_at"`
	QRCode      []byte    `bun:"qr_code" json:"qr_code,omitempty"`
}

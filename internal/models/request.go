package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RequestStatus is the closed set of states a daily request moves through.
// The allocation engine flips a request from PENDING to exactly one of
// ALLOCATED or FAILED and never touches it again.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestAllocated RequestStatus = "ALLOCATED"
	RequestFailed    RequestStatus = "FAILED"
)

type Request struct {
	bun.BaseModel `bun:"table:daily_requests"`

	ID          string  `bun:"request_id,pk" json:"request_id"`
	UserID      string  `bun:"user_id" json:"user_id"`
	ServiceDate string  `bun:"service_date" json:"service_date"`
	RequestLat  float64 `bun:"request_lat" json:"request_lat"`
	RequestLng  float64 `bun:"request_lng" json:"request_lng"`

	// IsDefaultDay reports whether the service date is one of the user's
	// recurring travel days; IsModified whether the user edited the request
	// by hand. Together they decide the priority class.
	IsDefaultDay bool `bun:"is_default_day" json:"is_default_day"`
	IsModified   bool `bun:"is_modified" json:"is_modified"`

	GroupID *string `bun:"group_id" json:"group_id,omitempty"`

	Status          RequestStatus `bun:"status" json:"status"`
	AllocatedBusID  *string       `bun:"allocated_bus_id" json:"allocated_bus_id,omitempty"`
	AllocatedSeatID *string       `bun:"allocated_seat_id" json:"allocated_seat_id,omitempty"`

	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

// SubmitRequestPayload is the body accepted by the request endpoint.
type SubmitRequestPayload struct {
	UserID      string  `json:"user_id"`
	ServiceDate string  `json:"service_date"`
	RequestLat  float64 `json:"request_lat"`
	RequestLng  float64 `json:"request_lng"`
	GroupID     *string `json:"group_id,omitempty"`
}

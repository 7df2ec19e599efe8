package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RunStatus is the lifecycle of one allocation run. A run row is created
// RUNNING and finalized to COMPLETED or FAILED exactly once.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// AllocationRun is the audit record for one service date. The date is the
// primary key: there is at most one run row per date, which is what makes
// the ALREADY_RUN guard race-proof.
type AllocationRun struct {
	bun.BaseModel `bun:"table:allocation_runs"`

	RunDate    string    `bun:"run_date,pk" json:"run_date"`
	RunID      string    `bun:"run_id" json:"run_id"`
	ExecutedAt time.Time `bun:"executed_at" json:"executed_at"`

	Status       RunStatus `bun:"status" json:"status"`
	ErrorMessage string    `bun:"error_message" json:"error_message,omitempty"`

	TotalRequests           int `bun:"total_requests" json:"total_requests"`
	GroupsAllocated         int `bun:"groups_allocated" json:"groups_allocated"`
	HighPriorityAllocated   int `bun:"high_priority_allocated" json:"high_priority_allocated"`
	MediumPriorityAllocated int `bun:"medium_priority_allocated" json:"medium_priority_allocated"`
	LowPriorityAllocated    int `bun:"low_priority_allocated" json:"low_priority_allocated"`
	FailedAllocations       int `bun:"failed_allocations" json:"failed_allocations"`
}

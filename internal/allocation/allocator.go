package allocation

import "ms-shuttle/internal/models"

// Tally aggregates one run's per-unit outcomes. The per-class counters
// count allocated requests (group members included); FailedAllocations
// counts requests, not units.
type Tally struct {
	TotalRequests           int
	GroupsAllocated         int
	HighPriorityAllocated   int
	MediumPriorityAllocated int
	LowPriorityAllocated    int
	FailedAllocations       int
}

func (t *Tally) countAllocated(class Class, n int) {
	switch class {
	case ClassHigh:
		t.HighPriorityAllocated += n
	case ClassMedium:
		t.MediumPriorityAllocated += n
	case ClassLow:
		t.LowPriorityAllocated += n
	}
}

// Allocate performs the single deterministic pass over ordered units.
// Each unit resolves to ALLOCATED or FAILED; request status and bus/seat
// assignment are written onto the request structs in place. The pass is
// strictly sequential: every unit's decision observes all prior occupancy
// changes in the same Capacity.
func Allocate(units []*Unit, cap *Capacity) Tally {
	var tally Tally

	for _, unit := range units {
		tally.TotalRequests += len(unit.Members)

		if unit.IsGroup() {
			bus, seats, ok := cap.takeContiguous(len(unit.Members))
			if !ok {
				// No partial seating: the whole group fails together.
				for _, req := range unit.Members {
					req.Status = models.RequestFailed
				}
				tally.FailedAllocations += len(unit.Members)
				continue
			}
			for i, req := range unit.Members {
				assign(req, bus.ID, seats[i].ID)
			}
			tally.GroupsAllocated++
			tally.countAllocated(unit.Class, len(unit.Members))
			continue
		}

		req := unit.Members[0]
		bus, seat, ok := cap.takeFirstFree()
		if !ok {
			req.Status = models.RequestFailed
			tally.FailedAllocations++
			continue
		}
		assign(req, bus.ID, seat.ID)
		tally.countAllocated(unit.Class, 1)
	}

	return tally
}

func assign(req *models.Request, busID, seatID string) {
	req.Status = models.RequestAllocated
	req.AllocatedBusID = &busID
	req.AllocatedSeatID = &seatID
}

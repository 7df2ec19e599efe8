package allocation

import (
	"sort"

	"ms-shuttle/internal/models"
)

// seatSlot is one seat plus its occupancy during a run.
type seatSlot struct {
	seat     models.Seat
	occupied bool
}

// busCapacity is one bus's layout as rows of position-ordered slots.
type busCapacity struct {
	bus  models.Bus
	rows [][]*seatSlot
}

// Capacity is the engine's working view of the fleet for one date. Buses
// are held in ascending bus ID order and seats in (row, position) order so
// a first-fit scan is deterministic. Occupancy is mutated as units are
// placed; every unit observes all prior units' placements.
type Capacity struct {
	buses []*busCapacity
}

// NewCapacity builds the capacity model from the fleet and the seats
// already taken for the date. Seats marked occupied stay unavailable for
// the whole run.
func NewCapacity(buses []models.Bus, seats []models.Seat, occupied map[string]bool) *Capacity {
	byBus := make(map[string][]models.Seat)
	for _, s := range seats {
		byBus[s.BusID] = append(byBus[s.BusID], s)
	}

	sorted := make([]models.Bus, len(buses))
	copy(sorted, buses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	c := &Capacity{}
	for _, bus := range sorted {
		busSeats := byBus[bus.ID]
		sort.Slice(busSeats, func(i, j int) bool {
			if busSeats[i].Row != busSeats[j].Row {
				return busSeats[i].Row < busSeats[j].Row
			}
			return busSeats[i].Position < busSeats[j].Position
		})

		bc := &busCapacity{bus: bus}
		for _, seat := range busSeats {
			slot := &seatSlot{seat: seat, occupied: occupied[seat.ID]}
			n := len(bc.rows)
			if n == 0 || bc.rows[n-1][0].seat.Row != seat.Row {
				bc.rows = append(bc.rows, []*seatSlot{slot})
			} else {
				bc.rows[n-1] = append(bc.rows[n-1], slot)
			}
		}
		c.buses = append(c.buses, bc)
	}
	return c
}

// Empty reports whether the model holds no seats at all.
func (c *Capacity) Empty() bool {
	for _, bc := range c.buses {
		for _, row := range bc.rows {
			if len(row) > 0 {
				return false
			}
		}
	}
	return true
}

// takeFirstFree occupies and returns the first free seat across the fleet,
// scanning buses by ID and seats by (row, position).
func (c *Capacity) takeFirstFree() (models.Bus, models.Seat, bool) {
	for _, bc := range c.buses {
		for _, row := range bc.rows {
			for _, slot := range row {
				if !slot.occupied {
					slot.occupied = true
					return bc.bus, slot.seat, true
				}
			}
		}
	}
	return models.Bus{}, models.Seat{}, false
}

// takeContiguous occupies and returns the earliest run of k free, mutually
// adjacent seats within one bus. Adjacency means consecutive positions in
// the same row; a run never spans rows or buses. Earliest is the lowest
// (row, position) in the lowest bus ID.
func (c *Capacity) takeContiguous(k int) (models.Bus, []models.Seat, bool) {
	for _, bc := range c.buses {
		for _, row := range bc.rows {
			run := make([]*seatSlot, 0, k)
			for _, slot := range row {
				if slot.occupied || (len(run) > 0 && slot.seat.Position != run[len(run)-1].seat.Position+1) {
					run = run[:0]
				}
				if !slot.occupied {
					run = append(run, slot)
				}
				if len(run) == k {
					seats := make([]models.Seat, k)
					for i, s := range run {
						s.occupied = true
						seats[i] = s.seat
					}
					return bc.bus, seats, true
				}
			}
		}
	}
	return models.Bus{}, nil, false
}

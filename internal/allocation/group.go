package allocation

import (
	"fmt"
	"sort"

	"ms-shuttle/internal/models"
)

// Unit is the atom of allocation: either a single request or a group of
// requests that must be seated together or not at all.
type Unit struct {
	Class   Class
	GroupID string // empty for singletons
	Members []*models.Request
}

// IsGroup reports whether the unit carries a contiguity constraint.
func (u *Unit) IsGroup() bool { return len(u.Members) > 1 }

// anchor is the member that supplies the unit's tie-break key: the earliest
// member by (created_at, request_id).
func (u *Unit) anchor() *models.Request {
	best := u.Members[0]
	for _, m := range u.Members[1:] {
		if beforeRequest(m, best) {
			best = m
		}
	}
	return best
}

// BuildUnits partitions requests into group and singleton units and orders
// them for allocation: priority class first, groups before singletons within
// a class, then the anchor tie-break key. A group affiliation shared by only
// one request on the date degenerates to a singleton.
//
// Returns ErrInvalidGroup if any group's members disagree on priority class.
func BuildUnits(requests []*models.Request) ([]*Unit, error) {
	grouped := make(map[string][]*models.Request)
	var singles []*models.Request

	for _, req := range requests {
		if req.GroupID != nil && *req.GroupID != "" {
			grouped[*req.GroupID] = append(grouped[*req.GroupID], req)
		} else {
			singles = append(singles, req)
		}
	}

	units := make([]*Unit, 0, len(grouped)+len(singles))

	for groupID, members := range grouped {
		if len(members) < 2 {
			singles = append(singles, members...)
			continue
		}
		class := Classify(members[0])
		for _, m := range members[1:] {
			if Classify(m) != class {
				return nil, fmt.Errorf("group %s: %w", groupID, ErrInvalidGroup)
			}
		}
		sort.Slice(members, func(i, j int) bool { return beforeRequest(members[i], members[j]) })
		units = append(units, &Unit{Class: class, GroupID: groupID, Members: members})
	}

	for _, req := range singles {
		units = append(units, &Unit{Class: Classify(req), Members: []*models.Request{req}})
	}

	sort.Slice(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.IsGroup() != b.IsGroup() {
			return a.IsGroup()
		}
		return beforeRequest(a.anchor(), b.anchor())
	})

	return units, nil
}

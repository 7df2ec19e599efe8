package allocation

import (
	"ms-shuttle/internal/models"
)

// Class is a request's priority class. Lower rank allocates first.
type Class int

const (
	ClassHigh Class = iota
	ClassMedium
	ClassLow
)

func (c Class) String() string {
	switch c {
	case ClassHigh:
		return "HIGH"
	case ClassMedium:
		return "MEDIUM"
	case ClassLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Classify derives the priority class from the request flags:
// an untouched default day ranks highest, a modified default day in the
// middle, an extra day added outside the defaults last.
func Classify(req *models.Request) Class {
	switch {
	case req.IsDefaultDay && !req.IsModified:
		return ClassHigh
	case req.IsDefaultDay && req.IsModified:
		return ClassMedium
	default:
		return ClassLow
	}
}

// beforeRequest is the deterministic total order within a class: creation
// time first, then request ID. Repeated runs over identical input must
// produce identical output, so ties cannot be left to map iteration.
func beforeRequest(a, b *models.Request) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

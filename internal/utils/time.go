package utils

import (
	"fmt"
	"time"
)

// ServiceDateLayout is the wire and storage format for service dates.
const ServiceDateLayout = "2006-01-02"

var dayAbbreviations = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// ParseServiceDate validates a YYYY-MM-DD service date string.
func ParseServiceDate(s string) (time.Time, error) {
	t, err := time.Parse(ServiceDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date %q: %w", s, err)
	}
	return t, nil
}

// FormatServiceDate renders a time as a service date string.
func FormatServiceDate(t time.Time) string {
	return t.Format(ServiceDateLayout)
}

// DayAbbreviation returns MON..SUN for the given date, matching the values
// stored in a user's default days.
func DayAbbreviation(t time.Time) string {
	// time.Weekday starts at Sunday
	return dayAbbreviations[(int(t.Weekday())+6)%7]
}

// Package timezone resolves the IANA timezone the alarm clock runs in.
//
// "Today" and the minute-exact alarm checks are all evaluated against this
// location, so a student travelling across timezones can pin the schedule
// to the campus clock.
package timezone

import (
	"fmt"
	"time"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Europe/Berlin").
// An empty identifier means the system local timezone. On an invalid
// identifier it returns the local timezone and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	if tz == "UTC" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

package store

import (
	"time"
)

// DayOfWeek is one of the seven fixed day names used as schedule keys.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// AllDays lists the seven day names in display order.
var AllDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// IsValid reports whether d is one of the seven day names.
func (d DayOfWeek) IsValid() bool {
	for _, day := range AllDays {
		if d == day {
			return true
		}
	}
	return false
}

// DayOfWeekFromTime maps a wall-clock time to its schedule day key.
func DayOfWeekFromTime(t time.Time) DayOfWeek {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ClassEntry is one scheduled occupancy slot.
//
// StartTime and EndTime are stored canonically as 24-hour "HH:MM".
// Duration is derived text ("1h 30m") recomputed whenever the times change.
// IsConsecutive and IsFreePeriod are derived by the normalizer and never
// authoritative on input.
type ClassEntry struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	RoomNumber    string    `json:"roomNumber"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	Duration      string    `json:"duration"`
	DayOfWeek     DayOfWeek `json:"dayOfWeek"`
	AlarmEnabled  bool      `json:"alarmEnabled"`
	IsConsecutive bool      `json:"isConsecutive"`
	IsFreePeriod  bool      `json:"isFreePeriod,omitempty"`
}

// Clone returns a copy of the entry.
func (c *ClassEntry) Clone() *ClassEntry {
	clone := *c
	return &clone
}

// RawClass is one record produced by the OCR extraction flow, before id
// assignment and normalization. Either EndTime or Duration may be present;
// records missing both are skipped on import.
type RawClass struct {
	Subject    string `json:"subject"`
	RoomNumber string `json:"roomNumber"`
	Duration   string `json:"duration,omitempty"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime,omitempty"`
	DayOfWeek  string `json:"dayOfWeek"`
}

// Schedule maps each of the seven day names to its ordered class list.
// All seven keys are always present, possibly with empty lists.
type Schedule map[DayOfWeek][]*ClassEntry

// NewSchedule returns an empty schedule with all seven day keys present.
func NewSchedule() Schedule {
	s := make(Schedule, len(AllDays))
	for _, day := range AllDays {
		s[day] = []*ClassEntry{}
	}
	return s
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	clone := make(Schedule, len(AllDays))
	for _, day := range AllDays {
		entries := make([]*ClassEntry, 0, len(s[day]))
		for _, c := range s[day] {
			entries = append(entries, c.Clone())
		}
		clone[day] = entries
	}
	return clone
}

// FillMissingDays adds empty lists for any absent day keys. Restored legacy
// blobs may lack days; the schedule invariant requires all seven.
func (s Schedule) FillMissingDays() {
	for _, day := range AllDays {
		if _, ok := s[day]; !ok {
			s[day] = []*ClassEntry{}
		}
	}
}

// HasClasses reports whether any day holds at least one entry.
func (s Schedule) HasClasses() bool {
	for _, entries := range s {
		if len(entries) > 0 {
			return true
		}
	}
	return false
}

// FindClass returns the entry with the given id and its day, or nil.
func (s Schedule) FindClass(id string) (*ClassEntry, DayOfWeek) {
	for _, day := range AllDays {
		for _, c := range s[day] {
			if c.ID == id {
				return c, day
			}
		}
	}
	return nil, ""
}

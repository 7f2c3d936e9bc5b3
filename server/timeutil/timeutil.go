// Package timeutil provides clock-string utilities for the CampusClock
// application.
//
// All schedule comparisons and storage use the canonical 24-hour "HH:MM"
// representation; 12-hour strings appear only at the presentation edge and
// in OCR output.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in one calendar day.
const MinutesPerDay = 24 * 60

// To24Hour converts a clock string to canonical zero-padded "HH:MM".
// It accepts either a 12-hour string with meridiem ("9:00 AM") or an
// already-24-hour string ("09:00"). It returns "" when the input cannot
// be parsed; callers treat an empty result as "skip this entry".
func To24Hour(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	fields := strings.Fields(s)
	hh, mm, ok := splitClock(fields[0])
	if !ok {
		return ""
	}

	switch len(fields) {
	case 1:
		// Already 24-hour.
		if hh > 23 || mm > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hh, mm)
	case 2:
		if hh < 1 || hh > 12 || mm > 59 {
			return ""
		}
		switch strings.ToUpper(fields[1]) {
		case "AM":
			if hh == 12 {
				hh = 0
			}
		case "PM":
			if hh != 12 {
				hh += 12
			}
		default:
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hh, mm)
	default:
		return ""
	}
}

// To12Hour converts a canonical "HH:MM" string to 12-hour form ("9:00 AM").
// If the input cannot be parsed it is returned unchanged, so an already
// formatted value passes through.
func To12Hour(s string) string {
	hh, mm, ok := splitClock(strings.TrimSpace(s))
	if !ok || hh > 23 || mm > 59 {
		return s
	}

	meridiem := "AM"
	switch {
	case hh == 0:
		hh = 12
	case hh == 12:
		meridiem = "PM"
	case hh > 12:
		hh -= 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hh, mm, meridiem)
}

// FormatDuration renders a minute count as human-readable text, e.g.
// "1h 30m", "45m", or "0m" for zero. Negative input yields "".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		return ""
	}

	h := minutes / 60
	m := minutes % 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%dm", m)
	}
	if b.Len() == 0 {
		return "0m"
	}
	return b.String()
}

// MinutesOfDay converts a canonical "HH:MM" string to minutes since
// midnight. The second return value reports whether parsing succeeded.
func MinutesOfDay(s string) (int, bool) {
	hh, mm, ok := splitClock(s)
	if !ok || hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// DurationBetween computes the minute span from start to end, both canonical
// "HH:MM". An end earlier than the start is treated as crossing midnight, so
// the result is always in [0, MinutesPerDay). The second return value is
// false when either side fails to parse.
func DurationBetween(start, end string) (int, bool) {
	s, ok := MinutesOfDay(start)
	if !ok {
		return 0, false
	}
	e, ok := MinutesOfDay(end)
	if !ok {
		return 0, false
	}
	d := e - s
	if d < 0 {
		d += MinutesPerDay
	}
	return d, true
}

// AddMinutes returns the canonical "HH:MM" string that is delta minutes
// after the given canonical time, wrapping around midnight.
func AddMinutes(s string, delta int) string {
	m, ok := MinutesOfDay(s)
	if !ok {
		return ""
	}
	m = (m + delta) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func splitClock(s string) (int, int, bool) {
	hhmm := strings.SplitN(s, ":", 2)
	if len(hhmm) != 2 {
		return 0, 0, false
	}
	hh, err := strconv.Atoi(hhmm[0])
	if err != nil || hh < 0 {
		return 0, 0, false
	}
	mm, err := strconv.Atoi(hhmm[1])
	if err != nil || mm < 0 {
		return 0, 0, false
	}
	return hh, mm, true
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classAt(day DayOfWeek, id, subject, start, end string) *ClassEntry {
	return &ClassEntry{
		ID:           id,
		Subject:      subject,
		RoomNumber:   "101",
		StartTime:    start,
		EndTime:      end,
		DayOfWeek:    day,
		AlarmEnabled: true,
	}
}

func TestNormalizeDaySortsByStartTime(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	entries := []*ClassEntry{
		classAt(Monday, "b", "Physics", "11:00", "11:50"),
		classAt(Monday, "a", "Math", "09:00", "09:50"),
	}
	result := n.NormalizeDay(Monday, entries)

	require.Len(t, result, 3) // two classes plus the synthesized gap
	assert.Equal(t, "Math", result[0].Subject)
	assert.Equal(t, "Physics", result[2].Subject)
}

func TestNormalizeDayIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	entries := []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:30", "11:20"),
		classAt(Monday, "c", "Chemistry", "11:20", "12:10"),
	}

	once := n.NormalizeDay(Monday, entries)
	twice := n.NormalizeDay(Monday, once)
	assert.Equal(t, once, twice)
}

func TestConsecutiveGapBoundary(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	// Gap of exactly 10 minutes is consecutive.
	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:00", "10:50"),
	})
	require.Len(t, result, 2)
	assert.True(t, result[0].IsConsecutive)
	assert.False(t, result[1].IsConsecutive, "last entry of a day is never flagged")

	// Gap of 11 minutes is not.
	result = n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:01", "10:50"),
	})
	require.Len(t, result, 2)
	assert.False(t, result[0].IsConsecutive)
}

func TestFreePeriodGapBoundary(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	// A 15-minute gap produces no free period.
	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:05", "10:55"),
	})
	require.Len(t, result, 2)

	// A 16-minute gap produces exactly one free period spanning it.
	result = n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:06", "10:56"),
	})
	require.Len(t, result, 3)
	free := result[1]
	assert.True(t, free.IsFreePeriod)
	assert.Equal(t, "Free Period", free.Subject)
	assert.Equal(t, "09:50", free.StartTime)
	assert.Equal(t, "10:06", free.EndTime)
	assert.Equal(t, "16m", free.Duration)
	assert.False(t, free.AlarmEnabled)
	assert.Equal(t, "free-Monday-09:50", free.ID)
	// Neighbors of a free period are never consecutive.
	assert.False(t, result[0].IsConsecutive)
}

func TestNormalizeDayDiscardsInputFreePeriods(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	stale := &ClassEntry{
		ID:           "free-Monday-07:00",
		Subject:      "Free Period",
		StartTime:    "07:00",
		EndTime:      "09:00",
		DayOfWeek:    Monday,
		IsFreePeriod: true,
	}
	result := n.NormalizeDay(Monday, []*ClassEntry{
		stale,
		classAt(Monday, "a", "Math", "09:00", "09:50"),
	})

	require.Len(t, result, 1)
	assert.Equal(t, "Math", result[0].Subject)
}

func TestNormalizeDayDropsUnparseableStart(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "whenever", "09:50"),
		classAt(Monday, "b", "Physics", "10:00", "10:50"),
	})

	require.Len(t, result, 1)
	assert.Equal(t, "Physics", result[0].Subject)
}

func TestNormalizeDayCanonicalizesTwelveHourTimes(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "9:00 AM", "10:30 AM"),
	})

	require.Len(t, result, 1)
	assert.Equal(t, "09:00", result[0].StartTime)
	assert.Equal(t, "10:30", result[0].EndTime)
	assert.Equal(t, "1h 30m", result[0].Duration)
}

func TestNormalizeDayApproximatesMissingEndTime(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	entry := classAt(Monday, "a", "Math", "09:00", "")
	entry.Duration = "1h 30m"
	result := n.NormalizeDay(Monday, []*ClassEntry{entry})

	require.Len(t, result, 1)
	assert.Equal(t, "10:30", result[0].EndTime)
}

func TestNormalizeDayEmptyAndSingle(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	assert.Empty(t, n.NormalizeDay(Monday, nil))

	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
	})
	require.Len(t, result, 1)
	assert.False(t, result[0].IsConsecutive)
}

func TestNormalizeScheduleFillsAllDays(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	s := Schedule{
		Monday: []*ClassEntry{classAt(Monday, "a", "Math", "09:00", "09:50")},
	}
	s = n.NormalizeSchedule(s)

	for _, day := range AllDays {
		_, ok := s[day]
		assert.True(t, ok, "day %s missing", day)
	}
	assert.Len(t, s[Monday], 1)
}

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"1h 30m", 90},
		{"45m", 45},
		{"2h", 120},
		{"1 hour", 60},
		{"1.5 hours", 90},
		{"90 minutes", 90},
		{"50", 50},
		{"", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseDurationMinutes(tt.input), "parseDurationMinutes(%q)", tt.input)
	}
}

func TestCustomThresholds(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{
		FreePeriodGapMinutes:  30,
		ConsecutiveGapMinutes: 5,
	})

	result := n.NormalizeDay(Monday, []*ClassEntry{
		classAt(Monday, "a", "Math", "09:00", "09:50"),
		classAt(Monday, "b", "Physics", "10:10", "11:00"),
	})

	// 20-minute gap: below the 30-minute free-period threshold, above the
	// 5-minute consecutive threshold.
	require.Len(t, result, 2)
	assert.False(t, result[0].IsConsecutive)
}

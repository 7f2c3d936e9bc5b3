package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/campusclock/campusclock/server/timeutil"
)

// NormalizerConfig holds the gap thresholds for schedule derivation.
type NormalizerConfig struct {
	// FreePeriodGapMinutes is the minimum gap between two classes before a
	// free-period entry is synthesized to span it.
	FreePeriodGapMinutes int
	// ConsecutiveGapMinutes is the maximum gap for two adjacent classes to
	// be flagged consecutive.
	ConsecutiveGapMinutes int
	// DefaultClassMinutes approximates an end time for legacy entries that
	// carry neither a parseable end time nor a parseable duration.
	DefaultClassMinutes int
}

// DefaultNormalizerConfig returns the default thresholds.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		FreePeriodGapMinutes:  15,
		ConsecutiveGapMinutes: 10,
		DefaultClassMinutes:   50,
	}
}

// Normalizer derives the fully sorted, gap-filled, consecutive-flagged form
// of a day's class list. Normalization is idempotent: free periods are
// regenerated from scratch on every pass and never trusted as input.
type Normalizer struct {
	cfg    NormalizerConfig
	logger *slog.Logger
}

// NewNormalizer creates a normalizer, filling zero config fields with defaults.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	def := DefaultNormalizerConfig()
	if cfg.FreePeriodGapMinutes <= 0 {
		cfg.FreePeriodGapMinutes = def.FreePeriodGapMinutes
	}
	if cfg.ConsecutiveGapMinutes <= 0 {
		cfg.ConsecutiveGapMinutes = def.ConsecutiveGapMinutes
	}
	if cfg.DefaultClassMinutes <= 0 {
		cfg.DefaultClassMinutes = def.DefaultClassMinutes
	}
	return &Normalizer{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// NormalizeDay converts a day's raw list into its derived, sorted form.
// Entries whose start time fails to parse are dropped; pre-existing free
// periods are discarded and regenerated from the real entries' gaps.
func (n *Normalizer) NormalizeDay(day DayOfWeek, entries []*ClassEntry) []*ClassEntry {
	canonical := make([]*ClassEntry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.IsFreePeriod {
			continue
		}
		c := n.canonicalize(e)
		if c == nil {
			skipped++
			continue
		}
		canonical = append(canonical, c)
	}
	if skipped > 0 {
		n.logger.Debug("dropped entries with unparseable start times", "day", day, "count", skipped)
	}

	// Zero-padded HH:MM compares correctly as a string.
	sort.SliceStable(canonical, func(i, j int) bool {
		return canonical[i].StartTime < canonical[j].StartTime
	})

	result := make([]*ClassEntry, 0, len(canonical)*2)
	lastEnd := -1
	for _, c := range canonical {
		start, _ := timeutil.MinutesOfDay(c.StartTime)
		if lastEnd >= 0 && start-lastEnd > n.cfg.FreePeriodGapMinutes {
			result = append(result, n.freePeriod(day, lastEnd, start))
		}
		result = append(result, c)

		end, ok := timeutil.MinutesOfDay(c.EndTime)
		if !ok {
			end = start + n.cfg.DefaultClassMinutes
		}
		lastEnd = end
	}

	n.flagConsecutive(result)
	return result
}

// NormalizeSchedule normalizes every day of the schedule in place and
// returns it.
func (n *Normalizer) NormalizeSchedule(s Schedule) Schedule {
	s.FillMissingDays()
	for _, day := range AllDays {
		s[day] = n.NormalizeDay(day, s[day])
	}
	return s
}

// canonicalize returns a copy of the entry with both times in 24-hour form
// and the duration text recomputed, or nil when the start time is
// unparseable. A missing or invalid end time is approximated from the
// stored duration.
func (n *Normalizer) canonicalize(e *ClassEntry) *ClassEntry {
	start := timeutil.To24Hour(e.StartTime)
	if start == "" {
		return nil
	}

	end := timeutil.To24Hour(e.EndTime)
	if end == "" {
		minutes := parseDurationMinutes(e.Duration)
		if minutes <= 0 {
			minutes = n.cfg.DefaultClassMinutes
		}
		end = timeutil.AddMinutes(start, minutes)
	}

	c := e.Clone()
	c.StartTime = start
	c.EndTime = end
	if d, ok := timeutil.DurationBetween(start, end); ok {
		c.Duration = timeutil.FormatDuration(d)
	}
	c.IsConsecutive = false
	return c
}

// freePeriod synthesizes a gap-filler entry spanning [startMin, endMin).
// The id is derived from the day and the gap start so repeated
// normalization produces the same entry instead of a duplicate.
func (n *Normalizer) freePeriod(day DayOfWeek, startMin, endMin int) *ClassEntry {
	start := timeutil.AddMinutes("00:00", startMin)
	end := timeutil.AddMinutes("00:00", endMin)
	return &ClassEntry{
		ID:           fmt.Sprintf("free-%s-%s", day, start),
		Subject:      "Free Period",
		StartTime:    start,
		EndTime:      end,
		Duration:     timeutil.FormatDuration(endMin - startMin),
		DayOfWeek:    day,
		AlarmEnabled: false,
		IsFreePeriod: true,
	}
}

// flagConsecutive sets IsConsecutive on each non-free entry whose immediate
// neighbor is a non-free entry starting within the configured gap after it
// ends. The last entry of a day is never flagged.
func (n *Normalizer) flagConsecutive(entries []*ClassEntry) {
	for i := 0; i < len(entries)-1; i++ {
		cur, next := entries[i], entries[i+1]
		if cur.IsFreePeriod || next.IsFreePeriod {
			cur.IsConsecutive = false
			continue
		}
		end, okEnd := timeutil.MinutesOfDay(cur.EndTime)
		start, okStart := timeutil.MinutesOfDay(next.StartTime)
		if !okEnd || !okStart {
			cur.IsConsecutive = false
			continue
		}
		gap := start - end
		cur.IsConsecutive = gap >= 0 && gap <= n.cfg.ConsecutiveGapMinutes
	}
	if len(entries) > 0 {
		entries[len(entries)-1].IsConsecutive = false
	}
}

// parseDurationMinutes extracts a minute count from duration text such as
// "1h 30m", "45m", "1 hour", or "1.5 hours". It returns 0 when nothing
// parseable is found.
func parseDurationMinutes(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	total := 0
	matched := false
	pending := -1.0 // bare number waiting for a unit word
	for _, field := range strings.Fields(s) {
		switch {
		case strings.HasSuffix(field, "h"):
			if v, err := strconv.ParseFloat(strings.TrimSuffix(field, "h"), 64); err == nil {
				total += int(v * 60)
				matched = true
			}
		case strings.HasSuffix(field, "m"):
			if v, err := strconv.Atoi(strings.TrimSuffix(field, "m")); err == nil {
				total += v
				matched = true
			}
		case strings.HasPrefix(field, "hour"):
			if pending >= 0 {
				total += int(pending * 60)
				matched = true
				pending = -1
			}
		case strings.HasPrefix(field, "min"):
			if pending >= 0 {
				total += int(pending)
				matched = true
				pending = -1
			}
		default:
			if v, err := strconv.ParseFloat(field, 64); err == nil {
				pending = v
			}
		}
	}
	if pending >= 0 {
		// A trailing bare number is taken as minutes.
		total += int(pending)
		matched = true
	}
	if !matched {
		return 0
	}
	return total
}

// Package store owns the in-memory schedule, its normalization rules, and
// best-effort persistence to an external key-value store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lithammer/shortuuid/v4"

	"github.com/campusclock/campusclock/server/timeutil"
)

// ErrClassNotFound is returned when a mutation names an id that does not
// exist in the schedule.
var ErrClassNotFound = errors.New("class not found")

// FieldError describes a single rejected field of a manual edit.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a manual edit before any mutation happens; the
// store is left untouched.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid class entry: " + strings.Join(msgs, "; ")
}

// Store owns the Schedule value. Every mutation funnels through the
// normalizer before it becomes observable, so readers never see a partial
// or unnormalized state. Persistence happens as a side effect after each
// successful in-memory mutation and is best-effort: a failed write is
// logged and the in-memory state stays authoritative for the session.
type Store struct {
	driver     Driver
	normalizer *Normalizer
	logger     *slog.Logger

	mu       sync.RWMutex
	schedule Schedule

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSubID   int
}

// New creates a store backed by the given driver.
func New(driver Driver, normalizer *Normalizer) *Store {
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultNormalizerConfig())
	}
	return &Store{
		driver:      driver,
		normalizer:  normalizer,
		logger:      slog.Default(),
		schedule:    NewSchedule(),
		subscribers: make(map[int]chan struct{}),
	}
}

// Load restores the schedule from the external store. Restored data is
// normalized so legacy records without derived fields, or with 12-hour
// time strings, are upgraded transparently. A missing or corrupt blob
// yields an empty schedule, not an error.
func (s *Store) Load(ctx context.Context) error {
	blob, ok, err := s.driver.Get(ctx, ScheduleKey)
	if err != nil {
		return fmt.Errorf("failed to read schedule: %w", err)
	}

	schedule := NewSchedule()
	if ok {
		var restored Schedule
		if err := json.Unmarshal(blob, &restored); err != nil {
			s.logger.Warn("discarding corrupt schedule blob", "error", err)
		} else {
			// Rebuild on the seven known day keys only, so a corrupted
			// blob cannot smuggle extra keys back into persistence.
			for _, day := range AllDays {
				if entries := restored[day]; len(entries) > 0 {
					schedule[day] = entries
				}
			}
			for key := range restored {
				if !key.IsValid() {
					s.logger.Warn("dropping unknown day key from restored schedule", "day", key)
				}
			}
			schedule = s.normalizer.NormalizeSchedule(schedule)
		}
	}

	s.mu.Lock()
	s.schedule = schedule
	s.mu.Unlock()

	s.notify()
	return nil
}

// ReplaceAll replaces the whole schedule with the given raw records,
// typically OCR extraction output. Records with an invalid day or an
// unparseable start time, or carrying neither an end time nor a duration,
// are skipped. Imported entries get a fresh id and alarms enabled. The
// number of imported entries is returned.
//
// When no record survives the skip rules the existing schedule is left
// untouched: a failed import must never cost the user their data. An
// explicit reset goes through Clear.
func (s *Store) ReplaceAll(ctx context.Context, raws []RawClass) (int, error) {
	schedule := NewSchedule()
	imported := 0
	for _, raw := range raws {
		entry := buildEntry(raw)
		if entry == nil {
			s.logger.Debug("skipping unusable extracted record",
				"subject", raw.Subject, "day", raw.DayOfWeek, "startTime", raw.StartTime)
			continue
		}
		schedule[entry.DayOfWeek] = append(schedule[entry.DayOfWeek], entry)
		imported++
	}
	if imported == 0 {
		s.logger.Warn("discarding import with no usable records", "records", len(raws))
		return 0, nil
	}

	s.mu.Lock()
	s.schedule = s.normalizer.NormalizeSchedule(schedule)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify()
	return imported, nil
}

// UpdateClass replaces the entry matching its id, moving it to a different
// day when DayOfWeek changed, and renormalizes the affected days. Malformed
// input is rejected with a *ValidationError and the store is left untouched.
func (s *Store) UpdateClass(ctx context.Context, entry *ClassEntry) error {
	if err := validateEdit(entry); err != nil {
		return err
	}

	updated := entry.Clone()
	updated.StartTime = timeutil.To24Hour(entry.StartTime)
	updated.EndTime = timeutil.To24Hour(entry.EndTime)
	if d, ok := timeutil.DurationBetween(updated.StartTime, updated.EndTime); ok {
		updated.Duration = timeutil.FormatDuration(d)
	}
	updated.IsFreePeriod = false
	updated.IsConsecutive = false

	s.mu.Lock()
	if existing, _ := s.schedule.FindClass(updated.ID); existing == nil {
		s.mu.Unlock()
		return ErrClassNotFound
	}

	touched := map[DayOfWeek]bool{updated.DayOfWeek: true}
	for _, day := range AllDays {
		filtered := s.schedule[day][:0:0]
		for _, c := range s.schedule[day] {
			if c.ID == updated.ID {
				touched[day] = true
				continue
			}
			filtered = append(filtered, c)
		}
		s.schedule[day] = filtered
	}
	s.schedule[updated.DayOfWeek] = append(s.schedule[updated.DayOfWeek], updated)
	for day := range touched {
		s.schedule[day] = s.normalizer.NormalizeDay(day, s.schedule[day])
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify()
	return nil
}

// DeleteClass removes the entry and renormalizes its day, so any free
// period that depended on the removed entry's boundaries disappears and
// adjacent gaps are recomputed.
func (s *Store) DeleteClass(ctx context.Context, id string, day DayOfWeek) error {
	if !day.IsValid() {
		return &ValidationError{Fields: []FieldError{{Field: "dayOfWeek", Message: "unknown day"}}}
	}

	s.mu.Lock()
	found := false
	filtered := s.schedule[day][:0:0]
	for _, c := range s.schedule[day] {
		if c.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, c)
	}
	if !found {
		s.mu.Unlock()
		return ErrClassNotFound
	}
	s.schedule[day] = s.normalizer.NormalizeDay(day, filtered)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Clear resets the schedule to all-empty. There is nothing to derive, so
// normalization is bypassed.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.schedule = NewSchedule()
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Snapshot returns a deep copy of the whole schedule.
func (s *Store) Snapshot() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule.Clone()
}

// DayClasses returns a copy of one day's ordered entry list.
func (s *Store) DayClasses(day DayOfWeek) []*ClassEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*ClassEntry, 0, len(s.schedule[day]))
	for _, c := range s.schedule[day] {
		entries = append(entries, c.Clone())
	}
	return entries
}

// Subscribe registers an observer for schedule changes. The channel
// carries a signal per mutation (coalesced when the observer lags); the
// returned func cancels the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
	return ch, cancel
}

// Close releases the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close()
}

// persistLocked writes the current schedule to the external store. Failures
// are logged and swallowed: persistence is best-effort, not transactional.
// Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(s.schedule)
	if err != nil {
		s.logger.Warn("failed to serialize schedule", "error", err)
		return
	}
	if err := s.driver.Set(ctx, ScheduleKey, blob); err != nil {
		s.logger.Warn("failed to persist schedule, keeping in-memory state", "error", err)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// buildEntry converts one raw extracted record into a class entry, or nil
// when the record is unusable. An end time wins over a duration when both
// are present.
func buildEntry(raw RawClass) *ClassEntry {
	day := DayOfWeek(strings.TrimSpace(raw.DayOfWeek))
	if !day.IsValid() {
		return nil
	}
	start := timeutil.To24Hour(raw.StartTime)
	if start == "" {
		return nil
	}

	var end string
	if raw.EndTime != "" {
		end = timeutil.To24Hour(raw.EndTime)
	}
	if end == "" {
		minutes := parseDurationMinutes(raw.Duration)
		if minutes <= 0 {
			return nil
		}
		end = timeutil.AddMinutes(start, minutes)
	}

	duration, _ := timeutil.DurationBetween(start, end)
	return &ClassEntry{
		ID:           shortuuid.New(),
		Subject:      strings.TrimSpace(raw.Subject),
		RoomNumber:   strings.TrimSpace(raw.RoomNumber),
		StartTime:    start,
		EndTime:      end,
		Duration:     timeutil.FormatDuration(duration),
		DayOfWeek:    day,
		AlarmEnabled: true,
	}
}

// validateEdit checks a user-entered edit for field-level problems.
func validateEdit(entry *ClassEntry) error {
	var fields []FieldError
	if entry.ID == "" {
		fields = append(fields, FieldError{Field: "id", Message: "required"})
	}
	if strings.TrimSpace(entry.Subject) == "" {
		fields = append(fields, FieldError{Field: "subject", Message: "required"})
	}
	if !entry.DayOfWeek.IsValid() {
		fields = append(fields, FieldError{Field: "dayOfWeek", Message: "unknown day"})
	}
	if timeutil.To24Hour(entry.StartTime) == "" {
		fields = append(fields, FieldError{Field: "startTime", Message: "unparseable time"})
	}
	if timeutil.To24Hour(entry.EndTime) == "" {
		fields = append(fields, FieldError{Field: "endTime", Message: "unparseable time"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

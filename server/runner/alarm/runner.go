// Package alarm runs the minute-cadence evaluation loop that decides when
// to surface pre-class alarms and class-transition reminders.
package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campusclock/campusclock/plugin/ai/reasoning"
	"github.com/campusclock/campusclock/server/timeutil"
	"github.com/campusclock/campusclock/store"
)

// AlarmAdvisor decides whether an upcoming class warrants a pre-class alarm.
type AlarmAdvisor interface {
	Evaluate(ctx context.Context, input reasoning.PreClassInput) (*reasoning.AlarmDecision, error)
}

// TransitionAdvisor decides how to notify about an imminent class-to-class
// transition.
type TransitionAdvisor interface {
	Evaluate(ctx context.Context, input reasoning.TransitionInput) (*reasoning.TransitionDecision, error)
}

// Config holds the runner's cadence and lead times.
type Config struct {
	Interval              time.Duration // evaluation cadence
	AlarmLeadMinutes      int           // minutes before class start for the pre-class check
	TransitionLeadMinutes int           // minutes before class end for the transition check
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		Interval:              time.Minute,
		AlarmLeadMinutes:      10,
		TransitionLeadMinutes: 2,
	}
}

// Runner scans today's schedule once a minute and raises at most one
// notification per cycle. Duplicate suppression is per class per local
// calendar day, held in memory only.
type Runner struct {
	store       *store.Store
	alarms      AlarmAdvisor
	transitions TransitionAdvisor
	presenter   *Presenter
	toaster     *Toaster
	config      Config
	now         func() time.Time

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	logger  *slog.Logger

	trigMu    sync.Mutex
	triggered map[string]string // class id -> date stamp of the raised trigger

	cycleChan chan int // for testing: reports raised count per cycle
}

// NewRunner creates a runner. Zero config fields get defaults.
func NewRunner(st *store.Store, alarms AlarmAdvisor, transitions TransitionAdvisor, config Config) *Runner {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.AlarmLeadMinutes <= 0 {
		config.AlarmLeadMinutes = def.AlarmLeadMinutes
	}
	if config.TransitionLeadMinutes <= 0 {
		config.TransitionLeadMinutes = def.TransitionLeadMinutes
	}

	return &Runner{
		store:       st,
		alarms:      alarms,
		transitions: transitions,
		presenter:   NewPresenter(),
		toaster:     NewToaster(),
		config:      config,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		logger:      slog.Default(),
		triggered:   make(map[string]string),
	}
}

// Presenter returns the runner's notification presenter.
func (r *Runner) Presenter() *Presenter {
	return r.presenter
}

// Toaster returns the runner's toast buffer.
func (r *Runner) Toaster() *Toaster {
	return r.toaster
}

// SetClock replaces the runner's clock, for tests.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// SetLogger sets a custom logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// EnableTestMode enables test mode with a channel reporting the number of
// notifications raised per cycle.
func (r *Runner) EnableTestMode() <-chan int {
	r.cycleChan = make(chan int, 100)
	return r.cycleChan
}

// Start begins the evaluation loop and the schedule-change watcher.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	changes, cancel := r.store.Subscribe()

	r.wg.Add(2)
	go r.run(ctx)
	go r.watchSchedule(ctx, changes, cancel)

	r.logger.Info("alarm runner started",
		"interval", r.config.Interval,
		"alarm_lead_minutes", r.config.AlarmLeadMinutes,
		"transition_lead_minutes", r.config.TransitionLeadMinutes)
	return nil
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("alarm runner stopped")
}

// IsRunning returns whether the runner is running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunOnce evaluates a single cycle (for manual triggering and tests). It
// returns the number of notifications raised, zero or one.
func (r *Runner) RunOnce(ctx context.Context) int {
	return r.evaluateCycle(ctx)
}

// run is the main evaluation loop.
func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Evaluate immediately on start.
	r.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("alarm runner context cancelled")
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	raised := r.evaluateCycle(ctx)

	if r.cycleChan != nil {
		select {
		case r.cycleChan <- raised:
		default:
		}
	}
}

// watchSchedule drops trigger records whose class id no longer exists, so a
// re-imported class with a fresh id is eligible again and stale ids do not
// accumulate.
func (r *Runner) watchSchedule(ctx context.Context, changes <-chan struct{}, cancel func()) {
	defer r.wg.Done()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-changes:
			r.pruneTriggers()
		}
	}
}

func (r *Runner) pruneTriggers() {
	schedule := r.store.Snapshot()

	r.trigMu.Lock()
	defer r.trigMu.Unlock()
	for id := range r.triggered {
		if c, _ := schedule.FindClass(id); c == nil {
			delete(r.triggered, id)
		}
	}
}

// evaluateCycle runs one scan over today's classes. At most one notification
// is raised; scanning stops as soon as one is.
func (r *Runner) evaluateCycle(ctx context.Context) int {
	// At most one active notification at a time: new detections wait for
	// the current one to be dismissed.
	if r.presenter.IsShowing() {
		return 0
	}

	now := r.now()
	today := now.Format("2006-01-02")
	currentTime := now.Format("15:04")

	r.purgeStaleTriggers(today)

	day := store.DayOfWeekFromTime(now)
	entries := r.store.DayClasses(day)

	for i, entry := range entries {
		if entry.IsFreePeriod || !entry.AlarmEnabled || r.isTriggered(entry.ID, today) {
			continue
		}

		raised, err := r.checkPreClass(ctx, entry, currentTime, today, now)
		if err != nil {
			r.reportFailure(entry, err, now)
			continue
		}
		if raised {
			return 1
		}

		raised, err = r.checkTransition(ctx, entry, nextClass(entries, i), currentTime, today, now)
		if err != nil {
			r.reportFailure(entry, err, now)
			continue
		}
		if raised {
			return 1
		}
	}
	return 0
}

// checkPreClass raises an alarm notification when the current minute is
// exactly the configured lead before the class starts and the reasoning
// flow agrees.
func (r *Runner) checkPreClass(ctx context.Context, entry *store.ClassEntry, currentTime, today string, now time.Time) (bool, error) {
	alarmTime := timeutil.AddMinutes(entry.StartTime, -r.config.AlarmLeadMinutes)
	if alarmTime == "" || alarmTime != currentTime {
		return false, nil
	}
	// A class starting within the lead of midnight would wrap the alarm to
	// the previous evening; skip rather than fire hours after the class.
	if alarmTime > entry.StartTime {
		return false, nil
	}

	decision, err := r.alarms.Evaluate(ctx, reasoning.PreClassInput{
		ClassName:   entry.Subject,
		RoomNumber:  entry.RoomNumber,
		StartTime:   entry.StartTime,
		CurrentTime: currentTime,
	})
	if err != nil {
		return false, fmt.Errorf("pre-class reasoning failed: %w", err)
	}
	if !decision.ShouldSetAlarm || decision.AlarmTime == "" {
		return false, nil
	}

	if _, err := r.presenter.Raise(reasoning.NotificationAlarm, entry, decision.Reason, now); err != nil {
		return false, nil
	}
	r.recordTrigger(entry.ID, today)
	r.logger.Info("pre-class alarm raised",
		"class", entry.Subject,
		"start_time", entry.StartTime,
		"alarm_time", decision.AlarmTime)
	return true, nil
}

// checkTransition handles the back-to-back case: the current minute is
// exactly the configured lead before a consecutive class ends. A soft
// decision becomes a toast with no trigger record; a blocking decision is
// raised for the next class with the trigger recorded against the current
// entry.
func (r *Runner) checkTransition(ctx context.Context, entry, next *store.ClassEntry, currentTime, today string, now time.Time) (bool, error) {
	if !entry.IsConsecutive || next == nil {
		return false, nil
	}
	reminderTime := timeutil.AddMinutes(entry.EndTime, -r.config.TransitionLeadMinutes)
	if reminderTime == "" || reminderTime != currentTime {
		return false, nil
	}

	decision, err := r.transitions.Evaluate(ctx, reasoning.TransitionInput{
		CurrentClassName: entry.Subject,
		CurrentRoom:      entry.RoomNumber,
		CurrentEndTime:   entry.EndTime,
		NextClassName:    next.Subject,
		NextRoom:         next.RoomNumber,
		NextStartTime:    next.StartTime,
		IsConsecutive:    true,
		CurrentTime:      currentTime,
	})
	if err != nil {
		return false, fmt.Errorf("transition reasoning failed: %w", err)
	}

	switch decision.NotificationType {
	case reasoning.NotificationSoft:
		r.toaster.Push(ToastInfo, decision.Message, now)
		r.logger.Debug("transition toast", "current", entry.Subject, "next", next.Subject)
		return false, nil
	case reasoning.NotificationAlarm, reasoning.NotificationFullScreen:
		if _, err := r.presenter.Raise(decision.NotificationType, next, decision.Message, now); err != nil {
			return false, nil
		}
		r.recordTrigger(entry.ID, today)
		r.logger.Info("transition reminder raised",
			"type", decision.NotificationType,
			"current", entry.Subject,
			"next", next.Subject)
		return true, nil
	default:
		return false, nil
	}
}

// reportFailure surfaces a reasoning failure as a non-blocking alert;
// scanning continues with the next entry.
func (r *Runner) reportFailure(entry *store.ClassEntry, err error, now time.Time) {
	r.logger.Error("alarm evaluation failed for class",
		"class", entry.Subject, "error", err)
	r.toaster.Push(ToastAlert,
		fmt.Sprintf("Could not evaluate reminders for %s: %v", entry.Subject, err), now)
}

func (r *Runner) purgeStaleTriggers(today string) {
	r.trigMu.Lock()
	defer r.trigMu.Unlock()
	for id, date := range r.triggered {
		if date != today {
			delete(r.triggered, id)
		}
	}
}

func (r *Runner) isTriggered(id, today string) bool {
	r.trigMu.Lock()
	defer r.trigMu.Unlock()
	return r.triggered[id] == today
}

func (r *Runner) recordTrigger(id, today string) {
	r.trigMu.Lock()
	defer r.trigMu.Unlock()
	r.triggered[id] = today
}

// nextClass returns the next non-free entry after index i, or nil.
func nextClass(entries []*store.ClassEntry, i int) *store.ClassEntry {
	for _, c := range entries[i+1:] {
		if !c.IsFreePeriod {
			return c
		}
	}
	return nil
}

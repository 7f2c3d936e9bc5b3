package alarm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusclock/campusclock/plugin/ai/reasoning"
	"github.com/campusclock/campusclock/store"
)

// 2026-01-05 is a Monday.
var mondayMorning = time.Date(2026, 1, 5, 8, 50, 0, 0, time.Local)

type fakeAlarmAdvisor struct {
	decisions []*reasoning.AlarmDecision
	errs      []error
	calls     int
}

func (f *fakeAlarmAdvisor) Evaluate(ctx context.Context, input reasoning.PreClassInput) (*reasoning.AlarmDecision, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.decisions) {
		return f.decisions[i], nil
	}
	return &reasoning.AlarmDecision{}, nil
}

type fakeTransitionAdvisor struct {
	decision *reasoning.TransitionDecision
	err      error
	calls    int
	lastIn   reasoning.TransitionInput
}

func (f *fakeTransitionAdvisor) Evaluate(ctx context.Context, input reasoning.TransitionInput) (*reasoning.TransitionDecision, error) {
	f.calls++
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	if f.decision != nil {
		return f.decision, nil
	}
	return &reasoning.TransitionDecision{NotificationType: reasoning.NotificationNone}, nil
}

func positiveAlarm(reason string) *reasoning.AlarmDecision {
	return &reasoning.AlarmDecision{ShouldSetAlarm: true, AlarmTime: "08:50", Reason: reason}
}

func seedStore(t *testing.T, raws ...store.RawClass) *store.Store {
	t.Helper()
	s := store.New(store.NewMemoryDriver(), nil)
	if len(raws) > 0 {
		_, err := s.ReplaceAll(context.Background(), raws)
		require.NoError(t, err)
	}
	return s
}

func atClock(base time.Time, clock string) func() time.Time {
	t, _ := time.ParseInLocation("2006-01-02 15:04", base.Format("2006-01-02")+" "+clock, time.Local)
	return func() time.Time { return t }
}

func TestRunner_StartStop(t *testing.T) {
	s := seedStore(t)
	r := NewRunner(s, &fakeAlarmAdvisor{}, &fakeTransitionAdvisor{}, Config{Interval: 100 * time.Millisecond})

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	assert.True(t, r.IsRunning())

	// Double start is a no-op.
	require.NoError(t, r.Start(ctx))

	r.Stop()
	assert.False(t, r.IsRunning())

	// Double stop is a no-op.
	r.Stop()
}

func TestRunner_PreClassAlarmRaisedOnce(t *testing.T) {
	s := seedStore(t, store.RawClass{
		Subject: "Physics", RoomNumber: "Lab 2", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday",
	})
	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{positiveAlarm("10 minute walk")}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(func() time.Time { return mondayMorning })

	ctx := context.Background()
	assert.Equal(t, 1, r.RunOnce(ctx))

	active := r.Presenter().Active()
	require.NotNil(t, active)
	assert.Equal(t, reasoning.NotificationAlarm, active.Type)
	assert.Equal(t, "Physics", active.Class.Subject)
	assert.Equal(t, "10 minute walk", active.Message)

	// While showing, the next cycle does not scan at all.
	assert.Equal(t, 0, r.RunOnce(ctx))
	assert.Equal(t, 1, alarms.calls)

	// After dismissal the trigger record still suppresses a re-raise for
	// the same class and day.
	r.Presenter().Dismiss()
	assert.Equal(t, 0, r.RunOnce(ctx))
	assert.Equal(t, 1, alarms.calls)
}

func TestRunner_PreClassCheckIsMinuteExact(t *testing.T) {
	s := seedStore(t, store.RawClass{
		Subject: "Physics", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday",
	})
	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{positiveAlarm("now")}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})

	for _, clock := range []string{"08:49", "08:51", "09:00"} {
		r.SetClock(atClock(mondayMorning, clock))
		assert.Equal(t, 0, r.RunOnce(context.Background()), "clock %s", clock)
	}
	assert.Zero(t, alarms.calls)
}

func TestRunner_PreClassSkipsMidnightWraparound(t *testing.T) {
	// A class at 00:05 would put its alarm minute at 23:55 the previous
	// evening; evaluating at 23:55 that day must not fire.
	s := seedStore(t, store.RawClass{
		Subject: "Astronomy", StartTime: "00:05", Duration: "50m", DayOfWeek: "Monday",
	})
	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{positiveAlarm("now")}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(atClock(mondayMorning, "23:55"))

	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Zero(t, alarms.calls)
	assert.Nil(t, r.Presenter().Active())
}

func TestRunner_NegativeDecisionRaisesNothing(t *testing.T) {
	s := seedStore(t, store.RawClass{
		Subject: "Physics", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday",
	})
	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{
		{ShouldSetAlarm: false, Reason: "already nearby"},
	}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(func() time.Time { return mondayMorning })

	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Nil(t, r.Presenter().Active())
	assert.Equal(t, 1, alarms.calls)
}

func TestRunner_SkipsDisabledAndFreeEntries(t *testing.T) {
	s := seedStore(t,
		store.RawClass{Subject: "Math", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday"},
	)
	// Disable the imported class's alarm.
	monday := s.DayClasses(store.Monday)
	require.Len(t, monday, 1)
	entry := monday[0].Clone()
	entry.AlarmEnabled = false
	require.NoError(t, s.UpdateClass(context.Background(), entry))

	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{positiveAlarm("go")}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(func() time.Time { return mondayMorning })

	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Zero(t, alarms.calls)
}

func TestRunner_TransitionSoftNotification(t *testing.T) {
	s := seedStore(t,
		store.RawClass{Subject: "Math", RoomNumber: "101", StartTime: "09:00", EndTime: "09:50", DayOfWeek: "Monday"},
		store.RawClass{Subject: "Physics", RoomNumber: "Lab 2", StartTime: "10:00", EndTime: "10:50", DayOfWeek: "Monday"},
	)
	transitions := &fakeTransitionAdvisor{decision: &reasoning.TransitionDecision{
		NotificationType: reasoning.NotificationSoft,
		Message:          "Physics in Lab 2 next",
	}}
	r := NewRunner(s, &fakeAlarmAdvisor{}, transitions, Config{})
	r.SetClock(atClock(mondayMorning, "09:48"))

	assert.Equal(t, 0, r.RunOnce(context.Background()))

	// Soft reminders become toasts; nothing blocks, nothing is recorded.
	assert.Nil(t, r.Presenter().Active())
	toasts := r.Toaster().Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastInfo, toasts[0].Level)
	assert.Equal(t, "Physics in Lab 2 next", toasts[0].Message)

	assert.Equal(t, "Math", transitions.lastIn.CurrentClassName)
	assert.Equal(t, "Physics", transitions.lastIn.NextClassName)
	assert.True(t, transitions.lastIn.IsConsecutive)

	// Still matching the minute, a soft reminder may fire again.
	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Equal(t, 2, transitions.calls)
}

func TestRunner_TransitionFullScreenReminder(t *testing.T) {
	s := seedStore(t,
		store.RawClass{Subject: "Math", RoomNumber: "101", StartTime: "09:00", EndTime: "09:50", DayOfWeek: "Monday"},
		store.RawClass{Subject: "Physics", RoomNumber: "Lab 2", StartTime: "10:00", EndTime: "10:50", DayOfWeek: "Monday"},
	)
	transitions := &fakeTransitionAdvisor{decision: &reasoning.TransitionDecision{
		NotificationType: reasoning.NotificationFullScreen,
		Message:          "Head to Lab 2!",
	}}
	r := NewRunner(s, &fakeAlarmAdvisor{}, transitions, Config{})
	r.SetClock(atClock(mondayMorning, "09:48"))

	ctx := context.Background()
	assert.Equal(t, 1, r.RunOnce(ctx))

	// The blocking reminder points at the next class.
	active := r.Presenter().Active()
	require.NotNil(t, active)
	assert.Equal(t, reasoning.NotificationFullScreen, active.Type)
	assert.Equal(t, "Physics", active.Class.Subject)

	// The trigger is recorded against the current class, so the same
	// minute does not re-raise after dismissal.
	r.Presenter().Dismiss()
	assert.Equal(t, 0, r.RunOnce(ctx))
	assert.Equal(t, 1, transitions.calls)
}

func TestRunner_AdvisorFailureToastsAndContinues(t *testing.T) {
	// Two classes starting the same minute: the first evaluation fails,
	// the second succeeds.
	s := seedStore(t,
		store.RawClass{Subject: "Math", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday"},
		store.RawClass{Subject: "Physics", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday"},
	)
	alarms := &fakeAlarmAdvisor{
		errs:      []error{fmt.Errorf("rate limited"), nil},
		decisions: []*reasoning.AlarmDecision{nil, positiveAlarm("go now")},
	}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(func() time.Time { return mondayMorning })

	assert.Equal(t, 1, r.RunOnce(context.Background()))
	assert.Equal(t, 2, alarms.calls)

	require.NotNil(t, r.Presenter().Active())
	toasts := r.Toaster().Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastAlert, toasts[0].Level)
	assert.Contains(t, toasts[0].Message, "rate limited")
}

func TestRunner_TriggerRecordsPurgedAtDayBoundary(t *testing.T) {
	s := seedStore(t, store.RawClass{
		Subject: "Physics", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday",
	})
	alarms := &fakeAlarmAdvisor{decisions: []*reasoning.AlarmDecision{
		positiveAlarm("week one"), positiveAlarm("week two"),
	}}
	r := NewRunner(s, alarms, &fakeTransitionAdvisor{}, Config{})
	r.SetClock(func() time.Time { return mondayMorning })

	ctx := context.Background()
	assert.Equal(t, 1, r.RunOnce(ctx))
	r.Presenter().Dismiss()

	// One week later, same weekday and minute: the stale record is purged
	// and the class is eligible again.
	r.SetClock(func() time.Time { return mondayMorning.AddDate(0, 0, 7) })
	assert.Equal(t, 1, r.RunOnce(ctx))
	assert.Equal(t, 2, alarms.calls)
}

func TestRunner_DroppedClassFreesTriggerRecord(t *testing.T) {
	s := seedStore(t, store.RawClass{
		Subject: "Physics", StartTime: "09:00", Duration: "50m", DayOfWeek: "Monday",
	})
	id := s.DayClasses(store.Monday)[0].ID

	r := NewRunner(s, &fakeAlarmAdvisor{}, &fakeTransitionAdvisor{}, Config{})
	r.recordTrigger(id, mondayMorning.Format("2006-01-02"))

	require.NoError(t, s.DeleteClass(context.Background(), id, store.Monday))
	r.pruneTriggers()

	assert.False(t, r.isTriggered(id, mondayMorning.Format("2006-01-02")))
}

func TestRunner_CyclesOnTicker(t *testing.T) {
	s := seedStore(t)
	r := NewRunner(s, &fakeAlarmAdvisor{}, &fakeTransitionAdvisor{}, Config{Interval: 50 * time.Millisecond})
	cycles := r.EnableTestMode()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Start(ctx))

	select {
	case raised := <-cycles:
		assert.Zero(t, raised)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for an evaluation cycle")
	}

	r.Stop()
}

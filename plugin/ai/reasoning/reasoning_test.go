package reasoning

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusclock/campusclock/plugin/ai"
)

type fakeChatter struct {
	response string
	err      error
	prompt   string
}

func (f *fakeChatter) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	if len(messages) > 0 {
		f.prompt = messages[len(messages)-1].Content
	}
	return f.response, f.err
}

func (f *fakeChatter) ChatVision(ctx context.Context, prompt, imageDataURI string) (string, error) {
	return f.response, f.err
}

func TestAlarmAdvisorParsesDecision(t *testing.T) {
	chatter := &fakeChatter{
		response: "```json\n" + `{"shouldSetAlarm": true, "alarmTime": "08:50", "reason": "10 minute walk to the lab"}` + "\n```",
	}

	decision, err := NewAlarmAdvisor(chatter).Evaluate(context.Background(), PreClassInput{
		ClassName:   "Physics",
		RoomNumber:  "Lab 2",
		StartTime:   "09:00",
		CurrentTime: "08:50",
	})
	require.NoError(t, err)
	assert.True(t, decision.ShouldSetAlarm)
	assert.Equal(t, "08:50", decision.AlarmTime)
	assert.Equal(t, "10 minute walk to the lab", decision.Reason)

	// The prompt carries the class facts and a location default.
	assert.Contains(t, chatter.prompt, "Physics")
	assert.Contains(t, chatter.prompt, "Lab 2")
	assert.Contains(t, chatter.prompt, "on campus")
}

func TestAlarmAdvisorNegativeDecision(t *testing.T) {
	chatter := &fakeChatter{
		response: `{"shouldSetAlarm": false, "alarmTime": "", "reason": "already nearby"}`,
	}

	decision, err := NewAlarmAdvisor(chatter).Evaluate(context.Background(), PreClassInput{
		ClassName:   "Math",
		StartTime:   "09:00",
		CurrentTime: "08:50",
	})
	require.NoError(t, err)
	assert.False(t, decision.ShouldSetAlarm)
}

func TestAlarmAdvisorPropagatesError(t *testing.T) {
	chatter := &fakeChatter{err: fmt.Errorf("timeout")}

	_, err := NewAlarmAdvisor(chatter).Evaluate(context.Background(), PreClassInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestAlarmAdvisorRejectsGarbage(t *testing.T) {
	chatter := &fakeChatter{response: "I think an alarm is a good idea!"}

	_, err := NewAlarmAdvisor(chatter).Evaluate(context.Background(), PreClassInput{})
	require.Error(t, err)
}

func TestTransitionAdvisorParsesDecision(t *testing.T) {
	chatter := &fakeChatter{
		response: `{"notificationType": "full_screen_reminder", "message": "Head to Lab 2 for Physics!"}`,
	}

	decision, err := NewTransitionAdvisor(chatter).Evaluate(context.Background(), TransitionInput{
		CurrentClassName: "Math",
		CurrentRoom:      "101",
		CurrentEndTime:   "09:50",
		NextClassName:    "Physics",
		NextRoom:         "Lab 2",
		NextStartTime:    "10:00",
		IsConsecutive:    true,
		CurrentTime:      "09:48",
	})
	require.NoError(t, err)
	assert.Equal(t, NotificationFullScreen, decision.NotificationType)
	assert.Equal(t, "Head to Lab 2 for Physics!", decision.Message)
	assert.Contains(t, chatter.prompt, "Back-to-back: true")
}

func TestTransitionAdvisorDegradesUnknownType(t *testing.T) {
	chatter := &fakeChatter{
		response: `{"notificationType": "carrier_pigeon", "message": "Physics next"}`,
	}

	decision, err := NewTransitionAdvisor(chatter).Evaluate(context.Background(), TransitionInput{})
	require.NoError(t, err)
	assert.Equal(t, NotificationSoft, decision.NotificationType)
}

func TestNotificationTypeIsValid(t *testing.T) {
	assert.True(t, NotificationAlarm.IsValid())
	assert.True(t, NotificationSoft.IsValid())
	assert.True(t, NotificationFullScreen.IsValid())
	assert.True(t, NotificationNone.IsValid())
	assert.False(t, NotificationType("loud").IsValid())
}

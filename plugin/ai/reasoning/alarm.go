// Package reasoning wraps the two LLM decision flows the alarm runner
// consults: whether to raise a pre-class alarm, and how to notify about a
// back-to-back class transition.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/campusclock/campusclock/plugin/ai"
)

const alarmPrompt = `You are a smart alarm assistant for a student.

A class is coming up. Decide whether the student needs an alarm now, and if
so when it should fire, taking into account the time remaining until the
class starts and how far the student likely is from the room.

Class: %s
Room: %s
Starts at: %s
Current time: %s
Current location: %s

Rules:
- If the class starts soon and the student plausibly needs to move, set an
  alarm early enough to arrive on time.
- If there is ample time or the student is already in place, no alarm.
- alarmTime must be a 24-hour HH:MM string when shouldSetAlarm is true.

Respond with ONLY a JSON object, no other text:
{"shouldSetAlarm": true, "alarmTime": "HH:MM", "reason": "..."}`

// PreClassInput describes the upcoming class being evaluated.
type PreClassInput struct {
	ClassName       string
	RoomNumber      string
	StartTime       string
	CurrentTime     string
	CurrentLocation string
}

// AlarmDecision is the flow's verdict on the pre-class alarm.
type AlarmDecision struct {
	ShouldSetAlarm bool   `json:"shouldSetAlarm"`
	AlarmTime      string `json:"alarmTime"`
	Reason         string `json:"reason"`
}

// AlarmAdvisor decides whether an upcoming class warrants an alarm.
type AlarmAdvisor struct {
	chatter ai.Chatter
	logger  *slog.Logger
}

// NewAlarmAdvisor creates an advisor on top of the given completion provider.
func NewAlarmAdvisor(chatter ai.Chatter) *AlarmAdvisor {
	return &AlarmAdvisor{
		chatter: chatter,
		logger:  slog.Default(),
	}
}

// Evaluate asks the model for a pre-class alarm decision.
func (a *AlarmAdvisor) Evaluate(ctx context.Context, input PreClassInput) (*AlarmDecision, error) {
	if input.CurrentLocation == "" {
		input.CurrentLocation = "on campus"
	}
	prompt := fmt.Sprintf(alarmPrompt,
		input.ClassName, input.RoomNumber, input.StartTime, input.CurrentTime, input.CurrentLocation)

	response, err := a.chatter.Chat(ctx, []ai.Message{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("alarm reasoning request failed: %w", err)
	}

	var decision AlarmDecision
	if err := json.Unmarshal([]byte(ai.ExtractJSONBlock(response)), &decision); err != nil {
		a.logger.Warn("unparseable alarm decision", "error", err, "class", input.ClassName)
		return nil, fmt.Errorf("failed to parse alarm decision: %w", err)
	}

	a.logger.Debug("alarm decision",
		"class", input.ClassName,
		"should_set_alarm", decision.ShouldSetAlarm,
		"alarm_time", decision.AlarmTime)
	return &decision, nil
}

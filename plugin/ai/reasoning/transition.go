package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/campusclock/campusclock/plugin/ai"
)

// NotificationType enumerates how a class transition should be surfaced.
type NotificationType string

const (
	NotificationAlarm      NotificationType = "alarm"
	NotificationSoft       NotificationType = "soft_notification"
	NotificationFullScreen NotificationType = "full_screen_reminder"
	NotificationNone       NotificationType = "none"
)

// IsValid reports whether the value is one of the known types.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationAlarm, NotificationSoft, NotificationFullScreen, NotificationNone:
		return true
	}
	return false
}

const transitionPrompt = `You are a smart assistant helping a student move between classes.

The current class is about to end and another class follows. Decide how
urgently to notify the student, based on how tight the transition is and
whether the rooms differ.

Current class: %s (room %s), ends at %s
Next class: %s (room %s), starts at %s
Back-to-back: %t
Current time: %s

Pick exactly one notificationType:
- "alarm": a hard alarm, for transitions the student must not miss
- "full_screen_reminder": an unmissable reminder for tight room changes
- "soft_notification": a gentle heads-up when there is comfortable slack
- "none": no notification needed

Write message as one short, friendly sentence naming the next class and room.

Respond with ONLY a JSON object, no other text:
{"notificationType": "...", "message": "..."}`

// TransitionInput describes an imminent class-to-class transition.
type TransitionInput struct {
	CurrentClassName string
	CurrentRoom      string
	CurrentEndTime   string
	NextClassName    string
	NextRoom         string
	NextStartTime    string
	IsConsecutive    bool
	CurrentTime      string
}

// TransitionDecision is the flow's verdict on the transition notification.
type TransitionDecision struct {
	NotificationType NotificationType `json:"notificationType"`
	Message          string           `json:"message"`
}

// TransitionAdvisor decides how to notify about an imminent transition.
type TransitionAdvisor struct {
	chatter ai.Chatter
	logger  *slog.Logger
}

// NewTransitionAdvisor creates an advisor on top of the given completion
// provider.
func NewTransitionAdvisor(chatter ai.Chatter) *TransitionAdvisor {
	return &TransitionAdvisor{
		chatter: chatter,
		logger:  slog.Default(),
	}
}

// Evaluate asks the model for a transition notification decision. An
// unknown notificationType in the response degrades to a soft notification
// rather than an error, so one odd completion never mutes the runner.
func (a *TransitionAdvisor) Evaluate(ctx context.Context, input TransitionInput) (*TransitionDecision, error) {
	prompt := fmt.Sprintf(transitionPrompt,
		input.CurrentClassName, input.CurrentRoom, input.CurrentEndTime,
		input.NextClassName, input.NextRoom, input.NextStartTime,
		input.IsConsecutive, input.CurrentTime)

	response, err := a.chatter.Chat(ctx, []ai.Message{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("transition reasoning request failed: %w", err)
	}

	var decision TransitionDecision
	if err := json.Unmarshal([]byte(ai.ExtractJSONBlock(response)), &decision); err != nil {
		a.logger.Warn("unparseable transition decision", "error", err, "class", input.CurrentClassName)
		return nil, fmt.Errorf("failed to parse transition decision: %w", err)
	}
	if !decision.NotificationType.IsValid() {
		a.logger.Warn("unknown notification type, degrading to soft",
			"type", decision.NotificationType)
		decision.NotificationType = NotificationSoft
	}

	a.logger.Debug("transition decision",
		"current", input.CurrentClassName,
		"next", input.NextClassName,
		"type", decision.NotificationType)
	return &decision, nil
}

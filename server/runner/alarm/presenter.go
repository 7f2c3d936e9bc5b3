package alarm

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusclock/campusclock/plugin/ai/reasoning"
	"github.com/campusclock/campusclock/store"
)

// ErrAlreadyShowing is returned by Raise while a notification is on display.
var ErrAlreadyShowing = errors.New("a notification is already showing")

// Notification is one raised alarm or reminder awaiting dismissal.
type Notification struct {
	ID       string                     `json:"id"`
	Type     reasoning.NotificationType `json:"type"`
	Class    *store.ClassEntry          `json:"class"`
	Message  string                     `json:"message"`
	RaisedAt time.Time                  `json:"raisedAt"`
}

// Presenter holds the single active notification. It is a two-state machine,
// idle or showing: raising while showing fails, and only an explicit dismiss
// returns it to idle. There is no timeout dismissal.
type Presenter struct {
	mu     sync.Mutex
	active *Notification
}

// NewPresenter creates an idle presenter.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Raise puts a notification on display. It fails with ErrAlreadyShowing when
// one is active; new detections wait for the current one to be dismissed.
func (p *Presenter) Raise(kind reasoning.NotificationType, class *store.ClassEntry, message string, at time.Time) (*Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		return nil, ErrAlreadyShowing
	}
	p.active = &Notification{
		ID:       uuid.NewString(),
		Type:     kind,
		Class:    class,
		Message:  message,
		RaisedAt: at,
	}
	return p.active, nil
}

// Dismiss clears the active notification. Dismissing while idle is a no-op
// and reports false.
func (p *Presenter) Dismiss() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return false
	}
	p.active = nil
	return true
}

// Active returns the notification on display, or nil when idle.
func (p *Presenter) Active() *Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// IsShowing reports whether a notification is on display.
func (p *Presenter) IsShowing() bool {
	return p.Active() != nil
}

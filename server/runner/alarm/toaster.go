package alarm

import (
	"sync"
	"time"
)

// ToastLevel distinguishes informational toasts from failure alerts.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastAlert ToastLevel = "alert"
)

// Toast is a non-blocking message surfaced alongside the notification flow:
// soft transition reminders and reasoning-failure alerts.
type Toast struct {
	Level    ToastLevel `json:"level"`
	Message  string     `json:"message"`
	RaisedAt time.Time  `json:"raisedAt"`
}

const defaultToastCapacity = 32

// Toaster buffers toasts until a client drains them. When the buffer is
// full the oldest toast is dropped; missing a stale soft reminder is
// preferable to blocking the evaluation cycle.
type Toaster struct {
	mu       sync.Mutex
	toasts   []Toast
	capacity int
}

// NewToaster creates a toaster with the default capacity.
func NewToaster() *Toaster {
	return &Toaster{capacity: defaultToastCapacity}
}

// Push appends a toast, evicting the oldest when full.
func (t *Toaster) Push(level ToastLevel, message string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.toasts) >= t.capacity {
		t.toasts = t.toasts[1:]
	}
	t.toasts = append(t.toasts, Toast{Level: level, Message: message, RaisedAt: at})
}

// Drain returns all buffered toasts and empties the buffer.
func (t *Toaster) Drain() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	drained := t.toasts
	t.toasts = nil
	return drained
}

// Len reports the number of buffered toasts.
func (t *Toaster) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.toasts)
}

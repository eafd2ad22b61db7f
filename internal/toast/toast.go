// Package toast is a time-bounded queue of ephemeral user-visible
// messages. It is a pure scheduling utility: no network calls, no shared
// state outside its own sequence. Stores never push toasts themselves;
// callers above the store layer decide what to surface.
package toast

import (
	"sync"
	"time"
)

// Level classifies a toast for display purposes.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Default lifetimes per level. A zero duration means the toast never
// auto-removes.
const (
	DefaultDuration      = 4 * time.Second
	DefaultErrorDuration = 6 * time.Second
)

// Toast is one queued message.
type Toast struct {
	ID      int64
	Message string
	Level   Level
}

// Queue is an append-only toast sequence with monotonically increasing
// ids and per-toast expiry timers.
type Queue struct {
	mu     sync.Mutex
	nextID int64
	toasts []Toast
	timers map[int64]*time.Timer
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{timers: make(map[int64]*time.Timer)}
}

// Push appends a message with an explicit lifetime and returns its id.
// A zero duration disables auto-removal.
func (q *Queue) Push(message string, level Level, duration time.Duration) int64 {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.toasts = append(q.toasts, Toast{ID: id, Message: message, Level: level})
	if duration > 0 {
		q.timers[id] = time.AfterFunc(duration, func() { q.Remove(id) })
	}
	q.mu.Unlock()
	return id
}

// Show appends a message with the default lifetime for its level.
func (q *Queue) Show(message string, level Level) int64 {
	duration := DefaultDuration
	if level == Error {
		duration = DefaultErrorDuration
	}
	return q.Push(message, level, duration)
}

// ShowInfo appends an info toast with the default lifetime.
func (q *Queue) ShowInfo(message string) int64 { return q.Show(message, Info) }

// ShowSuccess appends a success toast with the default lifetime.
func (q *Queue) ShowSuccess(message string) int64 { return q.Show(message, Success) }

// ShowWarning appends a warning toast with the default lifetime.
func (q *Queue) ShowWarning(message string) int64 { return q.Show(message, Warning) }

// ShowError appends an error toast with the longer error lifetime.
func (q *Queue) ShowError(message string) int64 { return q.Show(message, Error) }

// Remove deletes a toast by id. Idempotent: removing an absent id is a
// no-op.
func (q *Queue) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, toast := range q.toasts {
		if toast.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return
		}
	}
}

// Toasts returns a snapshot of the pending messages in insertion order.
func (q *Queue) Toasts() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast(nil), q.toasts...)
}

// Clear drops every pending toast and stops their timers.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.toasts = nil
}

package audit

import (
	"context"
	"sync"
	"time"
)

// InMemoryLog is the default sink: append-only, bounded reads for tests and
// single-node deployments.
type InMemoryLog struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

func (l *InMemoryLog) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (l *InMemoryLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event{}, l.events...)
}

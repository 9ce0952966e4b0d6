package engine

import (
	"sync"
	"time"

	"github.com/techpathlabs/milestonedesk/model"
)

// ExecutionLog is an append-only audit trail of user-visible operations,
// kept newest first for the lifetime of a session.
type ExecutionLog struct {
	mu      sync.RWMutex
	entries []model.Execution
	now     func() time.Time
	newID   func() string
}

// NewExecutionLog returns an empty log using the given clock and id source.
func NewExecutionLog(now func() time.Time, newID func() string) *ExecutionLog {
	return &ExecutionLog{now: now, newID: newID}
}

// Add records label and returns the new entry.
func (l *ExecutionLog) Add(label string) model.Execution {
	entry := model.Execution{
		ID:         l.newID(),
		ExecutedAt: l.now(),
		Label:      label,
	}

	l.mu.Lock()
	l.entries = append([]model.Execution{entry}, l.entries...)
	l.mu.Unlock()
	return entry
}

// Entries returns a copy of the log, newest first.
func (l *ExecutionLog) Entries() []model.Execution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Execution{}, l.entries...)
}

// Len returns the number of entries.
func (l *ExecutionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

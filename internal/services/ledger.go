package services

import (
	"fmt"
	"sync"
)

// FailureLedger accumulates one human-readable entry per unrecoverable
// per-item failure across a sync run. Append-only, ordered, never fails;
// guarded so the HTTP surface can read counts while a run is in flight.
type FailureLedger struct {
	mu      sync.Mutex
	entries []string
}

// NewFailureLedger creates an empty ledger
func NewFailureLedger() *FailureLedger {
	return &FailureLedger{}
}

// Add appends one formatted failure description.
func (l *FailureLedger) Add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the ordered failure descriptions.
func (l *FailureLedger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded failures.
func (l *FailureLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

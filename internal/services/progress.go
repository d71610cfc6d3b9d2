package services

import "sync"

// Phase weights of a sync run. The reconciliation share is apportioned
// across batches by item count.
const (
	ProgressIndexWeight     = 10
	ProgressReconcileWeight = 80
	ProgressDelistedWeight  = 10
)

// Progress is a monotonically non-decreasing counter in [0,100]. An optional
// observer receives each new total, which is how the caller-facing surface
// sees the run advance.
type Progress struct {
	mu       sync.Mutex
	total    int
	observer func(total int)
}

// NewProgress creates a progress counter; observer may be nil.
func NewProgress(observer func(total int)) *Progress {
	return &Progress{observer: observer}
}

// Advance adds amount to the running total, clamps to 100 and returns the
// new total. Negative amounts are ignored so the counter never decreases.
func (p *Progress) Advance(amount int) int {
	p.mu.Lock()
	if amount > 0 {
		p.total += amount
		if p.total > 100 {
			p.total = 100
		}
	}
	total := p.total
	observer := p.observer
	p.mu.Unlock()

	if observer != nil {
		observer(total)
	}
	return total
}

// Total returns the current total.
func (p *Progress) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

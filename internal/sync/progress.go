package sync

import "sync"

// Progress is a snapshot of a full resync's advancement. Published
// incrementally; only the full batched resync reports fine-grained
// progress.
type Progress struct {
	Batch        int
	TotalBatches int
	Processed    int
	Total        int
	Fraction     float64
}

// ProgressFunc receives progress snapshots. Callbacks run on the syncing
// goroutine and must return quickly.
type ProgressFunc func(Progress)

// progressPublisher fans progress out to registered callbacks and keeps
// the latest snapshot readable from any goroutine. Decoupled from any UI
// framework on purpose.
type progressPublisher struct {
	mu      sync.RWMutex
	current Progress
	subs    []ProgressFunc
}

func (p *progressPublisher) subscribe(fn ProgressFunc) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

func (p *progressPublisher) publish(progress Progress) {
	p.mu.Lock()
	p.current = progress
	subs := make([]ProgressFunc, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(progress)
	}
}

func (p *progressPublisher) snapshot() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

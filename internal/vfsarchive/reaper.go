package vfsarchive

import (
	"sync"
	"time"
)

// reaper is a single background sweeper that closes idle FileSource
// descriptors once their grace period has elapsed, instead of each
// FileSource running its own timer. A FileSource re-acquired before its
// deadline cancels the pending close.
type reaper struct {
	mu      sync.Mutex
	pending map[*FileSource]time.Time
	ticker  *time.Ticker
	started bool
}

var globalReaper = &reaper{pending: make(map[*FileSource]time.Time)}

const reaperSweepInterval = time.Second

func (r *reaper) schedule(f *FileSource, grace time.Duration) {
	if grace <= 0 {
		grace = reaperSweepInterval
	}
	r.mu.Lock()
	r.pending[f] = time.Now().Add(grace)
	if !r.started {
		r.started = true
		r.ticker = time.NewTicker(reaperSweepInterval)
		go r.loop()
	}
	r.mu.Unlock()
}

func (r *reaper) cancel(f *FileSource) {
	r.mu.Lock()
	delete(r.pending, f)
	r.mu.Unlock()
}

func (r *reaper) loop() {
	for range r.ticker.C {
		now := time.Now()
		var due []*FileSource
		r.mu.Lock()
		for f, deadline := range r.pending {
			if !now.Before(deadline) {
				due = append(due, f)
				delete(r.pending, f)
			}
		}
		r.mu.Unlock()
		for _, f := range due {
			f.closeIfIdle()
		}
	}
}

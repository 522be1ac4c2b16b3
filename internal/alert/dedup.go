package alert

import (
	"sync"
	"time"
)

// DefaultSuppressionWindow is how long an identical message from the same
// source is suppressed after delivery.
const DefaultSuppressionWindow = 5 * time.Minute

// Deduper suppresses repeated alerts within a sliding window keyed by
// (source, message). Entries are pruned lazily on each call.
type Deduper struct {
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
	seen   map[string]time.Time
}

// DeduperOption customizes Deduper behavior.
type DeduperOption func(*Deduper)

// WithClock overrides the time source (primarily for testing).
func WithClock(now func() time.Time) DeduperOption {
	return func(d *Deduper) {
		d.now = now
	}
}

// NewDeduper constructs a Deduper with the given window. A non-positive
// window falls back to DefaultSuppressionWindow.
func NewDeduper(window time.Duration, opts ...DeduperOption) *Deduper {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	d := &Deduper{
		window: window,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Allow reports whether the alert should be delivered. The first occurrence
// within the window is allowed and recorded; repeats are suppressed until
// the window elapses.
func (d *Deduper) Allow(a Alert) bool {
	key := a.Source + "\x00" + a.Message

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.prune(now)

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	return true
}

func (d *Deduper) prune(now time.Time) {
	for key, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, key)
		}
	}
}

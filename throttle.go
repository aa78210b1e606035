package antrian

import (
	"sync"
	"time"
)

// Throttler spaces out dispatches per endpoint class. A class is the longest
// interval-table prefix matching the request path; a path matching no prefix
// is a class of its own.
type Throttler struct {
	mu              sync.Mutex
	last            map[string]time.Time
	intervals       *prefixTable
	defaultInterval time.Duration
	now             func() time.Time
}

// NewThrottler creates a throttler for the given interval table.
func NewThrottler(table []PrefixDuration, defaultInterval time.Duration) *Throttler {
	return &Throttler{
		last:            make(map[string]time.Time),
		intervals:       newPrefixTable(table),
		defaultInterval: defaultInterval,
		now:             time.Now,
	}
}

// Class returns the endpoint class of req.
func (t *Throttler) Class(req *Request) string {
	path := urlPath(req.URL)
	if e, ok := t.intervals.longest(path); ok {
		return e.Prefix
	}
	return path
}

// Interval returns the minimum spacing for req: the largest interval among
// all matching prefixes, else the default.
func (t *Throttler) Interval(req *Request) time.Duration {
	if d, ok := t.intervals.largest(urlPath(req.URL)); ok {
		return d
	}
	return t.defaultInterval
}

// Delay returns how long req must still wait. When the wait is zero the
// dispatch is permitted and the class is stamped with the current time;
// otherwise nothing is recorded.
func (t *Throttler) Delay(req *Request) time.Duration {
	class := t.Class(req)
	interval := t.Interval(req)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[class]; ok {
		if elapsed := now.Sub(last); elapsed < interval {
			return interval - elapsed
		}
	}
	t.last[class] = now
	return 0
}

// Reset drops every throttle record.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[string]time.Time)
}

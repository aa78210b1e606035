package antrian

import (
	"testing"
	"time"
)

func newTestThrottler(clock *fakeClock, table []PrefixDuration, def time.Duration) *Throttler {
	th := NewThrottler(table, def)
	th.now = clock.Now
	return th
}

func TestThrottlerSpacesDispatches(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottler(clock, []PrefixDuration{{Prefix: "/api/search", Duration: 2 * time.Second}}, 0)
	req := getRequest("/api/search?q=go")

	if d := th.Delay(req); d != 0 {
		t.Fatalf("first dispatch delay = %v, want 0", d)
	}

	clock.Advance(500 * time.Millisecond)
	if d := th.Delay(req); d != 1500*time.Millisecond {
		t.Fatalf("delay after 500ms = %v, want 1.5s", d)
	}

	// A non-zero answer must not move the stamp.
	clock.Advance(500 * time.Millisecond)
	if d := th.Delay(req); d != time.Second {
		t.Fatalf("delay after 1s = %v, want 1s", d)
	}

	clock.Advance(time.Second)
	if d := th.Delay(req); d != 0 {
		t.Fatalf("delay at interval = %v, want 0", d)
	}
	if d := th.Delay(req); d != 2*time.Second {
		t.Fatalf("delay right after a permitted dispatch = %v, want 2s", d)
	}
}

func TestThrottlerClassesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottler(clock, []PrefixDuration{
		{Prefix: "/api/search", Duration: time.Second},
		{Prefix: "/api/orders", Duration: time.Second},
	}, 0)

	th.Delay(getRequest("/api/search"))
	if d := th.Delay(getRequest("/api/orders")); d != 0 {
		t.Errorf("orders should not wait on search, delay = %v", d)
	}
	if d := th.Delay(getRequest("/api/search/suggest")); d != time.Second {
		t.Errorf("search/suggest shares the /api/search class, delay = %v", d)
	}
}

func TestThrottlerLargestMatchingIntervalGoverns(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottler(clock, []PrefixDuration{
		{Prefix: "/api/", Duration: 3 * time.Second},
		{Prefix: "/api/search", Duration: time.Second},
	}, 0)
	req := getRequest("/api/search")

	if got := th.Class(req); got != "/api/search" {
		t.Errorf("class = %q, want /api/search", got)
	}
	if got := th.Interval(req); got != 3*time.Second {
		t.Errorf("interval = %v, want 3s", got)
	}

	th.Delay(req)
	clock.Advance(time.Second)
	if d := th.Delay(req); d != 2*time.Second {
		t.Errorf("delay = %v, want 2s", d)
	}
}

func TestThrottlerUnmatchedURLUsesDefault(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottler(clock, nil, 0)
	req := getRequest("/health")

	if got := th.Class(req); got != "/health" {
		t.Errorf("class = %q, want /health", got)
	}
	for i := 0; i < 3; i++ {
		if d := th.Delay(req); d != 0 {
			t.Fatalf("zero default interval should never delay, got %v", d)
		}
	}

	th = newTestThrottler(clock, nil, 250*time.Millisecond)
	th.Delay(getRequest("/a"))
	if d := th.Delay(getRequest("/b")); d != 0 {
		t.Errorf("unmatched paths are separate classes, delay = %v", d)
	}
	if d := th.Delay(getRequest("/a")); d != 250*time.Millisecond {
		t.Errorf("default interval delay = %v, want 250ms", d)
	}
}

func TestThrottlerReset(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottler(clock, []PrefixDuration{{Prefix: "/api", Duration: time.Minute}}, 0)
	req := getRequest("/api/x")

	th.Delay(req)
	th.Reset()
	if d := th.Delay(req); d != 0 {
		t.Errorf("delay after Reset = %v, want 0", d)
	}
}

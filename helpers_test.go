package antrian

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sleepRecorder replaces real sleeping: it records each delay and advances
// the clock instead.
type sleepRecorder struct {
	mu     sync.Mutex
	clock  *fakeClock
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// scriptedTransport answers with the given statuses in order, repeating the
// last one, and counts calls.
type scriptedTransport struct {
	mu       sync.Mutex
	statuses []int
	calls    int
	requests []*Request
}

func (t *scriptedTransport) Send(_ context.Context, req *Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	status := http.StatusOK
	if len(t.statuses) > 0 {
		i := t.calls
		if i >= len(t.statuses) {
			i = len(t.statuses) - 1
		}
		status = t.statuses[i]
	}
	t.calls++
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"ok":true}`),
	}, nil
}

func (t *scriptedTransport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// recordingNotifier keeps every notice.
type recordingNotifier struct {
	mu      sync.Mutex
	kinds   []NoticeKind
	message []string
}

func (n *recordingNotifier) Notify(kind NoticeKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.message = append(n.message, message)
}

func (n *recordingNotifier) Kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NoticeKind(nil), n.kinds...)
}

// recordingLogger counts messages per level.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *recordingLogger) Warns() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func getRequest(url string) *Request {
	return &Request{Method: http.MethodGet, URL: url}
}

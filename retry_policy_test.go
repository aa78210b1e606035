package antrian

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRetryPolicyClassify(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, time.Minute, nil)

	tests := []struct {
		name string
		resp *Response
		err  error
		want ErrorKind
	}{
		{"network error", nil, errors.New("dial tcp: connection refused"), KindNetwork},
		{"no response", nil, nil, KindNetwork},
		{"ok", &Response{StatusCode: http.StatusOK}, nil, 0},
		{"redirect", &Response{StatusCode: http.StatusNotModified}, nil, 0},
		{"too many requests", &Response{StatusCode: http.StatusTooManyRequests}, nil, KindRateLimited},
		{"internal error", &Response{StatusCode: http.StatusInternalServerError}, nil, KindServer},
		{"unavailable", &Response{StatusCode: http.StatusServiceUnavailable}, nil, KindServer},
		{"not found", &Response{StatusCode: http.StatusNotFound}, nil, KindClient},
		{"unauthorized", &Response{StatusCode: http.StatusUnauthorized}, nil, KindClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Classify(tt.resp, tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryPolicyRetryable(t *testing.T) {
	p := NewRetryPolicy(3, time.Second, time.Minute, nil)

	for retries := 0; retries < 3; retries++ {
		for _, kind := range []ErrorKind{KindNetwork, KindRateLimited, KindServer} {
			if !p.Retryable(kind, retries) {
				t.Errorf("%v after %d retries should be retryable", kind, retries)
			}
		}
	}
	if p.Retryable(KindServer, 3) {
		t.Error("no retry once the limit is reached")
	}
	if p.Retryable(KindClient, 0) {
		t.Error("client failures are terminal")
	}
	if p.Retryable(KindCancelled, 0) {
		t.Error("cancelled calls are never retried")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := NewRetryPolicy(10, time.Second, 5*time.Second, nil)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.NextDelay(i + 1); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestRetryPolicyRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewRetryPolicy(3, time.Second, 30*time.Second, nil)
	p.now = func() time.Time { return now }

	limited := &Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"10"}},
	}

	if got := p.Delay(1, limited); got != time.Second {
		t.Errorf("Retry-After must be ignored unless enabled, got %v", got)
	}

	p.respectRetryAfter = true
	if got := p.Delay(1, limited); got != 10*time.Second {
		t.Errorf("Delay = %v, want 10s", got)
	}

	huge := &Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"Retry-After": []string{"3600"}},
	}
	if got := p.Delay(1, huge); got != 30*time.Second {
		t.Errorf("Retry-After should be capped at max backoff, got %v", got)
	}

	small := &Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"1"}},
	}
	if got := p.Delay(3, small); got != 4*time.Second {
		t.Errorf("a smaller Retry-After keeps the computed delay, got %v", got)
	}

	dated := &Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{now.Add(20 * time.Second).Format(http.TimeFormat)}},
	}
	if got := p.Delay(1, dated); got != 20*time.Second {
		t.Errorf("HTTP-date Retry-After = %v, want 20s", got)
	}

	server := &Response{
		StatusCode: http.StatusInternalServerError,
		Header:     http.Header{"Retry-After": []string{"10"}},
	}
	if got := p.Delay(1, server); got != time.Second {
		t.Errorf("Retry-After only applies to 429/503, got %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Now()
	tests := map[string]time.Duration{
		"":        0,
		"0":       0,
		"-5":      0,
		"garbage": 0,
		" 7 ":     7 * time.Second,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in, now); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

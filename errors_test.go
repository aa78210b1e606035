package antrian

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{
		Kind:        KindServer,
		Message:     "request failed",
		Cause:       errors.New("upstream"),
		RequestID:   "req-1",
		Method:      "GET",
		URL:         "/api/items",
		StatusCode:  503,
		Attempt:     2,
		MaxAttempts: 4,
	}

	msg := err.Error()
	for _, want := range []string{"[req-1]", "GET /api/items", "ServerFailure", "status 503", "upstream", "attempt 2/4"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestRequestErrorNil(t *testing.T) {
	var err *RequestError
	if err.Error() != "<nil>" {
		t.Errorf("nil Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("nil Unwrap() should be nil")
	}
	if err.Is(ErrCancelled) {
		t.Error("nil error matches nothing")
	}
}

func TestRequestErrorIs(t *testing.T) {
	cancelled := &RequestError{Kind: KindCancelled, Cause: ErrSuperseded}
	if !errors.Is(cancelled, ErrCancelled) {
		t.Error("cancelled error should match ErrCancelled")
	}
	if !errors.Is(cancelled, ErrSuperseded) {
		t.Error("cause should be reachable through Unwrap")
	}
	if errors.Is(cancelled, ErrRetriesExhausted) {
		t.Error("cancelled error should not match ErrRetriesExhausted")
	}

	exhausted := &RequestError{Kind: KindRetriesExhausted}
	if !errors.Is(exhausted, ErrRetriesExhausted) {
		t.Error("exhausted error should match ErrRetriesExhausted")
	}
	if !errors.Is(exhausted, &RequestError{Kind: KindRetriesExhausted}) {
		t.Error("errors of the same kind should match")
	}
	if errors.Is(exhausted, &RequestError{Kind: KindClient}) {
		t.Error("errors of different kinds should not match")
	}
}

func TestKindHelpers(t *testing.T) {
	wrapped := fmt.Errorf("load catalog: %w", &RequestError{Kind: KindCancelled})
	if KindOf(wrapped) != KindCancelled {
		t.Errorf("KindOf(wrapped) = %v", KindOf(wrapped))
	}
	if !IsCancelled(wrapped) {
		t.Error("IsCancelled should see through wrapping")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("plain errors have no kind")
	}

	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindNetwork, true},
		{KindRateLimited, true},
		{KindServer, true},
		{KindRetriesExhausted, true},
		{KindClient, false},
		{KindCancelled, false},
		{KindValidation, false},
	}
	for _, tt := range tests {
		if got := IsTransient(&RequestError{Kind: tt.kind}); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
	if IsTransient(nil) || IsTransient(errors.New("x")) {
		t.Error("non-request errors are not transient")
	}
}

func TestErrorKindString(t *testing.T) {
	kinds := map[ErrorKind]string{
		KindCancelled:        "Cancelled",
		KindNetwork:          "NetworkFailure",
		KindRateLimited:      "RateLimited",
		KindServer:           "ServerFailure",
		KindClient:           "ClientFailure",
		KindRetriesExhausted: "RetriesExhausted",
		KindValidation:       "Validation",
		ErrorKind(99):        "Unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(k), k.String(), want)
		}
	}
}

func TestDebugInfo(t *testing.T) {
	err := &RequestError{
		Kind:       KindClient,
		Message:    "request rejected",
		RequestID:  "abc",
		Method:     "POST",
		URL:        "/api/orders",
		StatusCode: 422,
		Timestamp:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:   150 * time.Millisecond,
	}
	info := err.DebugInfo()
	for _, want := range []string{"Error Kind: ClientFailure", "Request ID: abc", "Status Code: 422", "Duration: 150ms", "2024-01-01T00:00:00Z"} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo missing %q:\n%s", want, info)
		}
	}
}

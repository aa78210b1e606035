package antrian

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ambiyansyah-risyal/antrian/internal/supersede"
)

// ErrorKind classifies why a call did not succeed.
type ErrorKind int

const (
	// KindCancelled: superseded by a newer identical call, reset, or abandoned
	// by the caller. Never reported to the user.
	KindCancelled ErrorKind = iota + 1
	// KindNetwork: no response was obtained. Retryable.
	KindNetwork
	// KindRateLimited: status 429. Retryable.
	KindRateLimited
	// KindServer: status 5xx. Retryable.
	KindServer
	// KindClient: any other 4xx. Terminal.
	KindClient
	// KindRetriesExhausted: a retryable failure that ran out of attempts.
	KindRetriesExhausted
	// KindValidation: invalid configuration or request.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindCancelled:
		return "Cancelled"
	case KindNetwork:
		return "NetworkFailure"
	case KindRateLimited:
		return "RateLimited"
	case KindServer:
		return "ServerFailure"
	case KindClient:
		return "ClientFailure"
	case KindRetriesExhausted:
		return "RetriesExhausted"
	case KindValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Retryable reports whether failures of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindRateLimited || k == KindServer
}

// Sentinel errors for common failure scenarios
var (
	// ErrCancelled matches every KindCancelled error via errors.Is.
	ErrCancelled = errors.New("antrian: call cancelled")

	// ErrSuperseded is the cause of a call replaced by a newer identical call.
	ErrSuperseded = supersede.ErrSuperseded

	// ErrReset is the cause of a call cancelled by Orchestrator.Reset.
	ErrReset = errors.New("antrian: orchestrator reset")

	// ErrRetriesExhausted matches every KindRetriesExhausted error via errors.Is.
	ErrRetriesExhausted = errors.New("antrian: retries exhausted")

	// ErrNoTransport is returned when no transport is configured.
	ErrNoTransport = errors.New("antrian: no transport configured")

	// ErrRateLimitDeadline is the cause of a call whose deadline expires
	// before the global rate limiter would admit it. It resolves as
	// KindCancelled.
	ErrRateLimitDeadline = fmt.Errorf("antrian: rate limit wait exceeds the context deadline: %w", context.DeadlineExceeded)

	// ErrTransportPanic wraps a panic raised by Transport.Send.
	ErrTransportPanic = errors.New("antrian: transport panicked")
)

// RequestError is returned by Issue for every call that did not succeed.
// Response holds the last server answer unchanged, if there was one.
type RequestError struct {
	Kind        ErrorKind
	Message     string
	Cause       error
	RequestID   string
	Method      string
	URL         string
	StatusCode  int
	Attempt     int
	MaxAttempts int
	Response    *Response
	Timestamp   time.Time
	Duration    time.Duration
}

// Error implements error interface.
func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Method != "" || e.URL != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Method, e.URL, msg)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxAttempts)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *RequestError of the same kind, ErrCancelled for
// cancelled calls and ErrRetriesExhausted for exhausted ones.
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrCancelled:
		return e.Kind == KindCancelled
	case ErrRetriesExhausted:
		return e.Kind == KindRetriesExhausted
	}
	if targetErr, ok := target.(*RequestError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// KindOf returns the ErrorKind carried by err, or 0 if err is not a
// *RequestError.
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return 0
}

// IsCancelled reports whether err is a cancelled call. Applications should not
// surface these to the user.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}

// IsTransient determines if an error represents a failure that might succeed
// if the call is issued again later: network failures, 429, 5xx and exhausted
// retries of those.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}

	switch reqErr.Kind {
	case KindNetwork, KindRateLimited, KindServer, KindRetriesExhausted:
		return true
	default:
		return false
	}
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *RequestError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Kind: %s\n", e.Kind)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxAttempts)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

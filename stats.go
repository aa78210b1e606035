package antrian

import (
	"context"
	"errors"
	"sync"
	"time"
)

// OutcomeResult is how a call resolved.
type OutcomeResult string

const (
	OutcomeSucceeded OutcomeResult = "succeeded"
	OutcomeCached    OutcomeResult = "cached"
	OutcomeFailed    OutcomeResult = "failed"
	OutcomeCancelled OutcomeResult = "cancelled"
)

// Outcome describes one resolved call.
type Outcome struct {
	RequestID  string
	Method     string
	URL        string
	Class      string
	Result     OutcomeResult
	Kind       ErrorKind
	StatusCode int
	Attempts   int
	Duration   time.Duration
	At         time.Time
}

// OutcomeRecorder persists call outcomes. Recording is best effort: errors
// are logged by the orchestrator and never fail the call.
type OutcomeRecorder interface {
	Record(ctx context.Context, o Outcome) error
}

// OutcomeCounters tallies outcomes by result.
type OutcomeCounters struct {
	Succeeded int64
	Cached    int64
	Failed    int64
	Cancelled int64
}

func (c *OutcomeCounters) add(r OutcomeResult) {
	switch r {
	case OutcomeSucceeded:
		c.Succeeded++
	case OutcomeCached:
		c.Cached++
	case OutcomeFailed:
		c.Failed++
	case OutcomeCancelled:
		c.Cancelled++
	}
}

// MemoryOutcomeRecorder keeps counters in memory. It has no expiry and is
// meant for tests and short-lived processes.
type MemoryOutcomeRecorder struct {
	mu      sync.Mutex
	total   OutcomeCounters
	byClass map[string]OutcomeCounters
	byKind  map[ErrorKind]int64
}

// NewMemoryOutcomeRecorder creates an empty recorder.
func NewMemoryOutcomeRecorder() *MemoryOutcomeRecorder {
	return &MemoryOutcomeRecorder{
		byClass: make(map[string]OutcomeCounters),
		byKind:  make(map[ErrorKind]int64),
	}
}

// Record implements OutcomeRecorder.
func (r *MemoryOutcomeRecorder) Record(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.add(o.Result)
	c := r.byClass[o.Class]
	c.add(o.Result)
	r.byClass[o.Class] = c
	if o.Result == OutcomeFailed {
		r.byKind[o.Kind]++
	}
	return nil
}

// Total returns the overall counters.
func (r *MemoryOutcomeRecorder) Total() OutcomeCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// ByClass returns a copy of the per-class counters.
func (r *MemoryOutcomeRecorder) ByClass() map[string]OutcomeCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OutcomeCounters, len(r.byClass))
	for k, v := range r.byClass {
		out[k] = v
	}
	return out
}

// Failures returns a copy of the failure counts by kind.
func (r *MemoryOutcomeRecorder) Failures() map[ErrorKind]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[ErrorKind]int64, len(r.byKind))
	for k, v := range r.byKind {
		out[k] = v
	}
	return out
}

// MultiOutcomeRecorder records every outcome with each of its recorders.
type MultiOutcomeRecorder []OutcomeRecorder

// Record implements OutcomeRecorder. Every recorder is tried; the errors
// are joined.
func (m MultiOutcomeRecorder) Record(ctx context.Context, o Outcome) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

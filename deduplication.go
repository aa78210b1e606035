package antrian

import (
	"context"

	"github.com/ambiyansyah-risyal/antrian/internal/supersede"
)

// DeduplicationCondition decides whether a request takes part in
// supersession. Exempt requests run independently of identical calls.
type DeduplicationCondition func(req *Request) bool

// DefaultDeduplicationCondition makes every request eligible.
func DefaultDeduplicationCondition(*Request) bool {
	return true
}

// Token is the pending handle of one registered call.
type Token struct {
	id     Identity
	call   *supersede.Call
	cancel context.CancelCauseFunc
}

// Identity returns the identity the token was registered under.
func (t *Token) Identity() Identity {
	return t.id
}

// Deduplicator keeps at most one pending call per Identity. Registering a
// call cancels the previous one for the same identity with ErrSuperseded.
type Deduplicator struct {
	group     *supersede.Group[Identity]
	condition DeduplicationCondition
	metrics   *MetricsCollector
}

// NewDeduplicator creates a deduplicator; a nil condition means every request
// is eligible.
func NewDeduplicator(condition DeduplicationCondition) *Deduplicator {
	if condition == nil {
		condition = DefaultDeduplicationCondition
	}
	return &Deduplicator{
		group:     supersede.New[Identity](),
		condition: condition,
	}
}

// Register installs a fresh token for req and returns a context derived from
// ctx that is cancelled once the call is superseded or reset.
func (d *Deduplicator) Register(ctx context.Context, req *Request) (context.Context, *Token) {
	id := req.Identity()
	if !d.condition(req) {
		callCtx, cancel := context.WithCancelCause(ctx)
		return callCtx, &Token{id: id, cancel: cancel}
	}

	callCtx, call, superseded := d.group.Begin(ctx, id)
	if superseded {
		d.metrics.RecordSupersession(id.Method)
	}
	return callCtx, &Token{id: id, call: call}
}

// Release ends the call behind t. The identity's entry is removed only if t
// is still the active token, so a superseded call never removes its
// successor's handle. It reports whether the entry was removed.
func (d *Deduplicator) Release(t *Token) bool {
	if t == nil {
		return false
	}
	if t.call == nil {
		t.cancel(nil)
		return false
	}
	return d.group.End(t.id, t.call)
}

// Active reports whether t is the current token for its identity.
func (d *Deduplicator) Active(t *Token) bool {
	if t == nil || t.call == nil {
		return t != nil
	}
	return d.group.IsLatest(t.id, t.call)
}

// CancelAll cancels every pending call with cause and returns how many were
// cancelled.
func (d *Deduplicator) CancelAll(cause error) int {
	return d.group.CancelAll(cause)
}

// Pending returns the number of identities with a pending call.
func (d *Deduplicator) Pending() int {
	return d.group.Len()
}

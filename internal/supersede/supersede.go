package supersede

import (
	"context"
	"sync"
)

// Group tracks the latest call per key. Starting a call for a key that already
// has one in flight cancels the older call, so only the most recent caller can
// ever deliver a result.
type Group[K comparable] struct {
	mu sync.Mutex
	m  map[K]*Call
}

// Call is the handle of one registered call.
type Call struct {
	cancel context.CancelCauseFunc
}

// New creates an empty Group.
func New[K comparable]() *Group[K] {
	return &Group[K]{
		m: make(map[K]*Call),
	}
}

// Begin registers a call for key and returns a context derived from ctx that
// is cancelled with ErrSuperseded once a newer call for the same key begins.
// The boolean reports whether an older call was superseded.
func (g *Group[K]) Begin(ctx context.Context, key K) (context.Context, *Call, bool) {
	callCtx, cancel := context.WithCancelCause(ctx)
	c := &Call{cancel: cancel}

	g.mu.Lock()
	prev, ok := g.m[key]
	g.m[key] = c
	g.mu.Unlock()

	if ok {
		prev.cancel(ErrSuperseded)
	}
	return callCtx, c, ok
}

// End releases c. The key is forgotten only if c is still its latest call, so
// a superseded call finishing late never drops its successor. End reports
// whether the key was removed.
func (g *Group[K]) End(key K, c *Call) bool {
	if c == nil {
		return false
	}

	g.mu.Lock()
	removed := false
	if g.m[key] == c {
		delete(g.m, key)
		removed = true
	}
	g.mu.Unlock()

	c.cancel(nil)
	return removed
}

// IsLatest reports whether c is the active call for key.
func (g *Group[K]) IsLatest(key K, c *Call) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m[key] == c
}

// CancelAll cancels every registered call with cause and forgets them all.
// It returns how many calls were cancelled.
func (g *Group[K]) CancelAll(cause error) int {
	g.mu.Lock()
	calls := g.m
	g.m = make(map[K]*Call)
	g.mu.Unlock()

	for _, c := range calls {
		c.cancel(cause)
	}
	return len(calls)
}

// Len returns the number of registered calls.
func (g *Group[K]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

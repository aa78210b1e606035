package antrian

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestDeduplicatorSupersedesPendingCall(t *testing.T) {
	d := NewDeduplicator(nil)
	req := getRequest("/api/items")

	firstCtx, first := d.Register(context.Background(), req)
	secondCtx, second := d.Register(context.Background(), req)

	if firstCtx.Err() == nil {
		t.Fatal("first call should be cancelled once superseded")
	}
	if !errors.Is(context.Cause(firstCtx), ErrSuperseded) {
		t.Errorf("cause = %v, want ErrSuperseded", context.Cause(firstCtx))
	}
	if secondCtx.Err() != nil {
		t.Error("newest call must stay live")
	}
	if d.Active(first) || !d.Active(second) {
		t.Error("only the newest token should be active")
	}

	// A late release of the superseded call keeps its successor's handle.
	if d.Release(first) {
		t.Error("releasing a superseded token must not remove the entry")
	}
	if d.Pending() != 1 {
		t.Errorf("pending = %d, want 1", d.Pending())
	}

	if !d.Release(second) {
		t.Error("releasing the active token should remove the entry")
	}
	if d.Pending() != 0 {
		t.Errorf("pending = %d, want 0", d.Pending())
	}
}

func TestDeduplicatorDistinctIdentities(t *testing.T) {
	d := NewDeduplicator(nil)

	ctxA, _ := d.Register(context.Background(), getRequest("/a"))
	ctxB, _ := d.Register(context.Background(), getRequest("/b"))
	ctxPost, _ := d.Register(context.Background(), &Request{Method: http.MethodPost, URL: "/a"})

	for name, ctx := range map[string]context.Context{"a": ctxA, "b": ctxB, "post a": ctxPost} {
		if ctx.Err() != nil {
			t.Errorf("%s should not be cancelled by a different identity", name)
		}
	}
	if d.Pending() != 3 {
		t.Errorf("pending = %d, want 3", d.Pending())
	}
}

func TestDeduplicatorCondition(t *testing.T) {
	d := NewDeduplicator(func(r *Request) bool { return r.Method == http.MethodGet })
	post := &Request{Method: http.MethodPost, URL: "/api/orders"}

	firstCtx, first := d.Register(context.Background(), post)
	_, second := d.Register(context.Background(), post)

	if firstCtx.Err() != nil {
		t.Error("exempt requests must not supersede each other")
	}
	if d.Pending() != 0 {
		t.Errorf("exempt requests are not tracked, pending = %d", d.Pending())
	}
	if !d.Active(first) || !d.Active(second) {
		t.Error("exempt tokens are always active")
	}

	d.Release(first)
	if firstCtx.Err() == nil {
		t.Error("release should cancel the exempt call's context")
	}
}

func TestDeduplicatorCancelAll(t *testing.T) {
	d := NewDeduplicator(nil)
	ctxA, _ := d.Register(context.Background(), getRequest("/a"))
	ctxB, _ := d.Register(context.Background(), getRequest("/b"))

	if n := d.CancelAll(ErrReset); n != 2 {
		t.Errorf("CancelAll = %d, want 2", n)
	}
	for _, ctx := range []context.Context{ctxA, ctxB} {
		if !errors.Is(context.Cause(ctx), ErrReset) {
			t.Errorf("cause = %v, want ErrReset", context.Cause(ctx))
		}
	}
	if d.Pending() != 0 {
		t.Errorf("pending = %d, want 0", d.Pending())
	}
}

func TestDeduplicatorReleaseNil(t *testing.T) {
	d := NewDeduplicator(nil)
	if d.Release(nil) {
		t.Error("Release(nil) should report false")
	}
}

package antrian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes one outgoing call. It is treated as immutable once issued.
type Request struct {
	Method  string
	URL     string
	Params  url.Values
	Body    []byte
	Header  http.Header
	NoCache bool
}

// Identity returns the deduplication and cache key of the request.
func (r *Request) Identity() Identity {
	return Identity{
		Method: normalizeMethod(r.Method),
		URL:    r.URL,
		Params: r.Params.Encode(),
	}
}

// normalizeMethod upper-cases m; an empty method is GET.
func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// Identity is the comparable key of a request: method, URL and the canonical
// (sorted) query string. The body is not part of it.
type Identity struct {
	Method string
	URL    string
	Params string
}

// String renders the identity for logs.
func (id Identity) String() string {
	if id.Params == "" {
		return id.Method + " " + id.URL
	}
	return id.Method + " " + id.URL + "?" + id.Params
}

// Response is what a Transport returns for a call that got an answer,
// whatever the status code.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FromCache  bool
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// clone returns a copy that shares no mutable state with r.
func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &Response{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
		Body:       body,
		FromCache:  r.FromCache,
	}
}

// Transport sends a request. An error means no response was obtained; any
// status code, including 4xx and 5xx, is returned as a Response.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// CallState names the stage a call is in.
type CallState int

const (
	StateCreated CallState = iota
	StateDeduped
	StateCacheChecked
	StateThrottled
	StateQueued
	StateDirect
	StateExecuting
	StateRetrying
	StateSucceeded
	StateFailed
	StateCancelled
)

var callStateNames = [...]string{
	"created", "deduped", "cache_checked", "throttled", "queued", "direct",
	"executing", "retrying", "succeeded", "failed", "cancelled",
}

func (s CallState) String() string {
	if s < 0 || int(s) >= len(callStateNames) {
		return "unknown"
	}
	return callStateNames[s]
}

// PrefixDuration maps a URL prefix to a duration.
type PrefixDuration struct {
	Prefix   string        `mapstructure:"prefix"`
	Duration time.Duration `mapstructure:"duration"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

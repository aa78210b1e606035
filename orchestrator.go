package antrian

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ambiyansyah-risyal/antrian/internal/backoff"
)

// outcomeTimeout bounds one OutcomeRecorder call.
const outcomeTimeout = 2 * time.Second

// Orchestrator sits between application code and a remote API. Every call
// is superseded by a newer identical call, answered from cache when
// possible, spaced out per endpoint class, bounded in parallelism when
// critical and retried on transient failures. It is safe for concurrent use.
type Orchestrator struct {
	cfg Config

	transport  Transport
	httpClient *http.Client
	baseURL    string
	headerFunc HeaderFunc

	logger       Logger
	notifier     Notifier
	metrics      *MetricsCollector
	recorder     OutcomeRecorder
	rateLimiter  *RateLimiter
	rateLimitRPS float64
	requestIDGen func() string

	dedupCondition    DeduplicationCondition
	backoffStrategy   backoff.Strategy
	invalidateOnWrite bool
	clock             func() time.Time
	sleep             func(ctx context.Context, d time.Duration) error

	cache     *ResponseCache
	throttler *Throttler
	dedup     *Deduplicator
	queue     *ConcurrencyQueue
	retry     *RetryPolicy
	conn      connectionTracker

	validationError error
}

// New constructs an Orchestrator using the provided functional options. A
// best effort validation is performed; call IsValid / ValidationError for
// errors. An invalid orchestrator rejects every call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:          DefaultConfig(),
		logger:       nopLogger{},
		notifier:     nopNotifier{},
		requestIDGen: uuid.NewString,
		clock:        time.Now,
		sleep:        sleepContext,
	}

	for _, option := range options {
		option(o)
	}

	if err := o.ValidateConfiguration(); err != nil {
		o.validationError = err
	}

	if o.logger == nil {
		o.logger = nopLogger{}
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.requestIDGen == nil {
		o.requestIDGen = uuid.NewString
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.transport == nil {
		t := NewHTTPTransport(o.httpClient, o.baseURL)
		t.Headers = o.headerFunc
		o.transport = t
	}

	o.cache = NewResponseCache(o.cfg)
	o.cache.now = o.clock
	o.cache.metrics = o.metrics

	o.throttler = NewThrottler(o.cfg.IntervalTable, o.cfg.DefaultInterval)
	o.throttler.now = o.clock

	o.dedup = NewDeduplicator(o.dedupCondition)
	o.dedup.metrics = o.metrics

	o.queue = NewConcurrencyQueue(o.cfg.MaxConcurrent, o.cfg.CriticalPrefixes)
	o.queue.metrics = o.metrics

	o.retry = NewRetryPolicy(o.cfg.MaxRetryAttempts, o.cfg.BaseBackoff, o.cfg.MaxBackoff, o.backoffStrategy)
	o.retry.respectRetryAfter = o.cfg.RespectRetryAfter
	o.retry.now = o.clock

	return o
}

// IsValid reports whether the configuration passed validation.
func (o *Orchestrator) IsValid() bool {
	return o.validationError == nil
}

// ValidationError returns the configuration error, if any.
func (o *Orchestrator) ValidationError() error {
	return o.validationError
}

// Config returns a copy of the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Cache returns the response cache.
func (o *Orchestrator) Cache() *ResponseCache { return o.cache }

// Throttler returns the per-class throttler.
func (o *Orchestrator) Throttler() *Throttler { return o.throttler }

// Deduplicator returns the pending-call registry.
func (o *Orchestrator) Deduplicator() *Deduplicator { return o.dedup }

// Queue returns the concurrency queue for critical calls.
func (o *Orchestrator) Queue() *ConcurrencyQueue { return o.queue }

// RetryPolicy returns the retry policy.
func (o *Orchestrator) RetryPolicy() *RetryPolicy { return o.retry }

// Get issues a GET request.
func (o *Orchestrator) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	return o.Issue(ctx, &Request{Method: http.MethodGet, URL: rawURL, Params: params})
}

// Post issues a POST request with a JSON body.
func (o *Orchestrator) Post(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	return o.Issue(ctx, &Request{Method: http.MethodPost, URL: rawURL, Body: body})
}

// Put issues a PUT request with a JSON body.
func (o *Orchestrator) Put(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	return o.Issue(ctx, &Request{Method: http.MethodPut, URL: rawURL, Body: body})
}

// Patch issues a PATCH request with a JSON body.
func (o *Orchestrator) Patch(ctx context.Context, rawURL string, body []byte) (*Response, error) {
	return o.Issue(ctx, &Request{Method: http.MethodPatch, URL: rawURL, Body: body})
}

// Delete issues a DELETE request.
func (o *Orchestrator) Delete(ctx context.Context, rawURL string) (*Response, error) {
	return o.Issue(ctx, &Request{Method: http.MethodDelete, URL: rawURL})
}

// Reset clears the cache and throttle records and cancels every pending
// call with ErrReset. Call it on login and logout.
func (o *Orchestrator) Reset() {
	cancelled := o.dedup.CancelAll(ErrReset)
	o.cache.Clear()
	o.throttler.Reset()
	o.logger.Info("Orchestrator reset", "cancelled", cancelled)
}

// call carries the per-call state through Issue.
type call struct {
	id      string
	req     *Request
	method  string
	class   string
	start   time.Time
	state   CallState
	retries int
	// gen is the cache generation when the call began. A Reset since then
	// keeps the response out of the cache.
	gen uint64
}

func (o *Orchestrator) transition(c *call, s CallState, args ...any) {
	c.state = s
	kv := append([]any{"requestID", c.id, "state", s.String(), "method", c.method, "url", c.req.URL, "class", c.class}, args...)
	o.logger.Debug("Call state", kv...)
}

// Issue runs req through supersession, cache, throttle, queue and retry.
// A call superseded by a newer identical call, cancelled by Reset or
// abandoned by its caller resolves with a KindCancelled error; callers
// should ignore those. Every other failure is a *RequestError carrying the
// last response, if any.
func (o *Orchestrator) Issue(ctx context.Context, req *Request) (*Response, error) {
	if o.validationError != nil {
		return nil, o.validationError
	}
	if req == nil || strings.TrimSpace(req.URL) == "" {
		return nil, &RequestError{
			Kind:      KindValidation,
			Message:   "request must have a URL",
			Timestamp: o.clock(),
		}
	}

	c := &call{
		id:     o.requestIDGen(),
		req:    req,
		method: normalizeMethod(req.Method),
		class:  o.throttler.Class(req),
		start:  o.clock(),
		state:  StateCreated,
		gen:    o.cache.Generation(),
	}

	callCtx, token := o.dedup.Register(ctx, req)
	defer o.dedup.Release(token)
	o.transition(c, StateDeduped)

	if resp, ok := o.cache.Lookup(req); ok {
		o.transition(c, StateCacheChecked, "hit", true)
		o.metrics.RecordCacheHit(c.method, c.class)
		o.record(ctx, c, OutcomeCached, 0, resp.StatusCode)
		return resp, nil
	}
	if o.cache.Cacheable(req) {
		o.metrics.RecordCacheMiss(c.method, c.class)
	}
	o.transition(c, StateCacheChecked, "hit", false)

	for {
		delay := o.throttler.Delay(req)
		if delay == 0 {
			break
		}
		o.transition(c, StateThrottled, "delay", delay)
		o.metrics.RecordThrottleDelay(c.class, delay)
		if err := o.sleep(callCtx, delay); err != nil {
			return nil, o.cancelled(ctx, c, context.Cause(callCtx))
		}
	}

	critical := o.queue.Critical(req)
	for {
		if critical {
			o.transition(c, StateQueued)
		} else {
			o.transition(c, StateDirect)
		}

		resp, err := o.dispatch(callCtx, c, critical)
		if callCtx.Err() != nil || !o.dedup.Active(token) {
			return nil, o.cancelled(ctx, c, context.Cause(callCtx))
		}
		if errors.Is(err, ErrRateLimitDeadline) {
			return nil, o.cancelled(ctx, c, err)
		}

		kind := o.retry.Classify(resp, err)
		if kind == 0 {
			return o.succeed(ctx, c, resp), nil
		}

		if kind == KindNetwork && !errors.Is(err, ErrTransportPanic) && o.conn.failed() {
			o.notifier.Notify(NoticeConnectionLost, "Connection lost. Retrying when possible.")
		}

		if !o.retry.Retryable(kind, c.retries) {
			return nil, o.fail(ctx, c, kind, resp, err)
		}

		c.retries++
		delay := o.retry.Delay(c.retries, resp)
		o.transition(c, StateRetrying, "attempt", c.retries, "delay", delay, "kind", kind.String())
		o.metrics.RecordRetry(c.method, c.class, kind)
		if kind == KindRateLimited {
			o.notifier.Notify(NoticeRateLimited, fmt.Sprintf("Too many requests. Retrying in %s.", delay))
		} else {
			o.notifier.Notify(NoticeRetryScheduled, fmt.Sprintf("Request failed. Retry %d of %d in %s.", c.retries, o.retry.MaxRetries(), delay))
		}

		if err := o.sleep(callCtx, delay); err != nil {
			return nil, o.cancelled(ctx, c, context.Cause(callCtx))
		}
	}
}

// dispatch sends one attempt, through the queue when critical.
func (o *Orchestrator) dispatch(ctx context.Context, c *call, critical bool) (*Response, error) {
	var (
		resp    *Response
		sendErr error
	)
	send := func(ctx context.Context) error {
		if err := o.rateLimiter.Wait(ctx); err != nil {
			sendErr = err
			return nil
		}
		resp, sendErr = o.sendAttempt(ctx, c)
		return nil
	}

	if !critical {
		_ = send(ctx)
		return resp, sendErr
	}
	if err := o.queue.Submit(ctx, send); err != nil {
		return nil, err
	}
	return resp, sendErr
}

// sendAttempt runs the transport once. A panic in the transport becomes an
// ErrTransportPanic error on the direct and queued paths alike.
func (o *Orchestrator) sendAttempt(ctx context.Context, c *call) (resp *Response, err error) {
	o.transition(c, StateExecuting, "attempt", c.retries+1)
	o.metrics.RecordRequestStart(c.method, c.class)
	started := o.clock()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Transport panicked", "requestID", c.id, "url", c.req.URL, "panic", fmt.Sprint(r))
			resp, err = nil, fmt.Errorf("%w: %v", ErrTransportPanic, r)
		}
		o.metrics.RecordRequestEnd(c.method, c.class)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		o.metrics.RecordRequest(c.method, c.class, status, o.clock().Sub(started))
	}()
	return o.transport.Send(ctx, c.req)
}

func (o *Orchestrator) succeed(ctx context.Context, c *call, resp *Response) *Response {
	o.transition(c, StateSucceeded, "status", resp.StatusCode, "attempts", c.retries+1)

	if o.cache.StoreIfGeneration(c.req, resp, c.gen) {
		o.logger.Debug("Response cached", "requestID", c.id, "url", c.req.URL, "ttl", o.cache.TTL(c.req))
	}
	if o.invalidateOnWrite && c.method != http.MethodGet && c.method != http.MethodHead {
		if n := o.cache.InvalidatePrefix(c.req.URL); n > 0 {
			o.logger.Debug("Cache invalidated", "requestID", c.id, "prefix", c.req.URL, "entries", n)
		}
	}
	if o.conn.succeeded() {
		o.notifier.Notify(NoticeConnectionRestored, "Connection restored.")
	}

	o.record(ctx, c, OutcomeSucceeded, 0, resp.StatusCode)
	return resp
}

func (o *Orchestrator) fail(ctx context.Context, c *call, kind ErrorKind, resp *Response, cause error) error {
	reqErr := &RequestError{
		Kind:        kind,
		Cause:       cause,
		RequestID:   c.id,
		Method:      c.method,
		URL:         c.req.URL,
		Attempt:     c.retries + 1,
		MaxAttempts: o.retry.MaxRetries() + 1,
		Response:    resp,
		Timestamp:   o.clock(),
		Duration:    o.clock().Sub(c.start),
	}
	if resp != nil {
		reqErr.StatusCode = resp.StatusCode
	}

	switch {
	case kind.Retryable():
		reqErr.Kind = KindRetriesExhausted
		reqErr.Message = fmt.Sprintf("giving up after %d attempts, last failure %s", c.retries+1, kind)
		if cause == nil {
			reqErr.Cause = fmt.Errorf("%w: %s", ErrRetriesExhausted, kind)
		}
	case kind == KindClient:
		reqErr.Message = "request rejected"
	default:
		reqErr.Message = "request failed"
	}

	o.transition(c, StateFailed, "kind", reqErr.Kind.String())
	o.logger.Error("Request failed", "requestID", c.id, "method", c.method, "url", c.req.URL, "kind", reqErr.Kind.String(), "status", reqErr.StatusCode, "attempt", reqErr.Attempt)
	o.metrics.RecordError(reqErr.Kind, c.method, c.class)
	o.record(ctx, c, OutcomeFailed, reqErr.Kind, reqErr.StatusCode)
	return reqErr
}

// cancelled builds the silent result of a superseded, reset or abandoned
// call. Nothing is cached, notified or counted as a failure.
func (o *Orchestrator) cancelled(ctx context.Context, c *call, cause error) error {
	if cause == nil {
		cause = ErrSuperseded
	}
	o.transition(c, StateCancelled, "cause", cause.Error())
	o.record(ctx, c, OutcomeCancelled, KindCancelled, 0)
	return &RequestError{
		Kind:        KindCancelled,
		Message:     "call cancelled",
		Cause:       cause,
		RequestID:   c.id,
		Method:      c.method,
		URL:         c.req.URL,
		Attempt:     c.retries + 1,
		MaxAttempts: o.retry.MaxRetries() + 1,
		Timestamp:   o.clock(),
		Duration:    o.clock().Sub(c.start),
	}
}

func (o *Orchestrator) record(ctx context.Context, c *call, result OutcomeResult, kind ErrorKind, status int) {
	if o.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
	defer cancel()

	now := o.clock()
	err := o.recorder.Record(rctx, Outcome{
		RequestID:  c.id,
		Method:     c.method,
		URL:        c.req.URL,
		Class:      c.class,
		Result:     result,
		Kind:       kind,
		StatusCode: status,
		Attempts:   c.retries + 1,
		Duration:   now.Sub(c.start),
		At:         now,
	})
	if err != nil {
		o.logger.Warn("Outcome not recorded", "requestID", c.id, "error", err.Error())
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

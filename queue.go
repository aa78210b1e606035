package antrian

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyQueue runs at most MaxConcurrent tasks at once. Tasks beyond the
// limit wait and are admitted in submission order.
type ConcurrencyQueue struct {
	sem           *semaphore.Weighted
	maxConcurrent int
	running       atomic.Int64
	waiting       atomic.Int64
	critical      []criticalRoute
	metrics       *MetricsCollector
}

type criticalRoute struct {
	method string
	prefix string
}

// NewConcurrencyQueue creates a queue with the given parallelism. Critical
// entries are "/prefix" or "METHOD /prefix"; only matching requests are routed
// through the queue.
func NewConcurrencyQueue(maxConcurrent int, critical []string) *ConcurrencyQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &ConcurrencyQueue{
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		maxConcurrent: maxConcurrent,
		critical:      parseCriticalRoutes(critical),
	}
}

func parseCriticalRoutes(entries []string) []criticalRoute {
	routes := make([]criticalRoute, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		method, prefix, ok := strings.Cut(e, " ")
		if !ok {
			routes = append(routes, criticalRoute{prefix: e})
			continue
		}
		routes = append(routes, criticalRoute{
			method: strings.ToUpper(method),
			prefix: strings.TrimSpace(prefix),
		})
	}
	return routes
}

// Critical reports whether req must go through the queue.
func (q *ConcurrencyQueue) Critical(req *Request) bool {
	path := urlPath(req.URL)
	method := normalizeMethod(req.Method)
	for _, r := range q.critical {
		if r.method != "" && r.method != method {
			continue
		}
		if strings.HasPrefix(path, r.prefix) {
			return true
		}
	}
	return false
}

// Submit waits for a slot, runs task and releases the slot however task ends.
// If ctx is cancelled while waiting the task never runs and the context's
// cause is returned.
func (q *ConcurrencyQueue) Submit(ctx context.Context, task func(context.Context) error) (err error) {
	q.waiting.Add(1)
	q.metrics.RecordQueueWaiting(int(q.waiting.Load()))
	acquireErr := q.sem.Acquire(ctx, 1)
	q.waiting.Add(-1)
	q.metrics.RecordQueueWaiting(int(q.waiting.Load()))
	if acquireErr != nil {
		return context.Cause(ctx)
	}

	q.running.Add(1)
	q.metrics.RecordQueueRunning(int(q.running.Load()))
	defer func() {
		q.running.Add(-1)
		q.metrics.RecordQueueRunning(int(q.running.Load()))
		q.sem.Release(1)
		if r := recover(); r != nil {
			err = fmt.Errorf("antrian: queued task panicked: %v", r)
		}
	}()

	return task(ctx)
}

// Running returns the number of tasks currently executing.
func (q *ConcurrencyQueue) Running() int {
	return int(q.running.Load())
}

// Waiting returns the number of tasks waiting for a slot.
func (q *ConcurrencyQueue) Waiting() int {
	return int(q.waiting.Load())
}

// MaxConcurrent returns the parallelism limit.
func (q *ConcurrencyQueue) MaxConcurrent() int {
	return q.maxConcurrent
}

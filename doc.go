// Package antrian orchestrates calls from an application to a remote API:
//
//   - Supersession: a new call cancels any pending identical call (last writer wins)
//   - Response caching with per-prefix TTLs and oldest-first eviction
//   - Per-endpoint-class throttling with per-prefix minimum intervals
//   - Bounded FIFO concurrency for critical endpoints
//   - Retries with exponential backoff for network failures, 429 and 5xx
//   - Prometheus metrics, zap logging, user notices and outcome recording
//
// Design goals:
//   - Functional options configure everything, or a single Config via WithConfig
//   - Safe concurrent use of a single *Orchestrator
//   - No global state: Reset clears cache, throttle records and pending calls
//
// Typical usage:
//
//	orch := antrian.New(
//	    antrian.WithBaseURL("https://api.example.com"),
//	    antrian.WithInterval("/api/search", 500*time.Millisecond),
//	    antrian.WithTTL("/api/catalog", 5*time.Minute),
//	    antrian.WithCriticalPrefixes("POST /api/orders"),
//	)
//	resp, err := orch.Get(ctx, "/api/catalog/items", nil)
//	if antrian.IsCancelled(err) {
//	    return // superseded by a newer identical call
//	}
//
// A superseded call resolves with a KindCancelled error that applications
// ignore; it is never logged as an error, notified or counted as a failure.
package antrian

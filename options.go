package antrian

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ambiyansyah-risyal/antrian/internal/backoff"
)

// Defaults used by DefaultConfig.
const (
	DefaultMaxConcurrent    = 8
	DefaultMaxCacheEntries  = 50
	DefaultMaxRetryAttempts = 3
	DefaultTTL              = 60 * time.Second
	DefaultBaseBackoff      = time.Second
	DefaultMaxBackoff       = time.Minute
	DefaultAuthPrefix       = "/api/auth/"
)

// Config holds every tunable of an Orchestrator.
type Config struct {
	// MaxConcurrent bounds how many critical calls execute at once.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// CriticalPrefixes lists "/prefix" or "METHOD /prefix" entries routed
	// through the concurrency queue.
	CriticalPrefixes []string `mapstructure:"critical_prefixes"`

	IntervalTable   []PrefixDuration `mapstructure:"intervals"`
	DefaultInterval time.Duration    `mapstructure:"default_interval"`

	TTLTable        []PrefixDuration `mapstructure:"ttls"`
	DefaultTTL      time.Duration    `mapstructure:"default_ttl"`
	MaxCacheEntries int              `mapstructure:"max_cache_entries"`
	// AuthPrefixes are never cached.
	AuthPrefixes []string `mapstructure:"auth_prefixes"`

	MaxRetryAttempts  int           `mapstructure:"max_retry_attempts"`
	BaseBackoff       time.Duration `mapstructure:"base_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	RespectRetryAfter bool          `mapstructure:"respect_retry_after"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:    DefaultMaxConcurrent,
		DefaultTTL:       DefaultTTL,
		MaxCacheEntries:  DefaultMaxCacheEntries,
		AuthPrefixes:     []string{DefaultAuthPrefix},
		MaxRetryAttempts: DefaultMaxRetryAttempts,
		BaseBackoff:      DefaultBaseBackoff,
		MaxBackoff:       DefaultMaxBackoff,
	}
}

// Validate checks cfg and returns a KindValidation error listing every
// problem found.
func (cfg Config) Validate() error {
	var errs []string

	if cfg.MaxConcurrent <= 0 {
		errs = append(errs, "maxConcurrent must be positive")
	}
	for i, entry := range cfg.CriticalPrefixes {
		if !validCriticalEntry(entry) {
			errs = append(errs, fmt.Sprintf("criticalPrefixes[%d] %q must be \"/prefix\" or \"METHOD /prefix\"", i, entry))
		}
	}

	errs = append(errs, validateTable("intervals", cfg.IntervalTable)...)
	if cfg.DefaultInterval < 0 {
		errs = append(errs, "defaultInterval must be non-negative")
	}

	errs = append(errs, validateTable("ttls", cfg.TTLTable)...)
	if cfg.DefaultTTL < 0 {
		errs = append(errs, "defaultTTL must be non-negative")
	}
	if cfg.MaxCacheEntries <= 0 {
		errs = append(errs, "maxCacheEntries must be positive")
	}

	if cfg.MaxRetryAttempts < 0 {
		errs = append(errs, "maxRetryAttempts must be non-negative")
	}
	if cfg.MaxRetryAttempts > 100 {
		errs = append(errs, "maxRetryAttempts > 100 may cause excessive resource usage")
	}
	if cfg.BaseBackoff <= 0 {
		errs = append(errs, "baseBackoff must be positive")
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		errs = append(errs, "maxBackoff must be greater than or equal to baseBackoff")
	}
	if cfg.MaxBackoff > time.Hour {
		errs = append(errs, "maxBackoff > 1h may cause extremely long delays")
	}

	if len(errs) > 0 {
		return &RequestError{
			Kind:    KindValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errs),
		}
	}
	return nil
}

func validateTable(name string, table []PrefixDuration) []string {
	var errs []string
	for i, e := range table {
		if e.Prefix == "" {
			errs = append(errs, fmt.Sprintf("%s[%d] prefix must not be empty", name, i))
		}
		if e.Duration < 0 {
			errs = append(errs, fmt.Sprintf("%s[%d] duration must be non-negative", name, i))
		}
	}
	return errs
}

func validCriticalEntry(entry string) bool {
	entry = strings.TrimSpace(entry)
	if strings.HasPrefix(entry, "/") {
		return true
	}
	method, prefix, ok := strings.Cut(entry, " ")
	return ok && method != "" && strings.HasPrefix(strings.TrimSpace(prefix), "/")
}

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithMaxConcurrent sets how many critical calls may execute at once.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		o.cfg.MaxConcurrent = n
	}
}

// WithCriticalPrefixes adds entries to the critical allowlist.
func WithCriticalPrefixes(entries ...string) Option {
	return func(o *Orchestrator) {
		o.cfg.CriticalPrefixes = append(o.cfg.CriticalPrefixes, entries...)
	}
}

// WithInterval sets the minimum spacing between dispatches under prefix.
func WithInterval(prefix string, d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.IntervalTable = append(o.cfg.IntervalTable, PrefixDuration{Prefix: prefix, Duration: d})
	}
}

// WithDefaultInterval sets the spacing for URLs matching no interval prefix.
func WithDefaultInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.DefaultInterval = d
	}
}

// WithTTL sets the cache lifetime of responses under prefix.
func WithTTL(prefix string, d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.TTLTable = append(o.cfg.TTLTable, PrefixDuration{Prefix: prefix, Duration: d})
	}
}

// WithDefaultTTL sets the cache lifetime for URLs matching no TTL prefix.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.DefaultTTL = d
	}
}

// WithMaxCacheEntries sets the cache capacity.
func WithMaxCacheEntries(n int) Option {
	return func(o *Orchestrator) {
		o.cfg.MaxCacheEntries = n
	}
}

// WithAuthPrefixes replaces the prefixes that are never cached.
func WithAuthPrefixes(prefixes ...string) Option {
	return func(o *Orchestrator) {
		o.cfg.AuthPrefixes = prefixes
	}
}

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		o.cfg.MaxRetryAttempts = n
	}
}

// WithBaseBackoff sets the delay before the first retry
func WithBaseBackoff(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.BaseBackoff = d
	}
}

// WithMaxBackoff sets the maximum backoff duration
func WithMaxBackoff(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.cfg.MaxBackoff = d
	}
}

// WithJitter adds up to f (0.0 to 1.0) of random extra delay to each backoff.
func WithJitter(f float64) Option {
	return func(o *Orchestrator) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		o.backoffStrategy = backoff.ExponentialJitterStrategy{Jitter: f}
	}
}

// WithRespectRetryAfter lets a larger Retry-After header on 429/503 replace
// the computed backoff.
func WithRespectRetryAfter() Option {
	return func(o *Orchestrator) {
		o.cfg.RespectRetryAfter = true
	}
}

// WithTransport sets the transport used to send requests.
func WithTransport(t Transport) Option {
	return func(o *Orchestrator) {
		o.transport = t
	}
}

// WithHTTPClient sets the client of the default HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Orchestrator) {
		o.httpClient = client
	}
}

// WithBaseURL sets the base URL of the default HTTP transport.
func WithBaseURL(baseURL string) Option {
	return func(o *Orchestrator) {
		o.baseURL = baseURL
	}
}

// WithHeaderFunc sets the header hook of the default HTTP transport.
func WithHeaderFunc(fn HeaderFunc) Option {
	return func(o *Orchestrator) {
		o.headerFunc = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(o *Orchestrator) {
		o.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(o *Orchestrator) {
		o.metrics = collector
	}
}

// WithOutcomeRecorder sets where call outcomes are recorded.
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithRateLimit applies a global limit of rps dispatches per second, retries
// included.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Orchestrator) {
		o.rateLimitRPS = rps
		o.rateLimiter = NewRateLimiter(rps, burst)
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		o.requestIDGen = gen
	}
}

// WithDeduplicationCondition sets which requests take part in supersession.
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(o *Orchestrator) {
		o.dedupCondition = fn
	}
}

// WithInvalidateOnWrite makes a successful non-GET request evict cached
// entries whose URL starts with the request URL.
func WithInvalidateOnWrite() Option {
	return func(o *Orchestrator) {
		o.invalidateOnWrite = true
	}
}

// WithClock sets the time source of the cache, throttler and retry policy.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = now
	}
}

// ValidateConfiguration validates the orchestrator configuration and returns
// an error if invalid.
func (o *Orchestrator) ValidateConfiguration() error {
	var errs []string

	if err := o.cfg.Validate(); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Cause != nil {
			errs = append(errs, reqErr.Cause.Error())
		} else {
			errs = append(errs, err.Error())
		}
	}
	if o.rateLimiter != nil && o.rateLimitRPS <= 0 {
		errs = append(errs, "rateLimit rps must be positive")
	}
	if o.requestIDGen == nil {
		errs = append(errs, "request ID generator must not be nil")
	}
	if o.clock == nil {
		errs = append(errs, "clock must not be nil")
	}

	if len(errs) > 0 {
		return &RequestError{
			Kind:    KindValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("%s", strings.Join(errs, "; ")),
		}
	}
	return nil
}

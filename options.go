package wanikache

import (
	"fmt"
	"net/http"
	"time"
)

// Option represents a configuration option applied at construction.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-attempt request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithStore sets the persistent storage medium backing the cache.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithMaxRetries sets the maximum number of retry attempts per fetch.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the base retry delay; attempt n waits base * 2^n.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithMaxBackoff caps the retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithMaxConcurrent bounds how many requests may be in flight at once.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		c.maxConcurrent = n
	}
}

// WithPageDelay sets the pause between successive network-served pages.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		c.pageDelay = d
	}
}

// WithRevision overrides the declared API revision.
func WithRevision(revision string) Option {
	return func(c *Client) {
		c.revision = revision
	}
}

// WithTTL overrides the freshness window for one resource kind. Zero means
// never expire.
func WithTTL(kind ResourceKind, ttl time.Duration) Option {
	return func(c *Client) {
		c.ttls[kind] = ttl
	}
}

// WithMetrics enables Prometheus metrics collection on the default registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with the current configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// listQuery carries per-call scoping for collection fetches.
type listQuery struct {
	updatedAfter string
	levels       []int
}

// ListOption scopes one collection fetch.
type ListOption func(*listQuery)

// WithUpdatedAfter restricts a collection fetch to records changed after the
// given ISO-8601 timestamp, enabling incremental sync.
func WithUpdatedAfter(timestamp string) ListOption {
	return func(q *listQuery) {
		q.updatedAfter = timestamp
	}
}

// WithLevels restricts a subject fetch to the given levels.
func WithLevels(levels ...int) ListOption {
	return func(q *listQuery) {
		q.levels = levels
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	if c.token == "" {
		problems = append(problems, "token must not be empty")
	}
	if c.baseURL == "" {
		problems = append(problems, "baseURL must not be empty")
	}
	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.store == nil {
		problems = append(problems, "store cannot be nil")
	}
	if c.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if c.baseDelay <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if c.maxDelay > 0 && c.maxDelay < c.baseDelay {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if c.maxConcurrent <= 0 {
		problems = append(problems, "maxConcurrent must be positive")
	}
	if c.pageDelay < 0 {
		problems = append(problems, "pageDelay must be non-negative")
	}
	for kind, ttl := range c.ttls {
		if ttl < 0 {
			problems = append(problems, fmt.Sprintf("ttl for %s must be non-negative", kind))
		}
	}
	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		problems = append(problems, "logger must be set when debug is enabled")
	}

	if len(problems) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}

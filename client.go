package wanikache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// cacheKeyPrefix namespaces every key this client writes into its Store.
const cacheKeyPrefix = "wanikache"

// Client is the per-account facade over the caching engine. It derives cache
// keys and TTLs, composes the cache, in-flight registry, scheduler and
// retrying transport, and returns plain decoded resource collections. One
// Client is constructed per session; it holds no global state and is safe for
// concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	revision      string
	store         Store
	cache         *CacheStore
	inflight      *InflightRegistry
	scheduler     *RequestScheduler
	transport     *retryingTransport
	ttls          map[ResourceKind]time.Duration
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	multiplier    float64
	maxConcurrent int
	pageDelay     time.Duration
	metrics       *MetricsCollector
	logger        Logger
	debug         *DebugConfig
	now           func() time.Time

	validationError error
}

// New constructs a Client for the given API token using the provided
// functional options. Without WithStore the cache lives in memory for the
// session. A best effort validation is performed; call IsValid /
// ValidationError for errors.
func New(token string, options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:       DefaultBaseURL,
		token:         token,
		revision:      APIRevision,
		store:         NewMemoryStore(0),
		ttls:          make(map[ResourceKind]time.Duration, len(defaultTTLs)),
		maxRetries:    4,
		baseDelay:     time.Second,
		maxDelay:      30 * time.Second,
		multiplier:    2.0,
		maxConcurrent: defaultMaxConcurrent,
		pageDelay:     pageDelay,
		debug:         DefaultDebugConfig(),
		now:           time.Now,
	}
	for kind, ttl := range defaultTTLs {
		client.ttls[kind] = ttl
	}

	for _, option := range options {
		option(client)
	}

	client.cache = NewCacheStore(client.store)
	client.cache.now = client.now
	client.cache.logger = client.logger
	client.cache.debug = client.debug
	client.cache.metrics = client.metrics

	client.scheduler = NewRequestScheduler(client.maxConcurrent)
	client.scheduler.metrics = client.metrics
	client.scheduler.logger = client.logger
	client.scheduler.debug = client.debug

	client.inflight = NewInflightRegistry()
	client.inflight.metrics = client.metrics

	client.transport = &retryingTransport{
		httpClient: client.httpClient,
		token:      client.token,
		revision:   client.revision,
		maxRetries: client.maxRetries,
		baseDelay:  client.baseDelay,
		maxDelay:   client.maxDelay,
		multiplier: client.multiplier,
		cache:      client.cache,
		metrics:    client.metrics,
		logger:     client.logger,
		debug:      client.debug,
		now:        client.now,
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// GetUser fetches the account profile. The second return reports whether the
// result came from cache.
func (c *Client) GetUser(ctx context.Context) (*User, bool, error) {
	out, err := c.fetchURL(ctx, c.baseURL+"/user", KindUser, nil)
	if err != nil {
		return nil, false, err
	}

	var user User
	if err := json.Unmarshal(out.Body, &user); err != nil {
		return nil, false, c.decodeError("user", err)
	}
	return &user, out.FromCache, nil
}

// GetSummary fetches the periodic lesson/review availability report.
func (c *Client) GetSummary(ctx context.Context) (*Summary, bool, error) {
	out, err := c.fetchURL(ctx, c.baseURL+"/summary", KindSummary, nil)
	if err != nil {
		return nil, false, err
	}

	var summary Summary
	if err := json.Unmarshal(out.Body, &summary); err != nil {
		return nil, false, c.decodeError("summary", err)
	}
	return &summary, out.FromCache, nil
}

// GetSubject fetches one subject by id. The full record is cached; the
// collection-level trimming does not apply to single-subject fetches.
func (c *Client) GetSubject(ctx context.Context, id int64) (*Subject, bool, error) {
	out, err := c.fetchURL(ctx, fmt.Sprintf("%s/subjects/%d", c.baseURL, id), KindSubjects, nil)
	if err != nil {
		return nil, false, err
	}

	var subject Subject
	if err := json.Unmarshal(out.Body, &subject); err != nil {
		return nil, false, c.decodeError("subject", err)
	}
	return &subject, out.FromCache, nil
}

// GetSubjects fetches the subject collection, walking every page. Cached
// copies are trimmed to their essential fields before storage.
func (c *Client) GetSubjects(ctx context.Context, opts ...ListOption) ([]Subject, bool, error) {
	col, err := c.collect(ctx, "/subjects", KindSubjects, trimSubjectCollection, opts)
	if err != nil {
		return nil, false, err
	}
	subjects, err := unmarshalItems[Subject](col.Items)
	if err != nil {
		return nil, false, err
	}
	return subjects, col.FromCache, nil
}

// GetSubjectsWithSubscriptionFilter fetches subjects, optionally scoped to
// the given levels, and drops any subject above the user's granted
// subscription level.
func (c *Client) GetSubjectsWithSubscriptionFilter(ctx context.Context, user *User, levels ...int) ([]Subject, bool, error) {
	opts := []ListOption{}
	if len(levels) > 0 {
		opts = append(opts, WithLevels(levels...))
	}
	subjects, fromCache, err := c.GetSubjects(ctx, opts...)
	if err != nil {
		return nil, false, err
	}
	return filterBySubscription(subjects, user), fromCache, nil
}

// GetAssignments fetches the assignment collection.
func (c *Client) GetAssignments(ctx context.Context, opts ...ListOption) ([]Assignment, bool, error) {
	col, err := c.collect(ctx, "/assignments", KindAssignments, nil, opts)
	if err != nil {
		return nil, false, err
	}
	assignments, err := unmarshalItems[Assignment](col.Items)
	if err != nil {
		return nil, false, err
	}
	return assignments, col.FromCache, nil
}

// GetReviewStatistics fetches the review statistic collection.
func (c *Client) GetReviewStatistics(ctx context.Context, opts ...ListOption) ([]ReviewStatistic, bool, error) {
	col, err := c.collect(ctx, "/review_statistics", KindReviewStatistics, nil, opts)
	if err != nil {
		return nil, false, err
	}
	stats, err := unmarshalItems[ReviewStatistic](col.Items)
	if err != nil {
		return nil, false, err
	}
	return stats, col.FromCache, nil
}

// GetLevelProgressions fetches the level progression collection.
func (c *Client) GetLevelProgressions(ctx context.Context, opts ...ListOption) ([]LevelProgression, bool, error) {
	col, err := c.collect(ctx, "/level_progressions", KindLevelProgressions, nil, opts)
	if err != nil {
		return nil, false, err
	}
	progressions, err := unmarshalItems[LevelProgression](col.Items)
	if err != nil {
		return nil, false, err
	}
	return progressions, col.FromCache, nil
}

// GetSpacedRepetitionSystems fetches the SRS definition collection.
func (c *Client) GetSpacedRepetitionSystems(ctx context.Context, opts ...ListOption) ([]SpacedRepetitionSystem, bool, error) {
	col, err := c.collect(ctx, "/spaced_repetition_systems", KindSpacedRepetitionSystems, nil, opts)
	if err != nil {
		return nil, false, err
	}
	systems, err := unmarshalItems[SpacedRepetitionSystem](col.Items)
	if err != nil {
		return nil, false, err
	}
	return systems, col.FromCache, nil
}

// GetReviews fetches the immutable review history. Entries never expire by
// time; use WithUpdatedAfter for incremental sync.
func (c *Client) GetReviews(ctx context.Context, opts ...ListOption) ([]Review, bool, error) {
	col, err := c.collect(ctx, "/reviews", KindReviews, nil, opts)
	if err != nil {
		return nil, false, err
	}
	reviews, err := unmarshalItems[Review](col.Items)
	if err != nil {
		return nil, false, err
	}
	return reviews, col.FromCache, nil
}

// ClearAccountCache drops every cached entry and sync marker belonging to
// this client's token.
func (c *Client) ClearAccountCache() {
	c.cache.ClearSuffix("-" + c.tokenSuffix())
}

// ClearAllCache drops every cached entry in the store, including other
// accounts sharing it.
func (c *Client) ClearAllCache() {
	c.cache.Clear()
}

// CacheStatistics reports entry count, total bytes and the oldest-accessed
// timestamp.
func (c *Client) CacheStatistics() CacheStats {
	stats := c.cache.Stats()
	c.metrics.RecordCacheSize(stats.TotalBytes)
	return stats
}

// HasFreshCache reports whether an unexpired entry exists for the resource
// kind's base endpoint.
func (c *Client) HasFreshCache(kind ResourceKind) bool {
	_, ok := c.cache.Get(c.cacheKeyForURL(c.baseURL + endpointFor(kind)))
	return ok
}

// Stale returns the cached payload for the kind's base endpoint regardless of
// expiry and without touching the network, supporting stale-while-revalidate
// display. For collections this is the first page.
func (c *Client) Stale(kind ResourceKind) (json.RawMessage, bool) {
	entry, ok := c.cache.GetStale(c.cacheKeyForURL(c.baseURL + endpointFor(kind)))
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// LastSync returns the persisted incremental-sync marker for kind, an
// ISO-8601 timestamp string.
func (c *Client) LastSync(kind ResourceKind) (string, bool) {
	raw, ok, err := c.store.Read(c.syncKey(kind))
	if err != nil || !ok {
		return "", false
	}
	return string(raw), true
}

// SetLastSync overwrites the incremental-sync marker for kind.
func (c *Client) SetLastSync(kind ResourceKind, timestamp string) {
	_ = c.store.Write(c.syncKey(kind), []byte(timestamp))
}

// collect walks a list endpoint and records the sync marker after a
// successful network-fresh fetch.
func (c *Client) collect(ctx context.Context, endpoint string, kind ResourceKind, trim func([]byte) []byte, opts []ListOption) (*collection, error) {
	query := &listQuery{}
	for _, opt := range opts {
		opt(query)
	}

	u := c.baseURL + endpoint
	if len(query.levels) > 0 {
		levels := make([]string, len(query.levels))
		for i, level := range query.levels {
			levels[i] = strconv.Itoa(level)
		}
		u += "?levels=" + strings.Join(levels, ",")
	}

	walker := &PaginationWalker{
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			return c.fetchURL(ctx, pageURL, kind, trim)
		},
		delay:  c.pageDelay,
		logger: c.logger,
		debug:  c.debug,
	}

	col, err := walker.CollectAll(ctx, u, query.updatedAfter)
	if err != nil {
		return nil, err
	}

	if !col.FromCache && col.DataUpdatedAt != "" {
		c.SetLastSync(kind, col.DataUpdatedAt)
	}
	return col, nil
}

// fetchURL is the single-request path every fetch funnels through: fresh
// cache check, in-flight join, scheduler admission, retrying transport.
func (c *Client) fetchURL(ctx context.Context, rawURL string, kind ResourceKind, trim func([]byte) []byte) (*fetchOutcome, error) {
	endpoint := c.endpointLabel(rawURL)
	key := c.cacheKeyForURL(rawURL)
	start := c.now()

	stale, ok := c.cache.GetStale(key)
	if ok && stale.Fresh(c.now()) {
		c.metrics.RecordCacheHit(endpoint)
		if c.debugEnabled() && c.debug.LogCache {
			c.logger.Debug("Cache hit", "endpoint", endpoint, "key", key)
		}
		return &fetchOutcome{Body: stale.Data, FromCache: true}, nil
	}
	c.metrics.RecordCacheMiss(endpoint)

	spec := &fetchSpec{
		URL:         rawURL,
		Endpoint:    endpoint,
		CacheKey:    key,
		TTL:         c.ttls[kind],
		Conditional: ok,
		Trim:        trim,
	}

	out, _, err := c.inflight.Do(key, func() (*fetchOutcome, error) {
		return c.scheduler.Do(func() (*fetchOutcome, error) {
			return c.transport.Execute(ctx, spec, stale)
		})
	})

	duration := c.now().Sub(start)
	if err != nil {
		var clientErr *ClientError
		errType := ErrorTypeNetwork
		status := 0
		if errors.As(err, &clientErr) {
			errType = clientErr.Type
			status = clientErr.StatusCode
		}
		c.metrics.RecordError(errType, endpoint)
		c.metrics.RecordRequest(endpoint, status, duration)
		return nil, err
	}

	status := http.StatusOK
	if out.FromCache {
		status = http.StatusNotModified
	}
	c.metrics.RecordRequest(endpoint, status, duration)
	return out, nil
}

// cacheKeyForURL derives the storage key for a request URL. Keys embed a
// sanitized endpoint and the last 8 characters of the token so distinct
// accounts sharing one store never collide and one account's keys share a
// clearable suffix.
func (c *Client) cacheKeyForURL(rawURL string) string {
	return cacheKeyPrefix + "-" + sanitizeEndpoint(c.endpointLabel(rawURL)) + "-" + c.tokenSuffix()
}

func (c *Client) syncKey(kind ResourceKind) string {
	return cacheKeyPrefix + "-last-sync-" + string(kind) + "-" + c.tokenSuffix()
}

func (c *Client) tokenSuffix() string {
	if len(c.token) <= 8 {
		return c.token
	}
	return c.token[len(c.token)-8:]
}

func (c *Client) endpointLabel(rawURL string) string {
	endpoint := strings.TrimPrefix(rawURL, c.baseURL)
	if endpoint == "" {
		endpoint = "/"
	}
	return endpoint
}

func sanitizeEndpoint(endpoint string) string {
	var b strings.Builder
	b.Grow(len(endpoint))
	for _, r := range endpoint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func endpointFor(kind ResourceKind) string {
	switch kind {
	case KindUser:
		return "/user"
	case KindSummary:
		return "/summary"
	default:
		return "/" + string(kind)
	}
}

func (c *Client) decodeError(what string, err error) error {
	return &ClientError{
		Type:    ErrorTypeAPI,
		Message: "decoding " + what + " failed",
		Cause:   err,
	}
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

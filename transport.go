package wanikache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ambiyansyah-risyal/wanikache/internal/backoff"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.wanikani.com/v2"

	// APIRevision pins the API revision every request declares.
	APIRevision = "20170710"
)

// fetchOutcome is the result of one logical fetch: the response body (or the
// cached equivalent) plus whether it was served from cache.
type fetchOutcome struct {
	Body      []byte
	FromCache bool
}

// fetchSpec describes one cacheable GET.
type fetchSpec struct {
	URL         string
	Endpoint    string
	CacheKey    string
	TTL         time.Duration
	Conditional bool
	// Trim, when set, reduces the payload before it is written to cache. The
	// caller still receives the untrimmed body.
	Trim func([]byte) []byte
}

// retryingTransport issues single authenticated GETs with conditional-GET
// headers, classifies responses and retries transient failures with
// exponential backoff. When every attempt fails and a stale cached entry
// exists, the stale value is returned instead of the error.
type retryingTransport struct {
	httpClient *http.Client
	token      string
	revision   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	cache      *CacheStore
	metrics    *MetricsCollector
	logger     Logger
	debug      *DebugConfig
	now        func() time.Time
}

// Execute performs the fetch described by spec. stale is the cached entry for
// the same key, expired or not, used for conditional headers and fallback.
func (t *retryingTransport) Execute(ctx context.Context, spec *fetchSpec, stale *CacheEntry) (*fetchOutcome, error) {
	var lastErr error

attempts:
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			t.metrics.RecordRetry(spec.Endpoint, attempt)
			if t.debugEnabled() && t.debug.LogRetries {
				t.logger.Info("Retry attempt", "endpoint", spec.Endpoint, "attempt", attempt, "maxRetries", t.maxRetries)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
		if err != nil {
			return nil, &ClientError{
				Type:     ErrorTypeValidation,
				Message:  "building request failed",
				Endpoint: spec.Endpoint,
				Cause:    err,
			}
		}
		req.Header.Set("Authorization", "Bearer "+t.token)
		req.Header.Set("Wanikani-Revision", t.revision)
		if spec.Conditional && stale != nil {
			if stale.ETag != "" {
				req.Header.Set("If-None-Match", stale.ETag)
			} else if stale.LastModified != "" {
				req.Header.Set("If-Modified-Since", stale.LastModified)
			}
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			lastErr = t.newError(ErrorTypeNetwork, "network request failed", 0, spec.Endpoint, attempt, err)
			if ctx.Err() != nil {
				break attempts
			}
			if attempt < t.maxRetries {
				if t.wait(ctx, t.backoffDelay(attempt)) != nil {
					break attempts
				}
				continue
			}
			break attempts
		}

		switch {
		case resp.StatusCode == http.StatusNotModified:
			drain(resp)
			if stale == nil {
				lastErr = t.newError(ErrorTypeAPI, "304 without a cached entry", resp.StatusCode, spec.Endpoint, attempt, nil)
				break attempts
			}
			t.refreshEntry(spec, stale, resp)
			return &fetchOutcome{Body: stale.Data, FromCache: true}, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := backoff.ParseRetryAfter(resp.Header.Get("Retry-After"))
			drain(resp)
			lastErr = t.newError(ErrorTypeRateLimit, "rate limited by remote", resp.StatusCode, spec.Endpoint, attempt, nil)

			if attempt < t.maxRetries {
				delay := retryAfter
				if delay == 0 {
					delay = t.backoffDelay(attempt)
				}
				if t.debugEnabled() && t.debug.LogRetries {
					t.logger.Warn("Rate limited, backing off", "endpoint", spec.Endpoint, "delay", delay)
				}
				if t.wait(ctx, delay) != nil {
					break attempts
				}
				continue
			}
			break attempts

		case resp.StatusCode == http.StatusUnauthorized:
			drain(resp)
			return nil, t.newError(ErrorTypeAuth, "invalid or revoked API token", resp.StatusCode, spec.Endpoint, attempt, nil)

		case resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return nil, t.newError(ErrorTypeForbidden, "access forbidden for this subscription", resp.StatusCode, spec.Endpoint, attempt, nil)

		case resp.StatusCode >= 500:
			drain(resp)
			lastErr = t.newError(ErrorTypeServer, "server error", resp.StatusCode, spec.Endpoint, attempt, nil)
			if attempt < t.maxRetries {
				if t.wait(ctx, t.backoffDelay(attempt)) != nil {
					break attempts
				}
				continue
			}
			break attempts

		case resp.StatusCode >= 300:
			drain(resp)
			lastErr = t.newError(ErrorTypeAPI, "unexpected API response", resp.StatusCode, spec.Endpoint, attempt, nil)
			break attempts

		default:
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				lastErr = t.newError(ErrorTypeNetwork, "reading response body failed", resp.StatusCode, spec.Endpoint, attempt, err)
				if attempt < t.maxRetries {
					if t.wait(ctx, t.backoffDelay(attempt)) != nil {
						break attempts
					}
					continue
				}
				break attempts
			}

			t.storeEntry(spec, body, resp)
			return &fetchOutcome{Body: body, FromCache: false}, nil
		}
	}

	if stale != nil {
		t.metrics.RecordStaleFallback(spec.Endpoint)
		if t.debugEnabled() && t.debug.LogCache {
			t.logger.Warn("Falling back to stale cache", "endpoint", spec.Endpoint, "error", fmt.Sprint(lastErr))
		}
		return &fetchOutcome{Body: stale.Data, FromCache: true}, nil
	}

	return nil, lastErr
}

// storeEntry writes a fresh cache entry for a 2xx response.
func (t *retryingTransport) storeEntry(spec *fetchSpec, body []byte, resp *http.Response) {
	nowMs := t.now().UnixMilli()

	data := body
	if spec.Trim != nil {
		data = spec.Trim(body)
	}

	entry := &CacheEntry{
		Data:         data,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Timestamp:    nowMs,
		LastAccessed: nowMs,
	}
	if spec.TTL > 0 {
		entry.ExpiresAt = nowMs + spec.TTL.Milliseconds()
	}

	t.cache.Set(spec.CacheKey, entry)
}

// refreshEntry extends a revalidated entry's freshness window after a 304.
func (t *retryingTransport) refreshEntry(spec *fetchSpec, stale *CacheEntry, resp *http.Response) {
	nowMs := t.now().UnixMilli()
	stale.Timestamp = nowMs
	stale.LastAccessed = nowMs
	if stale.ExpiresAt != 0 || spec.TTL > 0 {
		stale.ExpiresAt = 0
		if spec.TTL > 0 {
			stale.ExpiresAt = nowMs + spec.TTL.Milliseconds()
		}
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		stale.ETag = etag
	}
	t.cache.Set(spec.CacheKey, stale)
}

func (t *retryingTransport) backoffDelay(attempt int) time.Duration {
	return backoff.Delay(attempt, t.baseDelay, t.maxDelay, t.multiplier)
}

// wait sleeps for d or until ctx is done.
func (t *retryingTransport) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *retryingTransport) newError(errType, message string, status int, endpoint string, attempt int, cause error) *ClientError {
	return &ClientError{
		Type:       errType,
		Message:    message,
		StatusCode: status,
		Endpoint:   endpoint,
		Attempt:    attempt,
		MaxRetries: t.maxRetries,
		Timestamp:  t.now(),
		Cause:      cause,
	}
}

func (t *retryingTransport) debugEnabled() bool {
	return t.debug != nil && t.debug.Enabled && t.logger != nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

package wanikache

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// pageDelay paces successive page fetches that actually hit the network.
const pageDelay = 100 * time.Millisecond

// collectionEnvelope is the wire shape of every list endpoint response.
type collectionEnvelope struct {
	Object        string          `json:"object"`
	DataUpdatedAt string          `json:"data_updated_at"`
	Pages         *pageInfo       `json:"pages"`
	Data          json.RawMessage `json:"data"`
}

type pageInfo struct {
	PerPage     int    `json:"per_page"`
	NextURL     string `json:"next_url"`
	PreviousURL string `json:"previous_url"`
}

// collection is a fully assembled multi-page result.
type collection struct {
	Items         []json.RawMessage
	FromCache     bool
	DataUpdatedAt string
}

// fetchPageFunc fetches one page URL through the cache, dedup, scheduler and
// transport layers.
type fetchPageFunc func(ctx context.Context, pageURL string) (*fetchOutcome, error)

// PaginationWalker follows a chain of next_url links until a collection is
// fully retrieved.
type PaginationWalker struct {
	fetch  fetchPageFunc
	delay  time.Duration
	logger Logger
	debug  *DebugConfig
}

// CollectAll walks every page starting at endpoint, optionally scoped by an
// updated_after filter, and returns the concatenated data arrays in page
// order. FromCache is true when any page was served from cache. A short fixed
// delay separates successive network-served pages to avoid bursting the
// remote rate limit.
func (w *PaginationWalker) CollectAll(ctx context.Context, endpoint, updatedAfter string) (*collection, error) {
	pageURL := endpoint
	if updatedAfter != "" {
		sep := "?"
		if u, err := url.Parse(endpoint); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		pageURL = endpoint + sep + "updated_after=" + url.QueryEscape(updatedAfter)
	}

	result := &collection{}
	lastFromNetwork := false

	for pageURL != "" {
		if lastFromNetwork {
			timer := time.NewTimer(w.delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		outcome, err := w.fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		var envelope collectionEnvelope
		if err := json.Unmarshal(outcome.Body, &envelope); err != nil {
			return nil, &ClientError{
				Type:    ErrorTypeAPI,
				Message: "decoding collection page failed",
				Cause:   err,
			}
		}

		var items []json.RawMessage
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &items); err != nil {
				return nil, &ClientError{
					Type:    ErrorTypeAPI,
					Message: "decoding collection items failed",
					Cause:   err,
				}
			}
		}
		result.Items = append(result.Items, items...)
		if envelope.DataUpdatedAt != "" {
			result.DataUpdatedAt = envelope.DataUpdatedAt
		}
		if outcome.FromCache {
			result.FromCache = true
		}
		lastFromNetwork = !outcome.FromCache

		if w.debug != nil && w.debug.Enabled && w.debug.LogRequests && w.logger != nil {
			w.logger.Debug("Collected page", "url", pageURL, "items", len(items), "fromCache", outcome.FromCache)
		}

		pageURL = ""
		if envelope.Pages != nil {
			pageURL = envelope.Pages.NextURL
		}
	}

	return result, nil
}

// Package wanikache is a client-side data-access layer for the WaniKani REST
// API, built for study-progress dashboards that must respect a strict remote
// rate limit and keep working offline:
//
//   - Persistent TTL + LRU cache over a pluggable key/value Store
//   - Bounded-concurrency FIFO request scheduler
//   - In-flight request de-duplication (concurrent callers share one fetch)
//   - Conditional GETs (ETag / If-Modified-Since) with exponential-backoff
//     retries and stale-cache fallback
//   - Pagination walker assembling full collections across next_url chains
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - One Client per account/session, constructed explicitly, no globals
//   - Typed errors (auth, forbidden, rate limit) instead of raw status codes
//   - Failures with a usable cached value are swallowed; callers get the
//     stale data and a fromCache flag instead of an error
//
// Typical usage:
//
//	store, _ := wanikache.OpenBoltStore("wk.db", 50<<20)
//	client := wanikache.New(token,
//	    wanikache.WithStore(store),
//	    wanikache.WithMetrics(),
//	)
//	subjects, fromCache, err := client.GetSubjects(ctx)
//
// The package fetches, caches and returns raw resource records by collection
// name; interpreting domain semantics is left to the caller.
package wanikache

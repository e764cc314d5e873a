package wanikache

import (
	"golang.org/x/sync/singleflight"
)

// InflightRegistry coalesces concurrent fetches of the same logical key into
// one network call. All joined callers observe the same outcome, success or
// error. Entries are ephemeral and removed as soon as the owning fetch
// completes.
type InflightRegistry struct {
	group   singleflight.Group
	metrics *MetricsCollector
}

// NewInflightRegistry returns an empty registry.
func NewInflightRegistry() *InflightRegistry {
	return &InflightRegistry{}
}

// Do runs fn for key unless a fetch for the same key is already in flight, in
// which case the caller joins it. The shared return reports whether the
// outcome was shared with other callers.
func (r *InflightRegistry) Do(key string, fn func() (*fetchOutcome, error)) (*fetchOutcome, bool, error) {
	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if shared {
		r.metrics.RecordInflightMerge()
	}

	out, _ := v.(*fetchOutcome)
	return out, shared, err
}

// Forget drops any in-flight record for key so the next caller starts a fresh
// fetch. Used by tests and cache clearing.
func (r *InflightRegistry) Forget(key string) {
	r.group.Forget(key)
}

package wanikache

import (
	"encoding/json"
	"time"
)

// ResourceKind identifies one cached resource family served by the API.
type ResourceKind string

const (
	KindUser                    ResourceKind = "user"
	KindSubjects                ResourceKind = "subjects"
	KindAssignments             ResourceKind = "assignments"
	KindReviewStatistics        ResourceKind = "review_statistics"
	KindReviews                 ResourceKind = "reviews"
	KindSummary                 ResourceKind = "summary"
	KindLevelProgressions       ResourceKind = "level_progressions"
	KindSpacedRepetitionSystems ResourceKind = "spaced_repetition_systems"
)

// defaultTTLs is the static freshness policy per resource kind. A zero
// duration means the entry never expires by time (immutable resources).
var defaultTTLs = map[ResourceKind]time.Duration{
	KindUser:                    time.Hour,
	KindSubjects:                24 * time.Hour,
	KindAssignments:             30 * time.Minute,
	KindReviewStatistics:        30 * time.Minute,
	KindReviews:                 0,
	KindSummary:                 time.Hour,
	KindLevelProgressions:       4 * time.Hour,
	KindSpacedRepetitionSystems: 48 * time.Hour,
}

// CacheEntry is the persisted cache unit. Timestamps are Unix milliseconds to
// match the stored wire format. ExpiresAt of zero means the entry never
// expires by elapsed time; LastAccessed orders LRU eviction and is never
// consulted for expiry.
type CacheEntry struct {
	Data         json.RawMessage `json:"data"`
	ETag         string          `json:"etag,omitempty"`
	LastModified string          `json:"lastModified,omitempty"`
	Timestamp    int64           `json:"timestamp"`
	ExpiresAt    int64           `json:"expiresAt,omitempty"`
	LastAccessed int64           `json:"lastAccessed"`
}

// Fresh reports whether the entry is still valid at the given instant.
func (e *CacheEntry) Fresh(now time.Time) bool {
	if e == nil {
		return false
	}
	return e.ExpiresAt == 0 || now.UnixMilli() < e.ExpiresAt
}

// Store is the raw key/value medium underneath CacheStore. Implementations
// serialize individual operations but provide no cross-call atomicity; the
// policy layer owns locking around compound eviction sequences. Write returns
// ErrQuotaExceeded when the medium cannot hold the value.
type Store interface {
	Read(key string) ([]byte, bool, error)
	Write(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Clear() error
}

// CacheStats summarizes the state of a CacheStore for maintenance surfaces.
type CacheStats struct {
	Entries      int
	TotalBytes   int64
	OldestAccess time.Time
}

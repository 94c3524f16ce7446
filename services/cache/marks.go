package cache

import (
	"errors"
	"time"

	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/bradfitz/gomemcache/memcache"
)

const markPrefix = "extracted:"

// ExtractionMarks remembers which stories were extracted recently so a
// re-run can skip them
type ExtractionMarks struct {
	cache CacheService
	ttl   time.Duration
}

// NewExtractionMarks creates marks that expire after ttl
func NewExtractionMarks(cache CacheService, ttl time.Duration) *ExtractionMarks {
	return &ExtractionMarks{cache: cache, ttl: ttl}
}

// Extracted reports whether id carries a live mark. A miss is (false, nil).
func (m *ExtractionMarks) Extracted(id string) (bool, error) {
	_, err := m.cache.Get(markPrefix + id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	return false, crawlerrors.NewCache(id, "failed to read extraction mark", err)
}

// Mark records id as extracted now
func (m *ExtractionMarks) Mark(id string) error {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	if err := m.cache.Set(markPrefix+id, stamp, m.ttl); err != nil {
		return crawlerrors.NewCache(id, "failed to write extraction mark", err)
	}
	return nil
}

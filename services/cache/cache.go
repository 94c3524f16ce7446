package cache

import (
	"time"
)

// CacheService represents a generic key/value cache. Get reports absent
// keys with memcache.ErrCacheMiss.
type CacheService interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
}

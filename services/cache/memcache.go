package cache

import (
	"time"

	crawlerrors "sjsage522/storyworker/pkg/errors"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcacheTimeout = 2 * time.Second

// MemcacheService implements CacheService on a memcached server. Keys are
// stored under namespace so several workers can share one server.
type MemcacheService struct {
	client    *memcache.Client
	namespace string
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr, namespace string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = memcacheTimeout
	return &MemcacheService{client: client, namespace: namespace}
}

// Ping checks that the server is reachable
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return crawlerrors.NewCache(m.namespace, "memcache unreachable", err)
	}
	return nil
}

// Get returns the value for key or memcache.ErrCacheMiss
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.namespace + key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores value for at most expiration, rounded down to whole seconds
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        m.namespace + key,
		Value:      value,
		Expiration: int32(expiration / time.Second),
	})
}

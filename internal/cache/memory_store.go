package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Capacity is the maximum number of entries before sturdyc evicts.
	Capacity int
	// NumShards splits the keyspace for concurrent access. Default: 64
	NumShards int
	// MaxTTL bounds every entry. Entries asking for longer live at most MaxTTL.
	MaxTTL time.Duration
	// EvictionPercentage is the share of entries dropped when Capacity is reached. Default: 10
	EvictionPercentage int
	// Now overrides the clock used for per-entry expiry.
	Now func() time.Time
}

// ConfigError represents an invalid store configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in a sharded sturdyc client. sturdyc only knows a client-wide
// TTL, so each entry carries its own deadline which is checked on read.
type MemoryStore struct {
	client *sturdyc.Client[memoryEntry]
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore validates cfg and builds the store.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if cfg.NumShards == 0 {
		cfg.NumShards = 64
	}
	if cfg.EvictionPercentage == 0 {
		cfg.EvictionPercentage = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Capacity <= 0 {
		return nil, &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if cfg.NumShards < 0 {
		return nil, &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if cfg.MaxTTL <= 0 {
		return nil, &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if cfg.EvictionPercentage < 1 || cfg.EvictionPercentage > 100 {
		return nil, &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	client := sturdyc.New[memoryEntry](cfg.Capacity, cfg.NumShards, cfg.MaxTTL, cfg.EvictionPercentage)
	return &MemoryStore{client: client, now: cfg.Now}, nil
}

// Get returns a copy of the stored value, or ErrCacheMiss once the entry's TTL has passed.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !s.now().Before(e.expiresAt) {
		s.client.Delete(key)
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value until ttl elapses.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return &ConfigError{Field: "ttl", Message: "must be greater than 0"}
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.client.Set(key, memoryEntry{value: v, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete removes key and reports whether a live entry was present.
func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	e, ok := s.client.Get(key)
	s.client.Delete(key)
	return ok && s.now().Before(e.expiresAt), nil
}

package runstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultMemoryTTL     = time.Hour
	defaultCleanupPeriod = 10 * time.Minute
)

// MemoryStore keeps records in process with an expiry.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore keeps records for ttl; ttl <= 0 keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl == 0 {
		ttl = defaultMemoryTTL
	}
	if ttl < 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStore{cache: cache.New(ttl, defaultCleanupPeriod)}
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	rec, err := normalizeRecord(rec)
	if err != nil {
		return err
	}
	s.cache.Set(rec.RequestID(), rec, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, requestID string) (Record, error) {
	if err := checkRequestID(requestID); err != nil {
		return Record{}, err
	}
	v, ok := s.cache.Get(requestID)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return v.(Record), nil
}

func (s *MemoryStore) Delete(ctx context.Context, requestID string) error {
	if err := checkRequestID(requestID); err != nil {
		return err
	}
	s.cache.Delete(requestID)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore keeps records in process memory. Results are immutable, so
// records share the saved *allocation.Result.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
	closed  bool
	logger  *zap.Logger
}

// NewMemoryStore creates an empty store. A positive ttl expires records that
// have not been saved for that long.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		records: make(map[string]Record),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "memory_result_store")),
	}
}

func (s *MemoryStore) expired(rec Record) bool {
	return s.ttl > 0 && s.now().Sub(rec.UpdatedAt) > s.ttl
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	rec.UpdatedAt = s.now()
	s.records[rec.Key] = rec
	s.logger.Debug("result saved", zap.String("key", rec.Key), zap.String("owner", rec.Owner))
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}
	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return Record{}, notFound(key)
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	rec, ok := s.records[key]
	if !ok {
		return false, nil
	}
	delete(s.records, key)
	return !s.expired(rec), nil
}

func (s *MemoryStore) Keys(ctx context.Context, owner string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.records))
	for k, rec := range s.records {
		if s.expired(rec) || (owner != "" && rec.Owner != owner) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	keys, _ := s.Keys(context.Background(), "")
	return len(keys)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close drops every record. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

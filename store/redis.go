package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/internal/cache"
)

// DefaultKeyPrefix namespaces every Redis key the store writes.
const DefaultKeyPrefix = "planflow:results:"

// redisEnvelope is the JSON value stored under each result key.
type redisEnvelope struct {
	Owner     string               `json:"owner,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
	Document  *allocation.Document `json:"document"`
}

// RedisStore persists records as JSON values through the cache manager and
// indexes keys in Redis sets, one for all records and one per owner.
type RedisStore struct {
	cache  *cache.Manager
	prefix string
	ttl    time.Duration
	owns   bool
	logger *zap.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires records that are not saved again within ttl.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithOwnedCache makes Close also close the cache manager.
func WithOwnedCache() RedisOption {
	return func(s *RedisStore) { s.owns = true }
}

// NewRedisStore creates a store on top of an initialized cache manager.
func NewRedisStore(m *cache.Manager, logger *zap.Logger, opts ...RedisOption) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RedisStore{
		cache:  m,
		prefix: DefaultKeyPrefix,
		logger: logger.With(zap.String("component", "redis_result_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) resultKey(key string) string  { return s.prefix + "result:" + key }
func (s *RedisStore) allKey() string               { return s.prefix + "index" }
func (s *RedisStore) ownerKey(owner string) string { return s.prefix + "owner:" + owner }

func (s *RedisStore) wrap(op string, err error) error {
	if errors.Is(err, cache.ErrClosed) {
		return ErrClosed
	}
	return storeFailure(op, err)
}

func (s *RedisStore) envelope(ctx context.Context, key string) (*redisEnvelope, error) {
	var env redisEnvelope
	if err := s.cache.GetJSON(ctx, s.resultKey(key), &env); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, notFound(key)
		}
		return nil, s.wrap("load", err)
	}
	return &env, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	// 所有者变化时从旧索引中移除
	if prev, err := s.envelope(ctx, rec.Key); err == nil && prev.Owner != "" && prev.Owner != rec.Owner {
		if err := s.cache.RemoveMembers(ctx, s.ownerKey(prev.Owner), rec.Key); err != nil {
			return s.wrap("save", err)
		}
	}

	env := redisEnvelope{
		Owner:     rec.Owner,
		UpdatedAt: time.Now().UTC(),
		Document:  rec.Result.ToDocument(),
	}
	if err := s.cache.SetJSON(ctx, s.resultKey(rec.Key), env, s.ttl); err != nil {
		return s.wrap("save", err)
	}
	if err := s.cache.AddMembers(ctx, s.allKey(), rec.Key); err != nil {
		return s.wrap("save", err)
	}
	if rec.Owner != "" {
		if err := s.cache.AddMembers(ctx, s.ownerKey(rec.Owner), rec.Key); err != nil {
			return s.wrap("save", err)
		}
	}

	s.logger.Debug("result saved", zap.String("key", rec.Key), zap.String("owner", rec.Owner))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	env, err := s.envelope(ctx, key)
	if err != nil {
		return Record{}, err
	}
	if env.Document == nil {
		return Record{}, storeFailure("load", errors.New("stored envelope has no document"))
	}
	r, err := env.Document.Result()
	if err != nil {
		return Record{}, err
	}
	return Record{Key: key, Owner: env.Owner, Result: r, UpdatedAt: env.UpdatedAt}, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	env, err := s.envelope(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		// 过期键可能仍在索引中
		if err := s.cache.RemoveMembers(ctx, s.allKey(), key); err != nil {
			return false, s.wrap("delete", err)
		}
		return false, nil
	case err != nil:
		return false, err
	}

	n, err := s.cache.Delete(ctx, s.resultKey(key))
	if err != nil {
		return false, s.wrap("delete", err)
	}
	if err := s.cache.RemoveMembers(ctx, s.allKey(), key); err != nil {
		return false, s.wrap("delete", err)
	}
	if env.Owner != "" {
		if err := s.cache.RemoveMembers(ctx, s.ownerKey(env.Owner), key); err != nil {
			return false, s.wrap("delete", err)
		}
	}
	return n > 0, nil
}

// Keys lists indexed keys, pruning index entries whose value has expired.
func (s *RedisStore) Keys(ctx context.Context, owner string) ([]string, error) {
	index := s.allKey()
	if owner != "" {
		index = s.ownerKey(owner)
	}
	members, err := s.cache.Members(ctx, index)
	if err != nil {
		return nil, s.wrap("keys", err)
	}

	keys := make([]string, 0, len(members))
	var stale []string
	for _, k := range members {
		n, err := s.cache.Exists(ctx, s.resultKey(k))
		if err != nil {
			return nil, s.wrap("keys", err)
		}
		if n == 0 {
			stale = append(stale, k)
			continue
		}
		keys = append(keys, k)
	}
	if len(stale) > 0 {
		if err := s.cache.RemoveMembers(ctx, index, stale...); err != nil {
			s.logger.Warn("failed to prune stale index entries", zap.Int("count", len(stale)), zap.Error(err))
		}
	}

	slices.Sort(keys)
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.cache.Ping(ctx); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

// Close closes the cache manager when the store owns it.
func (s *RedisStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.cache.Close()
}

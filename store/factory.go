package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/planflow/config"
	"github.com/BaSui01/planflow/internal/cache"
	"github.com/BaSui01/planflow/internal/database"
)

// =============================================================================
// 🏭 存储工厂
// =============================================================================

// Open builds the ResultStore selected by cfg.Store.Driver. The returned
// store owns its connections; Close releases them.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ResultStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := Driver(strings.ToLower(cfg.Store.Driver))
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(cfg.Store.TTL, logger), nil

	case DriverRedis:
		m, err := cache.NewManager(ctx, CacheConfig(cfg.Redis), logger)
		if err != nil {
			return nil, storeFailure("open", err)
		}
		return NewRedisStore(m, logger,
			WithKeyPrefix(cfg.Store.KeyPrefix),
			WithTTL(cfg.Store.TTL),
			WithOwnedCache(),
		), nil

	case DriverSQL:
		return openSQL(ctx, cfg.Database, logger)

	case DriverMongo:
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: memory, redis, sql, mongo)", cfg.Store.Driver)
	}
}

func openSQL(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	db, err := database.Open(dbCfg.Driver, dbCfg.DSN(), logger)
	if err != nil {
		return nil, storeFailure("open", err)
	}
	pool, err := database.NewPoolManager(db, PoolConfig(dbCfg), logger)
	if err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, storeFailure("open", err)
	}

	s := NewSQLStore(pool, logger, WithOwnedPool())
	if dbCfg.AutoMigrate {
		if err := s.AutoMigrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// CacheConfig converts the redis section of the application config.
func CacheConfig(c config.RedisConfig) cache.Config {
	out := cache.DefaultConfig()
	out.Addr = c.Addr
	out.Password = c.Password
	out.DB = c.DB
	if c.PoolSize > 0 {
		out.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		out.MinIdleConns = c.MinIdleConns
	}
	out.HealthCheckInterval = c.HealthCheckInterval
	return out
}

// PoolConfig converts the database section of the application config.
func PoolConfig(c config.DatabaseConfig) database.PoolConfig {
	out := database.DefaultPoolConfig()
	if c.MaxOpenConns > 0 {
		out.MaxOpenConns = c.MaxOpenConns
	}
	if c.MaxIdleConns > 0 {
		out.MaxIdleConns = c.MaxIdleConns
	}
	if out.MaxIdleConns > out.MaxOpenConns {
		out.MaxIdleConns = out.MaxOpenConns
	}
	if c.ConnMaxLifetime > 0 {
		out.ConnMaxLifetime = c.ConnMaxLifetime
	}
	return out
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/internal/database"
)

// resultRow maps the allocation_results table created by internal/migration.
type resultRow struct {
	ResultKey  string    `gorm:"column:result_key;primaryKey;size:191"`
	OwnerID    string    `gorm:"column:owner_id;size:191;not null;default:'';index:idx_allocation_results_owner"`
	Success    bool      `gorm:"column:success;not null"`
	Confidence float64   `gorm:"column:confidence;not null"`
	DocVersion int       `gorm:"column:doc_version;not null"`
	PhaseCount int       `gorm:"column:phase_count;not null;default:0"`
	Document   string    `gorm:"column:document;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (resultRow) TableName() string { return "allocation_results" }

// sqlWriteRetries bounds retries of an upsert that hit a transient lock.
const sqlWriteRetries = 3

// SQLStore persists records in a relational database through gorm.
type SQLStore struct {
	pool   *database.PoolManager
	owns   bool
	logger *zap.Logger
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithOwnedPool makes Close also close the pool manager.
func WithOwnedPool() SQLOption {
	return func(s *SQLStore) { s.owns = true }
}

// NewSQLStore creates a store on an initialized pool. The schema must exist;
// see AutoMigrate and internal/migration.
func NewSQLStore(pool *database.PoolManager, logger *zap.Logger, opts ...SQLOption) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SQLStore{
		pool:   pool,
		logger: logger.With(zap.String("component", "sql_result_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates or updates the results table from the row model.
func (s *SQLStore) AutoMigrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&resultRow{}); err != nil {
		return storeFailure("migrate", err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	doc, err := allocation.Encode(rec.Result)
	if err != nil {
		return err
	}

	row := resultRow{
		ResultKey:  rec.Key,
		OwnerID:    rec.Owner,
		Success:    rec.Result.IsSuccess(),
		Confidence: float64(rec.Result.Confidence()),
		DocVersion: allocation.DocumentVersion,
		PhaseCount: rec.Result.PhaseCount(),
		Document:   string(doc),
	}
	err = s.pool.WithTransactionRetry(ctx, sqlWriteRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "result_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"owner_id", "success", "confidence", "doc_version", "phase_count", "document", "updated_at",
			}),
		}).Create(&row).Error
	})
	if err != nil {
		return s.wrap("save", err)
	}
	s.logger.Debug("result saved", zap.String("key", rec.Key), zap.String("owner", rec.Owner))
	return nil
}

func (s *SQLStore) Load(ctx context.Context, key string) (Record, error) {
	var row resultRow
	err := s.pool.DB().WithContext(ctx).Where("result_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, notFound(key)
	}
	if err != nil {
		return Record{}, s.wrap("load", err)
	}

	r, err := allocation.Decode([]byte(row.Document))
	if err != nil {
		return Record{}, err
	}
	return Record{Key: row.ResultKey, Owner: row.OwnerID, Result: r, UpdatedAt: row.UpdatedAt}, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) (bool, error) {
	res := s.pool.DB().WithContext(ctx).Where("result_key = ?", key).Delete(&resultRow{})
	if res.Error != nil {
		return false, s.wrap("delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) Keys(ctx context.Context, owner string) ([]string, error) {
	q := s.pool.DB().WithContext(ctx).Model(&resultRow{})
	if owner != "" {
		q = q.Where("owner_id = ?", owner)
	}
	var keys []string
	if err := q.Order("result_key").Pluck("result_key", &keys).Error; err != nil {
		return nil, s.wrap("keys", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return s.wrap("ping", err)
	}
	return nil
}

// Stats returns the connection pool statistics.
func (s *SQLStore) Stats() sql.DBStats {
	return s.pool.Stats()
}

// Close closes the pool when the store owns it.
func (s *SQLStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.pool.Close()
}

func (s *SQLStore) wrap(op string, err error) error {
	if errors.Is(err, database.ErrPoolClosed) {
		return ErrClosed
	}
	return storeFailure(op, err)
}

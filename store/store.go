package store

import (
	"context"
	"time"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/types"
)

// Driver names a ResultStore back end.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
	DriverSQL    Driver = "sql"
	DriverMongo  Driver = "mongo"
)

var (
	// ErrNotFound matches any NOT_FOUND error from a store.
	ErrNotFound = types.NewError(types.ErrNotFound, "result not found")
	// ErrClosed matches any operation on a closed store.
	ErrClosed = types.NewError(types.ErrStoreClosed, "result store is closed")
)

// Record is one persisted allocation result.
type Record struct {
	// Key identifies the record, usually the ID of the task the result
	// belongs to.
	Key string
	// Owner groups records, usually the ID of the workflow or composition
	// that produced them. May be empty.
	Owner     string
	Result    *allocation.Result
	UpdatedAt time.Time
}

// ResultStore persists allocation results. Stores treat results as opaque:
// what goes in through Save comes back Equal from Load.
type ResultStore interface {
	// Save inserts or replaces the record under rec.Key.
	Save(ctx context.Context, rec Record) error
	// Load returns the record or an error matching ErrNotFound.
	Load(ctx context.Context, key string) (Record, error)
	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists record keys in ascending order. An empty owner lists all.
	Keys(ctx context.Context, owner string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateRecord(rec Record) error {
	if rec.Key == "" {
		return types.NewError(types.ErrInvalidArgument, "record key is required")
	}
	if rec.Result == nil {
		return types.Errorf(types.ErrInvalidArgument, "record %q has no result", rec.Key)
	}
	return nil
}

func notFound(key string) error {
	return types.Errorf(types.ErrNotFound, "result %q not found", key)
}

func storeFailure(op string, err error) error {
	return types.Errorf(types.ErrStoreFailure, "result store %s failed", op).WithCause(err)
}

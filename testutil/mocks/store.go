// =============================================================================
// 💾 MockResultStore - 结果存储模拟实现
// =============================================================================
// 用于测试的 store.ResultStore 模拟，支持错误注入与调用计数
//
// 使用方法:
//
//	s := mocks.NewMockResultStore().WithSaveError(errors.New("down"))
//	planner, _ := agent.NewPlanner("a", board, agent.WithStore(s, "mock"))
// =============================================================================
package mocks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BaSui01/planflow/store"
	"github.com/BaSui01/planflow/types"
)

// MockResultStore 是结果存储的模拟实现
type MockResultStore struct {
	mu sync.Mutex

	records map[string]store.Record
	closed  bool

	// 错误注入
	saveErr   error
	loadErr   error
	deleteErr error
	pingErr   error

	// 调用记录
	saveCalls   int
	loadCalls   int
	deleteCalls int
}

var _ store.ResultStore = (*MockResultStore)(nil)

// NewMockResultStore 创建新的 MockResultStore
func NewMockResultStore() *MockResultStore {
	return &MockResultStore{records: make(map[string]store.Record)}
}

// WithSaveError 设置 Save 返回的错误
func (m *MockResultStore) WithSaveError(err error) *MockResultStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
	return m
}

// WithLoadError 设置 Load 返回的错误
func (m *MockResultStore) WithLoadError(err error) *MockResultStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
	return m
}

// WithDeleteError 设置 Delete 返回的错误
func (m *MockResultStore) WithDeleteError(err error) *MockResultStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
	return m
}

// WithPingError 设置 Ping 返回的错误
func (m *MockResultStore) WithPingError(err error) *MockResultStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
	return m
}

// =============================================================================
// 🎯 ResultStore 实现
// =============================================================================

func (m *MockResultStore) Save(_ context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.closed {
		return store.ErrClosed
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	if rec.Key == "" || rec.Result == nil {
		return types.NewError(types.ErrInvalidArgument, "record key and result are required")
	}
	rec.UpdatedAt = time.Now()
	m.records[rec.Key] = rec
	return nil
}

func (m *MockResultStore) Load(_ context.Context, key string) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	if m.closed {
		return store.Record{}, store.ErrClosed
	}
	if m.loadErr != nil {
		return store.Record{}, m.loadErr
	}
	rec, ok := m.records[key]
	if !ok {
		return store.Record{}, types.Errorf(types.ErrNotFound, "result %q not found", key)
	}
	return rec, nil
}

func (m *MockResultStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.closed {
		return false, store.ErrClosed
	}
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.records[key]
	delete(m.records, key)
	return ok, nil
}

func (m *MockResultStore) Keys(_ context.Context, owner string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, store.ErrClosed
	}
	keys := []string{}
	for k, rec := range m.records {
		if owner == "" || rec.Owner == owner {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *MockResultStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return store.ErrClosed
	}
	return m.pingErr
}

func (m *MockResultStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// =============================================================================
// 🔍 调用记录
// =============================================================================

// SaveCalls 返回 Save 调用次数
func (m *MockResultStore) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// LoadCalls 返回 Load 调用次数
func (m *MockResultStore) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// DeleteCalls 返回 Delete 调用次数
func (m *MockResultStore) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

// Len 返回保存的记录数
func (m *MockResultStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// =============================================================================
// 🗄️ MockRecordStore - 目录存储模拟实现
// =============================================================================
// 用于测试的 RecordStore 模拟，支持错误注入与调用计数
//
// 使用方法:
//
//	store := mocks.NewMockRecordStore(fixtures.Records()...)
//	store.WithGetError(discovery.ErrStoreUnavailable)
//	_, err := store.Get(ctx, "agent-1")
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentmarket/agent/discovery"
)

// =============================================================================
// 🎯 MockRecordStore 结构
// =============================================================================

// MockRecordStore 是 RecordStore 的模拟实现
type MockRecordStore struct {
	mu sync.Mutex

	inner *discovery.InMemoryStore

	// 错误注入
	queryErr  error
	getErr    error
	putErr    error
	deleteErr error

	// 调用记录
	queryCalls  int
	getCalls    int
	putCalls    int
	deleteCalls int
	lastQuery   *discovery.StoreQuery
}

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockRecordStore 创建预置记录的 MockRecordStore
func NewMockRecordStore(records ...*discovery.AgentRecord) *MockRecordStore {
	return &MockRecordStore{
		inner: discovery.NewInMemoryStore(records),
	}
}

// WithQueryError 设置 Query 返回的错误
func (m *MockRecordStore) WithQueryError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
	return m
}

// WithGetError 设置 Get 返回的错误
func (m *MockRecordStore) WithGetError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithPutError 设置 Put 返回的错误
func (m *MockRecordStore) WithPutError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
	return m
}

// WithDeleteError 设置 Delete 返回的错误
func (m *MockRecordStore) WithDeleteError(err error) *MockRecordStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
	return m
}

// =============================================================================
// 🎯 RecordStore 接口实现
// =============================================================================

func (m *MockRecordStore) Query(ctx context.Context, q *discovery.StoreQuery) ([]*discovery.AgentRecord, error) {
	m.mu.Lock()
	m.queryCalls++
	m.lastQuery = q
	err := m.queryErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.inner.Query(ctx, q)
}

func (m *MockRecordStore) Get(ctx context.Context, id string) (*discovery.AgentRecord, error) {
	m.mu.Lock()
	m.getCalls++
	err := m.getErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.inner.Get(ctx, id)
}

func (m *MockRecordStore) Put(ctx context.Context, rec *discovery.AgentRecord) error {
	m.mu.Lock()
	m.putCalls++
	err := m.putErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.inner.Put(ctx, rec)
}

func (m *MockRecordStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deleteCalls++
	err := m.deleteErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.inner.Delete(ctx, id)
}

func (m *MockRecordStore) Features() discovery.StoreFeatures {
	return m.inner.Features()
}

// =============================================================================
// 📊 调用统计
// =============================================================================

// QueryCalls 返回 Query 调用次数
func (m *MockRecordStore) QueryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// GetCalls 返回 Get 调用次数
func (m *MockRecordStore) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

// PutCalls 返回 Put 调用次数
func (m *MockRecordStore) PutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls
}

// DeleteCalls 返回 Delete 调用次数
func (m *MockRecordStore) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

// LastQuery 返回最近一次 Query 的参数
func (m *MockRecordStore) LastQuery() *discovery.StoreQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

var _ discovery.RecordStore = (*MockRecordStore)(nil)

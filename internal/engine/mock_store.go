package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Veraticus/panel-ledger/internal/common"
	"github.com/Veraticus/panel-ledger/internal/model"
)

// MockStore is an in-memory ActionWriter and ReclassifyStore for tests.
// Transactions are emulated by staging updates and applying them on success.
type MockStore struct {
	InsertErr   error
	FetchErr    error
	UpdateErr   error
	actions     []model.StoredAction
	hashes      map[string]int64
	fetchCalls  int
	txCount     int
	updateCalls int
	mu          sync.Mutex
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{hashes: make(map[string]int64)}
}

// Seed appends stored actions with sequential ids and returns them.
func (m *MockStore) Seed(records ...model.ActionRecord) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id := int64(len(m.actions) + 1)
		m.actions = append(m.actions, model.StoredAction{ActionRecord: rec, ID: id})
		m.hashes[rec.Hash()] = id
		ids = append(ids, id)
	}
	return ids
}

// InsertAction implements ActionWriter.
func (m *MockStore) InsertAction(_ context.Context, rec *model.ActionRecord) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return 0, false, m.InsertErr
	}
	if id, ok := m.hashes[rec.Hash()]; ok {
		return id, false, nil
	}

	id := int64(len(m.actions) + 1)
	m.actions = append(m.actions, model.StoredAction{ActionRecord: *rec, ID: id})
	m.hashes[rec.Hash()] = id
	return id, true, nil
}

// FetchRecordsByTypes implements ReclassifyStore.
func (m *MockStore) FetchRecordsByTypes(_ context.Context, types []model.ActionType, afterID int64, limit int) ([]model.StoredAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	var out []model.StoredAction
	for _, a := range m.actions {
		if a.ID <= afterID || !slices.Contains(types, a.ActionType) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// UpdateActionFields implements ReclassifyStore outside a transaction.
func (m *MockStore) UpdateActionFields(_ context.Context, id int64, rec *model.ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	return m.apply(map[int64]*model.ActionRecord{id: rec})
}

// WithTx implements ReclassifyStore. Updates made through the callback are
// discarded when it returns an error.
func (m *MockStore) WithTx(_ context.Context, fn func(ReclassifyStore) error) error {
	tx := &mockTx{parent: m, staged: make(map[int64]*model.ActionRecord)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	return m.apply(tx.staged)
}

func (m *MockStore) apply(updates map[int64]*model.ActionRecord) error {
	for id := range updates {
		if id <= 0 || int(id) > len(m.actions) {
			return fmt.Errorf("action %d: %w", id, common.ErrNotFound)
		}
	}
	for id, rec := range updates {
		m.updateCalls++
		stored := &m.actions[id-1]
		updated := *rec
		updated.RawText = stored.RawText
		updated.ObservedAt = stored.ObservedAt
		stored.ActionRecord = updated
	}
	return nil
}

// Get returns a copy of the stored action with id.
func (m *MockStore) Get(id int64) (model.StoredAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || int(id) > len(m.actions) {
		return model.StoredAction{}, false
	}
	return m.actions[id-1], true
}

// Len returns the number of stored actions.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

// Stats returns how many fetches, committed transactions and row updates ran.
func (m *MockStore) Stats() (fetches, txs, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls, m.txCount, m.updateCalls
}

type mockTx struct {
	parent *MockStore
	staged map[int64]*model.ActionRecord
}

func (t *mockTx) FetchRecordsByTypes(ctx context.Context, types []model.ActionType, afterID int64, limit int) ([]model.StoredAction, error) {
	return t.parent.FetchRecordsByTypes(ctx, types, afterID, limit)
}

func (t *mockTx) UpdateActionFields(_ context.Context, id int64, rec *model.ActionRecord) error {
	t.parent.mu.Lock()
	err := t.parent.UpdateErr
	t.parent.mu.Unlock()
	if err != nil {
		return err
	}
	t.staged[id] = rec
	return nil
}

func (t *mockTx) WithTx(_ context.Context, fn func(ReclassifyStore) error) error {
	return fn(t)
}

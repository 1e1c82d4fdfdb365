package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"loadtracker.app/internal/ids"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*Item
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Item)}
}

func (m *MemoryStore) CreateItem(_ context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = ids.New()
	m.items[item.ID] = &item
	return item, nil
}

func (m *MemoryStore) GetItem(_ context.Context, id string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return *it, nil
}

func (m *MemoryStore) ListItems(_ context.Context, page Page) ([]Item, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		all = append(all, *it)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MemoryStore) UpdateItem(_ context.Context, id string, upd Update) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	if upd.Description != nil {
		it.Description = *upd.Description
	}
	if upd.Quantity != nil {
		it.Quantity = *upd.Quantity
	}
	if upd.Location != nil {
		it.Location = *upd.Location
	}
	if upd.TruckRef != nil {
		it.TruckRef = *upd.TruckRef
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	it.UpdatedAt = time.Now().UTC()
	return *it, nil
}

func (m *MemoryStore) DeleteItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

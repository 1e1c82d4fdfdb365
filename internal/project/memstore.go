package project

import (
	"context"
	"sort"
	"sync"
	"time"

	"loadtracker.app/internal/ids"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]*Project
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*Project)}
}

func (m *MemoryStore) CreateProject(_ context.Context, p Project) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = ids.New()
	m.projects[p.ID] = &p
	return p, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return *p, nil
}

func (m *MemoryStore) ListProjects(_ context.Context, page Page) ([]Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		all = append(all, *p)
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

func (m *MemoryStore) UpdateProject(_ context.Context, id string, upd Update) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Client != nil {
		p.Client = *upd.Client
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.StartDate != nil {
		p.StartDate = upd.StartDate
	}
	if upd.DueDate != nil {
		p.DueDate = upd.DueDate
	}
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

func (m *MemoryStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

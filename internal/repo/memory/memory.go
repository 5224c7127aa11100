package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// Store keeps checks as encoded documents so callers never share memory with it.
type Store struct {
	mu   sync.RWMutex
	docs map[domain.CheckID][]byte
}

func New() *Store {
	return &Store{docs: make(map[domain.CheckID][]byte)}
}

func (m *Store) Create(ctx context.Context, c domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("memory.Store.Create: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c.ID]; ok {
		return fmt.Errorf("memory.Store.Create %s: %w", c.ID, repo.ErrExists)
	}
	m.docs[c.ID] = b
	return nil
}

func (m *Store) Read(ctx context.Context, id domain.CheckID) (domain.Check, error) {
	m.mu.RLock()
	b, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Check{}, fmt.Errorf("memory.Store.Read %s: %w", id, repo.ErrNotFound)
	}
	var c domain.Check
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Check{}, fmt.Errorf("memory.Store.Read %s: %w", id, repo.ErrCorrupt)
	}
	return c, nil
}

func (m *Store) Update(ctx context.Context, c domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("memory.Store.Update: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c.ID]; !ok {
		return fmt.Errorf("memory.Store.Update %s: %w", c.ID, repo.ErrNotFound)
	}
	m.docs[c.ID] = b
	return nil
}

func (m *Store) Remove(ctx context.Context, id domain.CheckID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("memory.Store.Remove %s: %w", id, repo.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

func (m *Store) List(ctx context.Context) ([]domain.CheckID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CheckID, 0, len(m.docs))
	for id := range m.docs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PutRaw stores an arbitrary document under id, bypassing encoding.
// Used to simulate corrupted records.
func (m *Store) PutRaw(id domain.CheckID, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
}

package cart

import (
	"context"
	"sync"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
)

// IDStore persists the guest cart id between runs.
type IDStore interface {
	Load(ctx context.Context) (domain.GuestCartID, error)
	Save(ctx context.Context, id domain.GuestCartID) error
	Clear(ctx context.Context) error
}

type MemoryIDStore struct {
	mu sync.Mutex
	id domain.GuestCartID
}

func NewMemoryIDStore() *MemoryIDStore {
	return &MemoryIDStore{}
}

func (m *MemoryIDStore) Load(ctx context.Context) (domain.GuestCartID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *MemoryIDStore) Save(ctx context.Context, id domain.GuestCartID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

func (m *MemoryIDStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}

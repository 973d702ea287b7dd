package place

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a place does not exist in the catalog.
var ErrNotFound = errors.New("place not found")

// Repository stores the catalog of candidate places.
// List returns places in a stable order so that equal scores keep a
// predictable relative order after ranking.
type Repository interface {
	// List returns every place in the catalog.
	List(ctx context.Context) ([]Place, error)

	// Get returns the place with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Place, error)

	// Upsert inserts or replaces a place. An empty ID is assigned a new UUID.
	// Returns the stored place's ID.
	Upsert(ctx context.Context, p Place) (string, error)
}

// InMemoryRepository is an in-memory Repository that preserves insertion order.
// Used for development, the demo catalog and tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	order  []string
	places map[string]Place
}

// NewInMemoryRepository creates a repository seeded with the given places.
func NewInMemoryRepository(seed ...Place) *InMemoryRepository {
	r := &InMemoryRepository{
		places: make(map[string]Place),
	}
	for _, p := range seed {
		_, _ = r.Upsert(context.Background(), p)
	}
	return r
}

// List returns deep copies of all places in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Place, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.places[id].Clone())
	}
	return out, nil
}

// Get returns a deep copy of the place with the given ID.
func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.places[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

// Upsert stores a copy of p. Replacing an existing place keeps its position.
func (r *InMemoryRepository) Upsert(ctx context.Context, p Place) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := r.places[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.places[p.ID] = p.Clone()
	return p.ID, nil
}

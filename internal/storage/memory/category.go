// Package memory implements the catalog repositories in process memory. It
// backs the service when no database is configured and serves as a test
// double.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/catalog-service/internal/domain/category"
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository stores categories in a map keyed by ID.
type CategoryRepository struct {
	mu   sync.RWMutex
	seq  int64
	byID map[int64]category.Category
}

// NewCategoryRepository returns an empty CategoryRepository.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{byID: make(map[int64]category.Category)}
}

// Create stores c and assigns the next ID.
func (r *CategoryRepository) Create(_ context.Context, c *category.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	c.ID = r.seq
	r.byID[c.ID] = *c
	return nil
}

// GetByID returns the category with id or category.ErrNotFound.
func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*category.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) exists(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

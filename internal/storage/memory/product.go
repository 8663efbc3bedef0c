package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xenking/catalog-service/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository stores products in maps keyed by ID and code. Products
// are listed in ID order, matching the PostgreSQL store.
type ProductRepository struct {
	categories *CategoryRepository
	now        func() time.Time

	mu     sync.RWMutex
	seq    int64
	byID   map[int64]product.Product
	byCode map[string]int64
}

// NewProductRepository returns an empty ProductRepository. Category
// references are checked against categories.
func NewProductRepository(categories *CategoryRepository) *ProductRepository {
	return &ProductRepository{
		categories: categories,
		now:        time.Now,
		byID:       make(map[int64]product.Product),
		byCode:     make(map[string]int64),
	}
}

// Create stores p, assigning its ID and timestamps.
func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	if !r.categories.exists(p.CategoryID) {
		return product.ErrCategoryNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[p.Code]; taken {
		return product.ErrCodeConflict
	}

	r.seq++
	now := r.now().UTC()
	p.ID = r.seq
	p.CreatedAt = now
	p.UpdatedAt = now
	r.byID[p.ID] = *p
	r.byCode[p.Code] = p.ID
	return nil
}

// Update overwrites the mutable fields of the product with p.ID.
func (r *ProductRepository) Update(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.QuotePrice = p.QuotePrice
	cur.Available = p.Available
	cur.UpdatedAt = r.now().UTC()
	r.byID[p.ID] = cur
	p.UpdatedAt = cur.UpdatedAt
	return nil
}

// GetByCode returns the product carrying code or product.ErrNotFound.
func (r *ProductRepository) GetByCode(_ context.Context, code string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := r.byID[id]
	return &p, nil
}

// GetByID returns the product with id or product.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id int64) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// ExistsByCode reports whether any product carries code.
func (r *ProductRepository) ExistsByCode(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byCode[code]
	return ok, nil
}

// DeleteByID removes the product with id.
func (r *ProductRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	delete(r.byCode, p.Code)
	delete(r.byID, id)
	return nil
}

// List returns one page of products and the total count.
func (r *ProductRepository) List(_ context.Context, req product.PageRequest) ([]product.Product, int64, error) {
	all := r.sorted(nil)
	return paginate(all, req), int64(len(all)), nil
}

// ListByCategory returns one page of the products in a category.
func (r *ProductRepository) ListByCategory(
	_ context.Context,
	categoryID int64,
	req product.PageRequest,
) ([]product.Product, int64, error) {
	all := r.sorted(func(p product.Product) bool { return p.CategoryID == categoryID })
	return paginate(all, req), int64(len(all)), nil
}

// ListAll returns every product in ID order.
func (r *ProductRepository) ListAll(context.Context) ([]product.Product, error) {
	return r.sorted(nil), nil
}

func (r *ProductRepository) sorted(keep func(product.Product) bool) []product.Product {
	r.mu.RLock()
	out := make([]product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func paginate(all []product.Product, req product.PageRequest) []product.Product {
	start := req.Offset()
	if start >= len(all) {
		return []product.Product{}
	}
	end := min(start+req.Size, len(all))
	return all[start:end]
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

func setup(t *testing.T) (*ProductRepository, int64) {
	t.Helper()
	cats := NewCategoryRepository()
	c := &category.Category{Name: "Tools"}
	require.NoError(t, cats.Create(context.Background(), c))
	return NewProductRepository(cats), c.ID
}

func newProduct(code string, categoryID int64) *product.Product {
	return &product.Product{
		Code:        code,
		Name:        "Widget",
		Description: "A widget",
		Price:       decimal.RequireFromString("10"),
		QuotePrice:  decimal.RequireFromString("11.56"),
		CategoryID:  categoryID,
	}
}

func TestProductRepository_ReadAfterWrite(t *testing.T) {
	repo, catID := setup(t)
	ctx := context.Background()

	p := newProduct("AAAAAAAAAA", catID)
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := repo.GetByCode(ctx, "AAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	// Mutating the returned copy leaves the stored product unchanged.
	got.Name = "Changed"
	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", again.Name)

	exists, err := repo.ExistsByCode(ctx, "AAAAAAAAAA")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProductRepository_CreateErrors(t *testing.T) {
	repo, catID := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("AAAAAAAAAA", catID)))
	require.ErrorIs(t, repo.Create(ctx, newProduct("AAAAAAAAAA", catID)), product.ErrCodeConflict)
	require.ErrorIs(t, repo.Create(ctx, newProduct("BBBBBBBBBB", 99)), product.ErrCategoryNotFound)
}

func TestProductRepository_UpdateDelete(t *testing.T) {
	repo, catID := setup(t)
	ctx := context.Background()

	p := newProduct("AAAAAAAAAA", catID)
	require.NoError(t, repo.Create(ctx, p))

	p.Name = "Gadget"
	p.Price = decimal.RequireFromString("20")
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByCode(ctx, "AAAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got.Name)
	assert.True(t, decimal.RequireFromString("20").Equal(got.Price))

	require.NoError(t, repo.DeleteByID(ctx, p.ID))
	_, err = repo.GetByCode(ctx, "AAAAAAAAAA")
	require.ErrorIs(t, err, product.ErrNotFound)

	exists, err := repo.ExistsByCode(ctx, "AAAAAAAAAA")
	require.NoError(t, err)
	assert.False(t, exists)

	require.ErrorIs(t, repo.DeleteByID(ctx, p.ID), product.ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, p), product.ErrNotFound)
}

func TestProductRepository_List(t *testing.T) {
	repo, catID := setup(t)
	ctx := context.Background()

	other := &category.Category{Name: "Toys"}
	require.NoError(t, repo.categories.Create(ctx, other))

	for i := range 10 {
		c := catID
		if i >= 7 {
			c = other.ID
		}
		require.NoError(t, repo.Create(ctx, newProduct(fmt.Sprintf("CODE%06d", i), c)))
	}

	items, total, err := repo.List(ctx, product.PageRequest{Page: 0, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	require.Len(t, items, 4)
	assert.Equal(t, "CODE000000", items[0].Code)

	items, _, err = repo.List(ctx, product.PageRequest{Page: 2, Size: 4})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "CODE000008", items[0].Code)

	items, total, err = repo.List(ctx, product.PageRequest{Page: 5, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Empty(t, items)

	items, _, err = repo.List(ctx, product.PageRequest{Page: 4611686018427387904, Size: 3})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, total, err = repo.ListByCategory(ctx, other.ID, product.PageRequest{Page: 0, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 3)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestProductRepository_ConcurrentCreateSameCode(t *testing.T) {
	repo, catID := setup(t)
	ctx := context.Background()

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newProduct("SAMECODE00", catID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, product.ErrCodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
}

func TestCategoryRepository(t *testing.T) {
	repo := NewCategoryRepository()
	ctx := context.Background()

	c := &category.Category{Name: "Books"}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Name)

	_, err = repo.GetByID(ctx, 42)
	require.ErrorIs(t, err, category.ErrNotFound)
}

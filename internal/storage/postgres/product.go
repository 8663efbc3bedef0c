package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catalog-service/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

const productColumns = `id, code, name, description, price_base, price_quote,
	is_available, category_id, created_at, updated_at`

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p and fills in its ID and timestamps. The unique constraint
// on code is reported as product.ErrCodeConflict and a dangling category as
// product.ErrCategoryNotFound.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	const q = `INSERT INTO products
		(code, name, description, price_base, price_quote, is_available, category_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, q,
		p.Code, p.Name, p.Description, p.Price, p.QuotePrice, p.Available, p.CategoryID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch code, constraint, _ := pgErrorCode(err); {
		case code == codeUniqueViolation && constraint == "products_code_key":
			return product.ErrCodeConflict
		case code == codeForeignKeyViolation:
			return product.ErrCategoryNotFound
		}
		return fmt.Errorf("creating product %q: %w", p.Code, err)
	}
	return nil
}

// Update overwrites the mutable fields of the product with p.ID.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	const q = `UPDATE products SET
		name = $2, description = $3, price_base = $4, price_quote = $5,
		is_available = $6, updated_at = now()
	WHERE id = $1
	RETURNING updated_at`

	err := r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.QuotePrice, p.Available,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	return nil
}

// GetByCode returns the product carrying code or product.ErrNotFound.
func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", code, err)
	}
	return &p, nil
}

// GetByID returns the product with the surrogate key id or
// product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// ExistsByCode reports whether any product carries code.
func (r *ProductRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking product code %q: %w", code, err)
	}
	return exists, nil
}

// DeleteByID removes the product with id.
func (r *ProductRepository) DeleteByID(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// List returns one page of products ordered by ID and the total count.
func (r *ProductRepository) List(ctx context.Context, req product.PageRequest) ([]product.Product, int64, error) {
	return r.page(ctx, req,
		`SELECT count(*) FROM products`,
		`SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1 OFFSET $2`,
	)
}

// ListByCategory returns one page of the products in a category.
func (r *ProductRepository) ListByCategory(
	ctx context.Context,
	categoryID int64,
	req product.PageRequest,
) ([]product.Product, int64, error) {
	return r.page(ctx, req,
		`SELECT count(*) FROM products WHERE category_id = $1`,
		`SELECT `+productColumns+` FROM products WHERE category_id = $3 ORDER BY id LIMIT $1 OFFSET $2`,
		categoryID,
	)
}

// ListAll returns every product ordered by ID.
func (r *ProductRepository) ListAll(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing all products: %w", err)
	}
	products, err := pgx.CollectRows(rows, collectProduct)
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}
	return products, nil
}

// page runs the count and the page query concurrently. filter arguments are
// passed to both queries after LIMIT and OFFSET in the page query.
func (r *ProductRepository) page(
	ctx context.Context,
	req product.PageRequest,
	countQuery, pageQuery string,
	filter ...any,
) ([]product.Product, int64, error) {
	var (
		total    int64
		products []product.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, countQuery, filter...).Scan(&total); err != nil {
			return fmt.Errorf("counting products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		args := append([]any{req.Size, req.Offset()}, filter...)
		rows, err := r.pool.Query(gctx, pageQuery, args...)
		if err != nil {
			return fmt.Errorf("listing products: %w", err)
		}
		products, err = pgx.CollectRows(rows, collectProduct)
		if err != nil {
			return fmt.Errorf("scanning products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func collectProduct(row pgx.CollectableRow) (product.Product, error) {
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.QuotePrice,
		&p.Available,
		&p.CategoryID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

package product

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item as persisted by the store.
type Product struct {
	ID          int64
	Code        string
	Name        string
	Description string
	// Price is denominated in the base currency and supplied by callers.
	Price decimal.Decimal
	// QuotePrice is derived from Price and the current exchange rate.
	QuotePrice decimal.Decimal
	Available  *bool
	CategoryID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// View is the external projection of a product.
type View struct {
	Code        string
	Name        string
	Price       decimal.Decimal
	QuotePrice  decimal.Decimal
	Description string
	Available   *bool
	CategoryID  string
}

// ToView maps a persisted product to its external projection.
func ToView(p Product) View {
	return View{
		Code:        p.Code,
		Name:        p.Name,
		Price:       p.Price,
		QuotePrice:  p.QuotePrice,
		Description: p.Description,
		Available:   p.Available,
		CategoryID:  strconv.FormatInt(p.CategoryID, 10),
	}
}

// CreateParams holds validated input for creating a product.
type CreateParams struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Available   *bool
	CategoryID  int64
}

// UpdateParams holds validated input for updating a product. Code and
// category cannot be changed after creation.
type UpdateParams struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Available   *bool
}

// Repository is the persistence contract for products.
//
// GetByCode and GetByID return ErrNotFound when nothing matches. Create
// assigns ID and timestamps, and returns ErrCodeConflict when the code is
// already taken or ErrCategoryNotFound when the category does not exist.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByCode(ctx context.Context, code string) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	List(ctx context.Context, req PageRequest) ([]Product, int64, error)
	ListByCategory(ctx context.Context, categoryID int64, req PageRequest) ([]Product, int64, error)
	ListAll(ctx context.Context) ([]Product, error)
}

// RateProvider returns the current conversion rate from base to quote
// currency.
type RateProvider interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Package handler exposes the catalog over HTTP/JSON on a chi router.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

// ProductService is the product API the handlers depend on.
type ProductService interface {
	Create(ctx context.Context, p product.CreateParams) (*product.View, error)
	Update(ctx context.Context, code string, p product.UpdateParams) (*product.View, error)
	Delete(ctx context.Context, code string) error
	Get(ctx context.Context, code string) (*product.View, bool, error)
	List(ctx context.Context, req product.PageRequest) (*product.Page[product.View], error)
	ListByCategory(ctx context.Context, categoryID int64, req product.PageRequest) (*product.Page[product.View], error)
}

// CategoryService is the category API the handlers depend on.
type CategoryService interface {
	Create(ctx context.Context, name string) (*category.Category, error)
	Get(ctx context.Context, id int64) (*category.Category, error)
}

// Config holds the currencies products are priced in. They name the price
// fields of the JSON payloads, e.g. EUR and USD give priceEur and priceUsd.
type Config struct {
	BaseCurrency  string
	QuoteCurrency string
}

// Handler serves the catalog API.
type Handler struct {
	products   ProductService
	categories CategoryService

	baseField  string
	quoteField string
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config, products ProductService, categories CategoryService) *Handler {
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "EUR"
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USD"
	}
	return &Handler{
		products:   products,
		categories: categories,
		baseField:  priceField(cfg.BaseCurrency),
		quoteField: priceField(cfg.QuoteCurrency),
	}
}

// Register mounts the API routes on r. The write middlewares wrap only the
// routes that create, change or delete data.
func (h *Handler) Register(r chi.Router, write ...func(http.Handler) http.Handler) {
	w := r.With(write...)

	r.Get("/api/products", h.ListProducts)
	w.Post("/api/products", h.CreateProduct)
	r.Get("/api/products/{code}", h.GetProduct)
	w.Put("/api/products/{code}", h.UpdateProduct)
	w.Delete("/api/products/{code}", h.DeleteProduct)

	w.Post("/api/categories", h.CreateCategory)
	r.Get("/api/categories/{id}", h.GetCategory)
	r.Get("/api/categories/{id}/products", h.ListCategoryProducts)
}

// priceField turns a currency code into a JSON field name: "EUR" -> "priceEur".
func priceField(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return "price"
	}
	return "price" + strings.ToUpper(c[:1]) + c[1:]
}

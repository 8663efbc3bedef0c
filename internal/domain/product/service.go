package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/xenking/catalog-service/internal/domain/product"

// DefaultMaxCodeAttempts bounds the number of candidate codes tried per
// product creation.
const DefaultMaxCodeAttempts = 1000

// Config holds the pricing and uniqueness policy of a Service.
type Config struct {
	// BaseCurrency is the currency product prices are supplied in.
	BaseCurrency string
	// QuoteCurrency is the currency of the derived price.
	QuoteCurrency string
	// MaxCodeAttempts bounds code generation. Zero means DefaultMaxCodeAttempts.
	MaxCodeAttempts int
}

// Option configures optional Service dependencies.
type Option func(*serviceOptions)

type serviceOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for service counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// Service implements the product lifecycle: code assignment, price
// derivation and persistence. It holds no catalog state of its own and is
// safe for concurrent use.
type Service struct {
	products Repository
	rates    RateProvider
	codes    Generator
	cfg      Config

	tracer      trace.Tracer
	created     metric.Int64Counter
	rateFetches metric.Int64Counter
	collisions  metric.Int64Counter
}

// NewService creates a product Service.
func NewService(
	products Repository,
	rates RateProvider,
	gen Generator,
	cfg Config,
	opts ...Option,
) *Service {
	o := serviceOptions{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "EUR"
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USD"
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = DefaultMaxCodeAttempts
	}

	meter := o.meterProvider.Meter(instrumentationName)
	created, _ := meter.Int64Counter("catalog.products.created",
		metric.WithDescription("Total number of products created"),
	)
	rateFetches, _ := meter.Int64Counter("catalog.rates.fetches",
		metric.WithDescription("Exchange rate lookups by result"),
	)
	collisions, _ := meter.Int64Counter("catalog.codes.collisions",
		metric.WithDescription("Generated product codes that were already taken"),
	)

	return &Service{
		products:    products,
		rates:       rates,
		codes:       gen,
		cfg:         cfg,
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		created:     created,
		rateFetches: rateFetches,
		collisions:  collisions,
	}
}

// Create assigns a free code to a new product, derives its quote price from
// the current exchange rate and persists it. Nothing is written when the
// rate cannot be obtained.
func (s *Service) Create(ctx context.Context, p CreateParams) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Create",
		trace.WithAttributes(
			attribute.String("product.name", p.Name),
			attribute.Int64("product.category_id", p.CategoryID),
		),
	)
	defer func() { finishSpan(span, rerr) }()

	if err := CheckPrice(p.Price); err != nil {
		return nil, errors.Wrap(err, "check price")
	}

	code, attempts, err := s.freeCode(ctx, 0)
	if err != nil {
		return nil, err
	}

	quote, err := s.quotePrice(ctx, p.Price)
	if err != nil {
		return nil, err
	}

	prod := &Product{
		Code:        code,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		QuotePrice:  quote,
		Available:   p.Available,
		CategoryID:  p.CategoryID,
	}

	// A concurrent writer may take the code between the check and the
	// insert; the store's unique constraint reports it and we pick another.
	for {
		err := s.products.Create(ctx, prod)
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			return nil, errors.Wrapf(err, "category %d", p.CategoryID)
		case !errors.Is(err, ErrCodeConflict):
			return nil, &StorageError{Op: "create product", Err: err}
		}

		s.collisions.Add(ctx, 1)
		zctx.From(ctx).Debug("Product code taken on insert, regenerating",
			zap.String("code", prod.Code),
		)
		if prod.Code, attempts, err = s.freeCode(ctx, attempts); err != nil {
			return nil, err
		}
	}

	s.created.Add(ctx, 1)
	span.SetAttributes(attribute.String("product.code", prod.Code))
	zctx.From(ctx).Debug("Product created",
		zap.String("code", prod.Code),
		zap.Int64("id", prod.ID),
		zap.Stringer("price", prod.Price),
		zap.Stringer("quote_price", prod.QuotePrice),
		zap.Int("code_attempts", attempts),
	)

	v := ToView(*prod)
	return &v, nil
}

// Update overwrites name, description and availability of the product with
// the given code. The quote price is recomputed only when the base price
// changes numerically, so an unchanged price costs no rate lookup.
func (s *Service) Update(ctx context.Context, code string, p UpdateParams) (_ *View, rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Update",
		trace.WithAttributes(attribute.String("product.code", code)),
	)
	defer func() { finishSpan(span, rerr) }()

	if err := CheckPrice(p.Price); err != nil {
		return nil, errors.Wrap(err, "check price")
	}

	prod, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	prod.Name = p.Name
	if !prod.Price.Equal(p.Price) {
		quote, err := s.quotePrice(ctx, p.Price)
		if err != nil {
			return nil, err
		}
		prod.Price = p.Price
		prod.QuotePrice = quote
		zctx.From(ctx).Debug("Product repriced",
			zap.String("code", code),
			zap.Stringer("price", prod.Price),
			zap.Stringer("quote_price", prod.QuotePrice),
		)
	}
	prod.Description = p.Description
	prod.Available = p.Available

	if err := s.products.Update(ctx, prod); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Code: code}
		}
		return nil, &StorageError{Op: "update product", Err: err}
	}

	v := ToView(*prod)
	return &v, nil
}

// Delete removes the product with the given code. The store deletes by
// surrogate key, so the code is resolved first.
func (s *Service) Delete(ctx context.Context, code string) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Delete",
		trace.WithAttributes(attribute.String("product.code", code)),
	)
	defer func() { finishSpan(span, rerr) }()

	prod, err := s.lookup(ctx, code)
	if err != nil {
		return err
	}

	if err := s.products.DeleteByID(ctx, prod.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Code: code}
		}
		return &StorageError{Op: "delete product", Err: err}
	}

	zctx.From(ctx).Debug("Product deleted", zap.String("code", code), zap.Int64("id", prod.ID))
	return nil
}

// Get returns the product with the given code. A missing product is reported
// as ok == false, not as an error.
func (s *Service) Get(ctx context.Context, code string) (_ *View, ok bool, rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Get",
		trace.WithAttributes(attribute.String("product.code", code)),
	)
	defer func() { finishSpan(span, rerr) }()

	prod, err := s.products.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, &StorageError{Op: "get product", Err: err}
	}

	v := ToView(*prod)
	return &v, true, nil
}

// List returns one page of the catalog in store order.
func (s *Service) List(ctx context.Context, req PageRequest) (_ *Page[View], rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.List")
	defer func() { finishSpan(span, rerr) }()

	req = req.Normalize()
	items, total, err := s.products.List(ctx, req)
	if err != nil {
		return nil, &StorageError{Op: "list products", Err: err}
	}
	return viewPage(items, total, req), nil
}

// ListByCategory returns one page of the products owned by a category.
func (s *Service) ListByCategory(ctx context.Context, categoryID int64, req PageRequest) (_ *Page[View], rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListByCategory",
		trace.WithAttributes(attribute.Int64("product.category_id", categoryID)),
	)
	defer func() { finishSpan(span, rerr) }()

	req = req.Normalize()
	items, total, err := s.products.ListByCategory(ctx, categoryID, req)
	if err != nil {
		return nil, &StorageError{Op: "list category products", Err: err}
	}
	return viewPage(items, total, req), nil
}

// Export calls fn for every product in the catalog, stopping at the first
// error.
func (s *Service) Export(ctx context.Context, fn func(View) error) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Export")
	defer func() { finishSpan(span, rerr) }()

	all, err := s.products.ListAll(ctx)
	if err != nil {
		return &StorageError{Op: "list all products", Err: err}
	}
	for _, p := range all {
		if err := fn(ToView(p)); err != nil {
			return err
		}
	}
	return nil
}

// lookup resolves a code to a product, translating absence into
// *NotFoundError before any field is touched.
func (s *Service) lookup(ctx context.Context, code string) (*Product, error) {
	prod, err := s.products.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Code: code}
		}
		return nil, &StorageError{Op: "get product", Err: err}
	}
	if prod == nil {
		return nil, &NotFoundError{Code: code}
	}
	return prod, nil
}

// freeCode generates candidates until the store reports one as unused.
// used counts attempts already spent by the caller.
func (s *Service) freeCode(ctx context.Context, used int) (string, int, error) {
	for used < s.cfg.MaxCodeAttempts {
		code := s.codes.Generate()
		used++

		exists, err := s.products.ExistsByCode(ctx, code)
		if err != nil {
			return "", used, &StorageError{Op: "check product code", Err: err}
		}
		if !exists {
			return code, used, nil
		}
		s.collisions.Add(ctx, 1)
	}
	return "", used, &CodesExhaustedError{Attempts: used}
}

// quotePrice fetches the current rate and converts price into the quote
// currency.
func (s *Service) quotePrice(ctx context.Context, price decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.rates.Rate(ctx, s.cfg.BaseCurrency, s.cfg.QuoteCurrency)
	if err != nil {
		s.rateFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		return decimal.Decimal{}, &RateUnavailableError{
			Base:  s.cfg.BaseCurrency,
			Quote: s.cfg.QuoteCurrency,
			Err:   err,
		}
	}
	s.rateFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	return ConvertPrice(price, rate), nil
}

func viewPage(items []Product, total int64, req PageRequest) *Page[View] {
	p := MapPage(Page[Product]{
		Items: items,
		Page:  req.Page,
		Size:  req.Size,
		Total: total,
	}, ToView)
	return &p
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
	"github.com/xenking/catalog-service/internal/handler"
	"github.com/xenking/catalog-service/internal/rates"
	"github.com/xenking/catalog-service/internal/storage/memory"
	"github.com/xenking/catalog-service/internal/storage/postgres"
	"github.com/xenking/catalog-service/pkg/health"
	"github.com/xenking/catalog-service/pkg/httpmiddleware"
)

const serviceName = "catalog-api"

// Telemetry provides the tracer and meter providers of the process.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

var _ Telemetry = (*app.Telemetry)(nil)

// NopTelemetry discards traces and metrics. Command-line tools use it.
type NopTelemetry struct{}

func (NopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (NopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

// Stores are the repositories backing the services.
type Stores struct {
	Products   product.Repository
	Categories category.Repository
	// Ping is nil for stores without a remote dependency.
	Ping  health.Pinger
	Close func()
}

// OpenStores connects the storage backend selected by cfg.Storage. The
// PostgreSQL backend runs migrations before returning.
func OpenStores(ctx context.Context, cfg *Config) (*Stores, error) {
	if cfg.Storage == StorageMemory {
		categories := memory.NewCategoryRepository()
		return &Stores{
			Products:   memory.NewProductRepository(categories),
			Categories: categories,
			Close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DB.MaxConns)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &Stores{
		Products:   postgres.NewProductRepository(pool),
		Categories: postgres.NewCategoryRepository(pool),
		Ping:       pool,
		Close:      pool.Close,
	}, nil
}

// NewProductService wires the product service to its stores, the exchange
// rate source and a random code generator.
func NewProductService(cfg *Config, s *Stores, tel Telemetry) *product.Service {
	rateClient := rates.New(rates.Config{
		URL:     cfg.Rates.URL,
		Base:    cfg.Rates.Base,
		Timeout: cfg.Rates.Timeout,
	},
		rates.WithTracerProvider(tel.TracerProvider()),
		rates.WithMeterProvider(tel.MeterProvider()),
	)
	return product.NewService(s.Products, rateClient, product.NewRandomCodeGenerator(),
		product.Config{
			BaseCurrency:    cfg.Rates.Base,
			QuoteCurrency:   cfg.Rates.Quote,
			MaxCodeAttempts: cfg.Codes.MaxAttempts,
		},
		product.WithTracerProvider(tel.TracerProvider()),
		product.WithMeterProvider(tel.MeterProvider()),
	)
}

// NewRouter mounts the health probes and the catalog API behind the shared
// middleware chain. Write endpoints are additionally rate limited.
func NewRouter(ctx context.Context, cfg *Config, tel Telemetry, h *handler.Handler, hs *health.Health) chi.Router {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument(serviceName, tel.TracerProvider(), tel.MeterProvider()),
		httpmiddleware.Labeler(),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:     cfg.CORS.Origins,
			Headers:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
			Expose:      []string{httpmiddleware.HeaderRequestID, "Location", "Retry-After"},
			Credentials: cfg.CORS.AllowCredentials,
			MaxAge:      86400,
		}),
	)

	r.Get("/livez", hs.LiveEndpoint)
	r.Get("/readyz", hs.ReadyEndpoint)

	h.Register(r, httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}))
	return r
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("base", cfg.Rates.Base),
		zap.String("quote", cfg.Rates.Quote),
	)

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	healthSvc := health.New()
	if stores.Ping != nil {
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(stores.Ping))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.NewHandler(
		handler.Config{BaseCurrency: cfg.Rates.Base, QuoteCurrency: cfg.Rates.Quote},
		NewProductService(cfg, stores, m),
		category.NewService(stores.Categories),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Rates.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           NewRouter(ctx, cfg, m, h, healthSvc),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// Command seed-db loads categories and products from a JSON (or gzipped
// JSON) file through the catalog services, so every product gets a code and
// a quote price like one created over the API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/app"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

func main() {
	var seedFile string
	flag.StringVar(&seedFile, "file", "db/seed/catalog.json", "path to the seed file (.json or .json.gz)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, seedFile); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, seedFile string) error {
	cfg, err := app.LoadEnvConfig()
	if err != nil {
		return err
	}

	lg.Info("Reading seed file", zap.String("path", seedFile))
	f, err := openSeed(seedFile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	categories, err := decodeSeed(f)
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	return seed(ctx, lg, categories,
		category.NewService(stores.Categories),
		app.NewProductService(cfg, stores, app.NopTelemetry{}),
	)
}

type productCreator interface {
	Create(ctx context.Context, p product.CreateParams) (*product.View, error)
}

type categoryCreator interface {
	Create(ctx context.Context, name string) (*category.Category, error)
}

func seed(ctx context.Context, lg *zap.Logger, data []seedCategory, categories categoryCreator, products productCreator) error {
	for _, sc := range data {
		c, err := categories.Create(ctx, sc.Name)
		if err != nil {
			return errors.Wrapf(err, "create category %q", sc.Name)
		}
		lg.Info("Created category", zap.Int64("id", c.ID), zap.String("name", c.Name))

		for _, sp := range sc.Products {
			v, err := products.Create(ctx, product.CreateParams{
				Name:        sp.Name,
				Price:       sp.Price,
				Description: sp.Description,
				Available:   sp.Available,
				CategoryID:  c.ID,
			})
			if err != nil {
				return errors.Wrapf(err, "create product %q", sp.Name)
			}
			lg.Info("Created product",
				zap.String("code", v.Code),
				zap.String("name", v.Name),
				zap.Stringer("price", v.Price),
				zap.Stringer("quote_price", v.QuotePrice),
			)
		}
	}
	return nil
}

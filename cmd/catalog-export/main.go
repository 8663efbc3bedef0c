// Command catalog-export writes every product in the catalog as JSON lines,
// gzip-compressed when the output file name ends in .gz.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/app"
)

func main() {
	var out string
	flag.StringVar(&out, "out", "catalog.jsonl.gz", `output file, "-" for stdout`)
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, out); err != nil {
		lg.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, out string) (rerr error) {
	cfg, err := app.LoadEnvConfig()
	if err != nil {
		return err
	}
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer func() {
			if err := f.Close(); err != nil && rerr == nil {
				rerr = errors.Wrap(err, "close output")
			}
		}()
		w = f
	}

	svc := app.NewProductService(cfg, stores, app.NopTelemetry{})
	n, err := export(ctx, svc, w, strings.HasSuffix(out, ".gz"), cfg.Rates.Base, cfg.Rates.Quote)
	if err != nil {
		return err
	}
	lg.Info("Export completed", zap.String("out", out), zap.Int("products", n))
	return nil
}

// Command api-server serves the catalog HTTP API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	catalog "github.com/xenking/catalog-service/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := catalog.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		return catalog.Run(zctx.Base(ctx, lg), lg, m, cfg)
	})
}

package sync

import (
	"context"

	"github.com/smallbiznis/ledgerline/internal/config"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"github.com/smallbiznis/ledgerline/internal/sync/gateway"
	"github.com/smallbiznis/ledgerline/internal/sync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sync",
	fx.Provide(gateway.New),
	fx.Provide(service.New),
	fx.Provide(NewRefresher),
	fx.Invoke(initMetrics),
	fx.Invoke(runRefresher),
)

func initMetrics(cfg config.Config) {
	obsmetrics.SyncWithConfig(obsmetrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}

func runRefresher(lc fx.Lifecycle, refresher *Refresher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go refresher.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}

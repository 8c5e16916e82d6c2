package localstore

import (
	"context"

	"github.com/smallbiznis/ledgerline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig opens the cache database at the configured path.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*Store, error) {
	store, err := Open(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			sqlDB, err := store.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return store, nil
}

// Module wires the embedded cache.
var Module = fx.Module("localstore",
	fx.Provide(NewFromConfig),
)

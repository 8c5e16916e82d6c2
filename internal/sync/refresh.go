package sync

import (
	"context"
	"time"

	"github.com/smallbiznis/ledgerline/internal/config"
	"github.com/smallbiznis/ledgerline/internal/sync/domain"
	"go.uber.org/zap"
)

// Refresher re-runs a full sync on a fixed interval so the cache keeps
// converging on the backend even when no local writes happen.
type Refresher struct {
	log      *zap.Logger
	svc      domain.Service
	userID   string
	interval time.Duration
}

func NewRefresher(log *zap.Logger, svc domain.Service, cfg config.Config) *Refresher {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		log:      log.Named("sync.refresher"),
		svc:      svc,
		userID:   cfg.SyncUserID,
		interval: interval,
	}
}

func (r *Refresher) RunForever(ctx context.Context) {
	if r.userID == "" {
		r.log.Info("no sync user configured, refresher idle")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.svc.SyncAllUserData(ctx, r.userID); err != nil {
			r.log.Warn("periodic sync failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package remote

import (
	"github.com/smallbiznis/ledgerline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig creates the backend client from application configuration.
func NewFromConfig(cfg config.Config, log *zap.Logger) (*Client, error) {
	return New(Config{
		BaseURL: cfg.RemoteBaseURL,
		APIKey:  cfg.RemoteAPIKey,
		Timeout: cfg.HTTPTimeout,
	}, log)
}

// Module wires the remote backend client.
var Module = fx.Module("remote",
	fx.Provide(NewFromConfig),
)

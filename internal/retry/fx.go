package retry

import (
	"github.com/smallbiznis/ledgerline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig builds the retry policy from application configuration.
func NewFromConfig(cfg config.Config, log *zap.Logger) Policy {
	return Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		MaxDelay:     cfg.RetryMaxDelay,
		Multiplier:   cfg.RetryMultiplier,
	}.WithLogger(log)
}

// Module wires the retry policy for remote operations.
var Module = fx.Module("retry",
	fx.Provide(NewFromConfig),
)

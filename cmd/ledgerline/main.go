package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/clock"
	"github.com/smallbiznis/ledgerline/internal/config"
	"github.com/smallbiznis/ledgerline/internal/localstore"
	"github.com/smallbiznis/ledgerline/internal/logger"
	"github.com/smallbiznis/ledgerline/internal/remote"
	"github.com/smallbiznis/ledgerline/internal/retry"
	"github.com/smallbiznis/ledgerline/internal/sync"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		localstore.Module,
		remote.Module,
		retry.Module,

		// Functional Domains
		sync.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

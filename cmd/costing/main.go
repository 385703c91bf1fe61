package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costing/internal/billingstore"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	"github.com/smallbiznis/costing/internal/costing"
	"github.com/smallbiznis/costing/internal/invoice"
	"github.com/smallbiznis/costing/internal/logger"
	"github.com/smallbiznis/costing/internal/migration"
	"github.com/smallbiznis/costing/internal/observability"
	"github.com/smallbiznis/costing/internal/seed"
	"github.com/smallbiznis/costing/internal/server"
	"github.com/smallbiznis/costing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,
		seed.Module,

		// Functional Domains
		invoice.Module,
		billingstore.Module,
		costing.Module,

		server.Module,
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

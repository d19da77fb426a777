package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lotsight/lotsight/internal/config"
	"github.com/lotsight/lotsight/internal/logger"
	"github.com/lotsight/lotsight/internal/migration"
	"github.com/lotsight/lotsight/internal/server"
	"github.com/lotsight/lotsight/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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

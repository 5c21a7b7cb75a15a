package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lotworks/dealdesk/internal/config"
	"github.com/lotworks/dealdesk/internal/migration"
	"github.com/lotworks/dealdesk/internal/server"
	"github.com/lotworks/dealdesk/pkg/db"
	"github.com/lotworks/dealdesk/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

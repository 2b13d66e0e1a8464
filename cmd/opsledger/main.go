package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/config"
	"github.com/fieldhive/opsledger/internal/events"
	"github.com/fieldhive/opsledger/internal/history"
	"github.com/fieldhive/opsledger/internal/invoice"
	"github.com/fieldhive/opsledger/internal/logger"
	"github.com/fieldhive/opsledger/internal/migration"
	"github.com/fieldhive/opsledger/internal/payment"
	"github.com/fieldhive/opsledger/internal/reconcile"
	"github.com/fieldhive/opsledger/internal/sequence"
	"github.com/fieldhive/opsledger/internal/server"
	"github.com/fieldhive/opsledger/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),
		fx.Provide(events.NewOutbox),
		sequence.Module,
		history.Module,
		invoice.Module,
		payment.Module,
		reconcile.Module,
		server.Module,
	)
	app.Run()
}

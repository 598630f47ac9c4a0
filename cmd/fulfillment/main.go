package main

import (
	"github.com/HDZ65/crm-final-sub010/internal/batch"
	"github.com/HDZ65/crm-final-sub010/internal/clock"
	"github.com/HDZ65/crm-final-sub010/internal/config"
	"github.com/HDZ65/crm-final-sub010/internal/cutoff"
	cutoffworker "github.com/HDZ65/crm-final-sub010/internal/cutoff/worker"
	"github.com/HDZ65/crm-final-sub010/internal/events/rabbitmq"
	"github.com/HDZ65/crm-final-sub010/internal/migration"
	"github.com/HDZ65/crm-final-sub010/internal/observability/logger"
	"github.com/HDZ65/crm-final-sub010/internal/observability/tracing"
	"github.com/HDZ65/crm-final-sub010/internal/snapshot"
	"github.com/HDZ65/crm-final-sub010/internal/sources"
	"github.com/HDZ65/crm-final-sub010/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),

		sources.Module,
		snapshot.Module,
		cutoff.Module,
		batch.Module,

		rabbitmq.Module,
		cutoffworker.Module,
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

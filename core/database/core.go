package database

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/dig"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/kvstore"

	"github.com/slotdao/cycled/pkg/database"
	"github.com/slotdao/cycled/pkg/metrics"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/shutdown"
)

func init() {
	CorePlugin = &node.CorePlugin{
		Pluggable: node.Pluggable{
			Name:      "Database",
			DepsFunc:  func(cDeps dependencies) { deps = cDeps },
			Params:    params,
			Provide:   provide,
			Configure: configure,
		},
	}
}

var (
	CorePlugin *node.CorePlugin
	deps       dependencies
)

type dependencies struct {
	dig.In
	Database        *database.Database
	DatabaseMetrics *metrics.DatabaseMetrics
}

func provide(c *dig.Container) {

	type databaseDeps struct {
		dig.In
		NodeConfig *configuration.Configuration `name:"nodeConfig"`
	}

	if err := c.Provide(func() *metrics.DatabaseMetrics {
		return &metrics.DatabaseMetrics{}
	}); err != nil {
		CorePlugin.LogPanic(err)
	}

	if err := c.Provide(func(deps databaseDeps) *database.Database {
		engine, err := database.DatabaseEngine(deps.NodeConfig.String(CfgDatabaseEngine))
		if err != nil {
			CorePlugin.LogPanic(err)
		}

		path := deps.NodeConfig.String(CfgDatabasePath)
		CorePlugin.LogInfof("Opening %s database at '%s' ...", engine, path)

		db, err := database.New(CorePlugin.Logger(), path, engine)
		if err != nil {
			CorePlugin.LogPanicf("%s database initialization failed: %s", engine, err)
		}
		return db
	}); err != nil {
		CorePlugin.LogPanic(err)
	}

	if err := c.Provide(func(db *database.Database) kvstore.KVStore {
		return db.KVStore()
	}); err != nil {
		CorePlugin.LogPanic(err)
	}
}

func configure() {
	if size, err := deps.Database.Size(); err != nil {
		CorePlugin.LogWarnf("reading database size failed: %s", err)
	} else if size > 0 {
		CorePlugin.LogInfof("Database size: %s", humanize.IBytes(uint64(size)))
	}

	deps.Database.Events().DatabaseCompaction.Attach(events.NewClosure(func(running bool) {
		if running {
			deps.DatabaseMetrics.CompactionStarted(time.Now())
			CorePlugin.LogInfo("Database compaction started")
			return
		}
		duration := deps.DatabaseMetrics.CompactionFinished(time.Now())
		CorePlugin.LogInfof("Database compaction finished, took %v", duration.Truncate(time.Millisecond))
	}))

	if err := CorePlugin.Daemon().BackgroundWorker("Close database", func(ctx context.Context) {
		<-ctx.Done()
		if err := deps.Database.Close(); err != nil {
			CorePlugin.LogErrorf("closing database failed: %s", err)
		}
	}, shutdown.PriorityCloseDatabase); err != nil {
		CorePlugin.LogPanicf("failed to start worker: %s", err)
	}
}

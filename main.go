package main

import (
	"github.com/slotdao/cycled/core/app"
	"github.com/slotdao/cycled/core/database"
	"github.com/slotdao/cycled/core/gracefulshutdown"
	"github.com/slotdao/cycled/core/ledger"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/plugins/prometheus"
	"github.com/slotdao/cycled/plugins/relayer"
	"github.com/slotdao/cycled/plugins/restapi"
)

func main() {
	node.Run(
		node.WithInitPlugin(app.InitPlugin),
		node.WithCorePlugins(
			gracefulshutdown.CorePlugin,
			database.CorePlugin,
			ledger.CorePlugin,
		),
		node.WithPlugins(
			restapi.Plugin,
			prometheus.Plugin,
			relayer.Plugin,
		),
	)
}

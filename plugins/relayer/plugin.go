package relayer

import (
	"context"
	"time"

	"go.uber.org/dig"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/events"

	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/relayer"
	"github.com/slotdao/cycled/pkg/shutdown"
)

func init() {
	Plugin = &node.Plugin{
		Status: node.StatusDisabled,
		Pluggable: node.Pluggable{
			Name:      "Relayer",
			DepsFunc:  func(cDeps dependencies) { deps = cDeps },
			Params:    params,
			Provide:   provide,
			Configure: configure,
			Run:       run,
		},
	}
}

var (
	Plugin *node.Plugin
	deps   dependencies

	orchestrator *relayer.Orchestrator
)

type dependencies struct {
	dig.In
	NodeConfig      *configuration.Configuration `name:"nodeConfig"`
	DAO             *dao.DAO
	RelayerMetrics  *relayer.Metrics
	ShutdownHandler *shutdown.ShutdownHandler
}

func provide(c *dig.Container) {
	if err := c.Provide(func() *relayer.Metrics {
		return relayer.NewMetrics()
	}); err != nil {
		Plugin.LogPanic(err)
	}
}

func configure() {
	caller := ledger.ContractAddress("relayer")
	if callerHex := deps.NodeConfig.String(CfgRelayerCallerAddress); callerHex != "" {
		var err error
		if caller, err = ledger.AddressFromHex(callerHex); err != nil {
			Plugin.LogPanicf("invalid %s: %s", CfgRelayerCallerAddress, err)
		}
	}

	orchestrator = relayer.New(relayer.NewLocalClient(deps.DAO, caller),
		relayer.WithLogger(Plugin.Logger()),
		relayer.WithMetrics(deps.RelayerMetrics),
		relayer.WithPollInterval(deps.NodeConfig.Duration(CfgRelayerPollInterval)),
		relayer.WithContentGatewayURL(deps.NodeConfig.String(CfgRelayerContentGatewayURL)),
		relayer.WithBackoff(500*time.Millisecond, 5*time.Second, deps.NodeConfig.Duration(CfgRelayerBackoffMaxElapsed)),
	)

	Plugin.LogInfof("Relayer submits as %s", caller)
}

func run() {
	onSubmitted := events.NewClosure(func(submission *relayer.Submission) {
		if submission.Err != nil {
			Plugin.LogDebugf("%s of cycle %d %s: %s", submission.Action, submission.Cycle, submission.Outcome, submission.Err)
			return
		}
		Plugin.LogDebugf("%s of cycle %d %s", submission.Action, submission.Cycle, submission.Outcome)
	})

	if err := Plugin.Daemon().BackgroundWorker("Relayer", func(ctx context.Context) {
		Plugin.LogInfo("Starting Relayer ... done")
		orchestrator.Events.Submitted.Attach(onSubmitted)
		defer orchestrator.Events.Submitted.Detach(onSubmitted)

		if err := orchestrator.Run(ctx); err != nil {
			deps.ShutdownHandler.SelfShutdown(err.Error())
		}
		Plugin.LogInfo("Stopping Relayer ... done")
	}, shutdown.PriorityRelayer); err != nil {
		Plugin.LogPanicf("failed to start worker: %s", err)
	}
}

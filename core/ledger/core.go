package ledger

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/events"
	"github.com/iotaledger/hive.go/kvstore"

	"github.com/slotdao/cycled/pkg/metrics"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/shutdown"
	"github.com/slotdao/cycled/pkg/utils"
)

func init() {
	CorePlugin = &node.CorePlugin{
		Pluggable: node.Pluggable{
			Name:      "Ledger",
			DepsFunc:  func(cDeps dependencies) { deps = cDeps },
			Params:    params,
			Provide:   provide,
			Configure: configure,
			Run:       run,
		},
	}
}

var (
	CorePlugin *node.CorePlugin
	deps       dependencies
)

type dependencies struct {
	dig.In
	NodeConfig    *configuration.Configuration `name:"nodeConfig"`
	Ledger        *ledger.Ledger
	DAO           *dao.DAO
	LedgerMetrics *metrics.LedgerMetrics
}

func provide(c *dig.Container) {

	type paramsDeps struct {
		dig.In
		NodeConfig *configuration.Configuration `name:"nodeConfig"`
	}

	if err := c.Provide(func(deps paramsDeps) (*dao.Parameters, error) {
		return loadParameters(deps.NodeConfig)
	}); err != nil {
		CorePlugin.LogPanic(err)
	}

	if err := c.Provide(func() *metrics.LedgerMetrics {
		return &metrics.LedgerMetrics{}
	}); err != nil {
		CorePlugin.LogPanic(err)
	}

	if err := c.Provide(func(store kvstore.KVStore) *ledger.Ledger {
		return ledger.New(store, ledger.WithLogger(CorePlugin.LoggerNamed("Transactions")))
	}); err != nil {
		CorePlugin.LogPanic(err)
	}

	if err := c.Provide(func(l *ledger.Ledger, params *dao.Parameters) *dao.DAO {
		return dao.New(l, params, CorePlugin.Logger())
	}); err != nil {
		CorePlugin.LogPanic(err)
	}
}

// loadParameters reads the engine parameters and fails on values the engines cannot run with.
func loadParameters(nodeConfig *configuration.Configuration) (*dao.Parameters, error) {
	counts := make(map[string]uint64)
	for _, key := range []string{CfgGovernanceQuorum, CfgCandidatesFee, CfgCandidatesSponsorThreshold} {
		value := nodeConfig.Int64(key)
		if value < 0 {
			return nil, errors.Wrapf(dao.ErrInvalidParameters, "%s must not be negative, got %d", key, value)
		}
		counts[key] = uint64(value)
	}
	if counts[CfgCandidatesSponsorThreshold] > math.MaxUint32 {
		return nil, errors.Wrapf(dao.ErrInvalidParameters, "%s is too large, got %d", CfgCandidatesSponsorThreshold, counts[CfgCandidatesSponsorThreshold])
	}

	params := &dao.Parameters{
		UploadDuration:   nodeConfig.Duration(CfgContestUploadDuration),
		VotingDuration:   nodeConfig.Duration(CfgContestVotingDuration),
		BiddingDuration:  nodeConfig.Duration(CfgContestBiddingDuration),
		AuctionDuration:  nodeConfig.Duration(CfgAuctionDuration),
		VotingDelay:      nodeConfig.Duration(CfgGovernanceVotingDelay),
		VotingPeriod:     nodeConfig.Duration(CfgGovernanceVotingPeriod),
		Quorum:           counts[CfgGovernanceQuorum],
		CandidateFee:     counts[CfgCandidatesFee],
		SponsorThreshold: uint32(counts[CfgCandidatesSponsorThreshold]),
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func configure() {
	initialized, err := deps.DAO.Initialized()
	if err != nil {
		CorePlugin.LogPanic(err)
	}

	if !initialized {
		genesisPath := deps.NodeConfig.String(CfgLedgerGenesisPath)
		CorePlugin.LogInfof("Applying genesis from '%s' ...", genesisPath)

		genesis := &dao.Genesis{}
		if err := utils.ReadJSONFromFile(genesisPath, genesis); err != nil {
			CorePlugin.LogPanicf("loading genesis failed: %s", err)
		}
		if err := deps.DAO.Init(genesis); err != nil {
			CorePlugin.LogPanicf("applying genesis failed: %s", err)
		}

		CorePlugin.LogInfof("Applying genesis from '%s' ... done, %d members", genesisPath, len(genesis.Members))
	}

	if err := deps.Ledger.View(func(state ledger.State) error {
		info, err := deps.DAO.Contest.CurrentPhaseInfo(state)
		if err != nil {
			return err
		}
		CorePlugin.LogInfof("Ledger at sequence %d, cycle %d in phase %s until %s", state.Sequence(), info.Cycle, info.Phase, info.Deadline.Format("2006-01-02 15:04:05"))
		return nil
	}); err != nil {
		CorePlugin.LogPanic(err)
	}
}

func run() {
	onTransactionCommitted := events.NewClosure(deps.LedgerMetrics.TransactionCommitted)

	onLogEmitted := events.NewClosure(func(log *ledger.Log) {
		deps.LedgerMetrics.LogEmitted(log)
		CorePlugin.LogDebugf("%s emitted %s at sequence %d", log.Contract, log.Name, log.Sequence)
	})

	if err := CorePlugin.Daemon().BackgroundWorker("Ledger events", func(ctx context.Context) {
		deps.Ledger.Events.TransactionCommitted.Attach(onTransactionCommitted)
		deps.Ledger.Events.LogEmitted.Attach(onLogEmitted)
		<-ctx.Done()
		deps.Ledger.Events.TransactionCommitted.Detach(onTransactionCommitted)
		deps.Ledger.Events.LogEmitted.Detach(onLogEmitted)
	}, shutdown.PriorityLedgerEvents); err != nil {
		CorePlugin.LogPanicf("failed to start worker: %s", err)
	}

	if err := CorePlugin.Daemon().BackgroundWorker("Close ledger", func(ctx context.Context) {
		<-ctx.Done()
		CorePlugin.LogInfo("Closing ledger ...")
		if err := deps.Ledger.Close(); err != nil {
			CorePlugin.LogErrorf("closing ledger failed: %s", err)
		}
		CorePlugin.LogInfo("Closing ledger ... done")
	}, shutdown.PriorityCloseLedger); err != nil {
		CorePlugin.LogPanicf("failed to start worker: %s", err)
	}
}

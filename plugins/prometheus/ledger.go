package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

var (
	ledgerCommittedTransactions prometheus.Gauge
	ledgerEmittedLogs           prometheus.Gauge
	ledgerSequence              prometheus.Gauge

	contestCycle            prometheus.Gauge
	contestPhase            *prometheus.GaugeVec
	contestPhaseTransitions prometheus.Gauge
	contestTransitionDue    prometheus.Gauge

	auctionSettled    prometheus.Gauge
	auctionHighestBid prometheus.Gauge

	governanceProposals         prometheus.Gauge
	governanceExecutedProposals prometheus.Gauge

	treasuryBalance prometheus.Gauge
)

func newLedgerGauge(subsystem string, name string, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cycled",
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	registry.MustRegister(gauge)
	return gauge
}

func configureLedger() {
	ledgerCommittedTransactions = newLedgerGauge("ledger", "committed_transactions", "The number of committed transactions since start.")
	ledgerEmittedLogs = newLedgerGauge("ledger", "emitted_logs", "The number of emitted logs since start.")
	ledgerSequence = newLedgerGauge("ledger", "sequence", "The sequence of the last committed transaction.")

	contestCycle = newLedgerGauge("contest", "cycle", "The running contest cycle.")
	contestPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cycled",
			Subsystem: "contest",
			Name:      "phase",
			Help:      "The phase of the running contest cycle.",
		},
		[]string{"phase"},
	)
	registry.MustRegister(contestPhase)
	contestPhaseTransitions = newLedgerGauge("contest", "phase_transitions", "The number of phase transitions since start.")
	contestTransitionDue = newLedgerGauge("contest", "transition_due", "Whether the deadline of the running phase has passed.")

	auctionSettled = newLedgerGauge("auction", "settled", "The number of settled auctions since start.")
	auctionHighestBid = newLedgerGauge("auction", "highest_bid", "The highest bid of the latest auction.")

	governanceProposals = newLedgerGauge("governance", "proposals", "The number of created proposals.")
	governanceExecutedProposals = newLedgerGauge("governance", "executed_proposals", "The number of executed proposals since start.")

	treasuryBalance = newLedgerGauge("treasury", "balance", "The native balance of the treasury.")

	addCollect(collectLedger)
}

func collectLedger() {
	ledgerCommittedTransactions.Set(float64(deps.LedgerMetrics.CommittedTransactions.Load()))
	ledgerEmittedLogs.Set(float64(deps.LedgerMetrics.EmittedLogs.Load()))
	contestPhaseTransitions.Set(float64(deps.LedgerMetrics.PhaseTransitions.Load()))
	auctionSettled.Set(float64(deps.LedgerMetrics.SettledAuctions.Load()))
	governanceExecutedProposals.Set(float64(deps.LedgerMetrics.ExecutedProposals.Load()))

	if err := deps.Ledger.View(func(state ledger.State) error {
		ledgerSequence.Set(float64(state.Sequence()))

		info, err := deps.DAO.Contest.CurrentPhaseInfo(state)
		if err != nil {
			return err
		}
		contestCycle.Set(float64(info.Cycle))
		contestPhase.Reset()
		contestPhase.WithLabelValues(info.Phase.String()).Set(1)
		contestTransitionDue.Set(0)
		if info.Due {
			contestTransitionDue.Set(1)
		}

		current, err := deps.DAO.Auction.Current(state)
		if err != nil {
			return err
		}
		auctionHighestBid.Set(0)
		if current != nil {
			auctionHighestBid.Set(float64(current.HighestBid))
		}

		count, err := deps.DAO.Governance.ProposalCount(state)
		if err != nil {
			return err
		}
		governanceProposals.Set(float64(count))

		balance, err := ledger.BalanceOf(state, deps.DAO.Treasury.Address())
		if err != nil {
			return err
		}
		treasuryBalance.Set(float64(balance))
		return nil
	}); err != nil {
		Plugin.LogWarnf("collecting ledger metrics failed: %s", err)
	}
}

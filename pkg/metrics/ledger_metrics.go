package metrics

import (
	"go.uber.org/atomic"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

// LedgerMetrics defines ledger metrics over the entire runtime of the node.
type LedgerMetrics struct {
	// The number of committed transactions.
	CommittedTransactions atomic.Uint64
	// The number of emitted logs.
	EmittedLogs atomic.Uint64
	// The number of executed contest phase transitions.
	PhaseTransitions atomic.Uint64
	// The number of settled auctions.
	SettledAuctions atomic.Uint64
	// The number of executed proposals.
	ExecutedProposals atomic.Uint64
	// The sequence of the last committed transaction.
	LastSequence atomic.Uint64
}

// TransactionCommitted counts a committed transaction.
func (m *LedgerMetrics) TransactionCommitted(receipt *ledger.Receipt) {
	m.CommittedTransactions.Inc()
	m.LastSequence.Store(receipt.Sequence)
}

// LogEmitted counts an emitted log.
func (m *LedgerMetrics) LogEmitted(log *ledger.Log) {
	m.EmittedLogs.Inc()

	switch log.Name {
	case "PhaseAdvanced":
		m.PhaseTransitions.Inc()
	case "AuctionSettled":
		m.SettledAuctions.Inc()
	case "ProposalExecuted":
		m.ExecutedProposals.Inc()
	}
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

func TestLedgerMetrics(t *testing.T) {
	m := &LedgerMetrics{}

	m.TransactionCommitted(&ledger.Receipt{Sequence: 7})
	m.TransactionCommitted(&ledger.Receipt{Sequence: 8})
	require.EqualValues(t, 2, m.CommittedTransactions.Load())
	require.EqualValues(t, 8, m.LastSequence.Load())

	for _, name := range []string{"PhaseAdvanced", "VoteCast", "AuctionSettled", "ProposalExecuted", "PhaseAdvanced"} {
		m.LogEmitted(&ledger.Log{Name: name})
	}
	require.EqualValues(t, 5, m.EmittedLogs.Load())
	require.EqualValues(t, 2, m.PhaseTransitions.Load())
	require.EqualValues(t, 1, m.SettledAuctions.Load())
	require.EqualValues(t, 1, m.ExecutedProposals.Load())
}

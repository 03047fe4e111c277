package testsuite

import (
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

// Balance returns the native balance of address.
func (te *TestEnvironment) Balance(address ledger.Address) uint64 {
	return te.TokenBalance(ledger.NativeDenom, address)
}

// TokenBalance returns the balance of denom held by address.
func (te *TestEnvironment) TokenBalance(denom ledger.Denom, address ledger.Address) uint64 {
	var balance uint64
	te.View(func(state ledger.State) error {
		var err error
		balance, err = ledger.TokenBalanceOf(state, denom, address)
		return err
	})
	return balance
}

// AssertBalance checks the native balance of address.
func (te *TestEnvironment) AssertBalance(address ledger.Address, balance uint64) {
	require.Equal(te.testState, balance, te.Balance(address), "balance of %s", address)
}

// AssertTokenBalance checks the balance of denom held by address.
func (te *TestEnvironment) AssertTokenBalance(denom ledger.Denom, address ledger.Address, balance uint64) {
	require.Equal(te.testState, balance, te.TokenBalance(denom, address), "%s balance of %s", denom, address)
}

// AssertTotalSupply checks that the native balances of the given addresses sum up to supply.
func (te *TestEnvironment) AssertTotalSupply(supply uint64, addresses ...ledger.Address) {
	var sum uint64
	for _, address := range addresses {
		sum += te.Balance(address)
	}
	require.Equal(te.testState, supply, sum)
}

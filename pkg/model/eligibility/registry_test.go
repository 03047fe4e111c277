package eligibility_test

import (
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/eligibility"
	"github.com/slotdao/cycled/pkg/model/ledger"
)

var (
	owner = ledger.ContractAddress("owner")
	alice = ledger.ContractAddress("alice")
	bob   = ledger.ContractAddress("bob")
)

func TestWeightCheckpoints(t *testing.T) {
	l := ledger.New(mapdb.NewMapDB(), ledger.WithClock(ledger.NewManualClock(time.Unix(1000, 0))))
	registry := eligibility.NewRegistry()
	l.RegisterContract(registry)

	// sequence 1
	require.NoError(t, l.Genesis(func(tx *ledger.Tx) error {
		if err := registry.Mint(tx, alice, 3); err != nil {
			return err
		}
		return registry.SetOwner(tx, owner)
	}))

	// sequence 2
	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		return registry.Transfer(tx, bob, 2)
	})
	require.NoError(t, err)

	// sequence 3
	_, err = l.Transact(owner, func(tx *ledger.Tx) error {
		return registry.Mint(tx, bob, 5)
	})
	require.NoError(t, err)

	require.NoError(t, l.View(func(state ledger.State) error {
		for _, test := range []struct {
			principal ledger.Address
			sequence  uint64
			weight    uint64
		}{
			{alice, 0, 0},
			{alice, 1, 3},
			{alice, 2, 1},
			{alice, 3, 1},
			{bob, 1, 0},
			{bob, 2, 2},
			{bob, 3, 7},
			{bob, 100, 7},
		} {
			weight, err := registry.WeightAt(state, test.principal, test.sequence)
			require.NoError(t, err)
			require.Equal(t, test.weight, weight, "%s at %d", test.principal, test.sequence)
		}

		weight, err := registry.Weight(state, bob)
		require.NoError(t, err)
		require.EqualValues(t, 7, weight)
		return nil
	}))
}

func TestMintAndTransferChecks(t *testing.T) {
	l := ledger.New(mapdb.NewMapDB())
	registry := eligibility.NewRegistry()

	require.NoError(t, l.Genesis(func(tx *ledger.Tx) error {
		return registry.Mint(tx, alice, 1)
	}))

	// without an owner nobody but genesis mints
	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		return registry.Mint(tx, alice, 1)
	})
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		return registry.Transfer(tx, bob, 2)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		return registry.Transfer(tx, ledger.NullAddress, 1)
	})
	require.ErrorIs(t, err, ledger.ErrInvalidAddress)
}

package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

func TestTransferToSelfKeepsBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		return tx.Transfer(alice, alice, 100)
	})
	require.NoError(t, err)
	require.EqualValues(t, 100, balance(t, l, alice))

	// a plain value call to the own address is a self transfer too
	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		_, err := tx.Call(alice, 100, "", nil)
		return err
	})
	require.NoError(t, err)
	require.EqualValues(t, 100, balance(t, l, alice))

	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		return tx.Transfer(alice, alice, 101)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	require.EqualValues(t, 100, balance(t, l, alice))
}

func TestTransferConservesSupply(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		if err := tx.Transfer(alice, bob, 30); err != nil {
			return err
		}
		if err := tx.Transfer(bob, bob, 30); err != nil {
			return err
		}
		return tx.Transfer(bob, alice, 10)
	})
	require.NoError(t, err)
	require.EqualValues(t, 80, balance(t, l, alice))
	require.EqualValues(t, 20, balance(t, l, bob))
}

func TestUint64RoundTrip(t *testing.T) {
	l, _ := newTestLedger(t)
	key := []byte{0xF1, 1}

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		tx.PutUint64(key, 10)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, l.View(func(state ledger.State) error {
		value, err := ledger.ReadUint64(state, key)
		require.NoError(t, err)
		require.EqualValues(t, 10, value)
		return nil
	}))
}

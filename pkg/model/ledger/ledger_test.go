package ledger_test

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

var (
	alice = ledger.ContractAddress("alice")
	bob   = ledger.ContractAddress("bob")
)

type rejectingReceiver struct{}

func (rejectingReceiver) OnReceive(_ *ledger.Tx, _ ledger.Denom, _ uint64) error {
	return errors.New("no thanks")
}

func (rejectingReceiver) OnReceiveAsset(_ *ledger.Tx, _ ledger.Address, _ uint64) error {
	return errors.New("no thanks")
}

func newTestLedger(t *testing.T) (*ledger.Ledger, *ledger.ManualClock) {
	clock := ledger.NewManualClock(time.Unix(1000, 0))
	l := ledger.New(mapdb.NewMapDB(), ledger.WithClock(clock))
	require.NoError(t, l.Genesis(func(tx *ledger.Tx) error {
		return tx.Mint(ledger.NativeDenom, alice, 100)
	}))
	return l, clock
}

func balance(t *testing.T, l *ledger.Ledger, address ledger.Address) uint64 {
	var b uint64
	require.NoError(t, l.View(func(state ledger.State) error {
		var err error
		b, err = ledger.BalanceOf(state, address)
		return err
	}))
	return b
}

func TestTransactIsAtomic(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		if err := tx.Transfer(alice, bob, 40); err != nil {
			return err
		}
		return tx.Transfer(alice, bob, 80)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	require.Equal(t, ledger.KindInsufficientFunds, ledger.KindOf(err))

	require.EqualValues(t, 100, balance(t, l, alice))
	require.EqualValues(t, 0, balance(t, l, bob))
}

func TestSequenceAndTimestamp(t *testing.T) {
	l, clock := newTestLedger(t)

	receipt, err := l.Transact(alice, func(tx *ledger.Tx) error { return nil })
	require.NoError(t, err)
	require.EqualValues(t, 2, receipt.Sequence)
	require.Equal(t, int64(1000), receipt.Timestamp.Unix())

	// ledger time never goes backwards
	clock.Set(time.Unix(500, 0))
	receipt, err = l.Transact(alice, func(tx *ledger.Tx) error { return nil })
	require.NoError(t, err)
	require.EqualValues(t, 3, receipt.Sequence)
	require.Equal(t, int64(1000), receipt.Timestamp.Unix())

	// failed transactions do not consume a sequence number
	_, err = l.Transact(alice, func(tx *ledger.Tx) error { return ledger.ErrNothingToDo })
	require.Error(t, err)
	require.NoError(t, l.View(func(state ledger.State) error {
		require.EqualValues(t, 3, state.Sequence())
		return nil
	}))
}

func TestSavepointDiscardsFailedInnerWork(t *testing.T) {
	l, _ := newTestLedger(t)

	receipt, err := l.Transact(alice, func(tx *ledger.Tx) error {
		tx.Emit(alice, "Outer", nil)

		innerErr := tx.Savepoint(func(tx *ledger.Tx) error {
			tx.Emit(alice, "Inner", nil)
			if err := tx.Transfer(alice, bob, 10); err != nil {
				return err
			}
			return errors.New("inner failure")
		})
		require.Error(t, innerErr)

		return tx.Transfer(alice, bob, 5)
	})
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	require.Equal(t, "Outer", receipt.Logs[0].Name)

	require.EqualValues(t, 95, balance(t, l, alice))
	require.EqualValues(t, 5, balance(t, l, bob))
}

func TestRejectedTransferLeavesNoTrace(t *testing.T) {
	l, _ := newTestLedger(t)
	l.RegisterReceiver(bob, rejectingReceiver{})

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		err := tx.Transfer(alice, bob, 10)
		require.ErrorIs(t, err, ledger.ErrTransferRejected)
		require.Equal(t, ledger.KindExternalCall, ledger.KindOf(err))
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 100, balance(t, l, alice))
}

func TestEnterRejectsReentry(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		release, err := tx.Enter(bob)
		require.NoError(t, err)

		_, err = tx.Enter(bob)
		require.ErrorIs(t, err, ledger.ErrReentrantCall)

		release()
		release, err = tx.Enter(bob)
		require.NoError(t, err)
		release()
		return nil
	})
	require.NoError(t, err)
}

func TestIterateIsOrderedAndSeesOverlay(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		tx.Set([]byte{0xF0, 3}, []byte{3})
		tx.Set([]byte{0xF0, 1}, []byte{1})
		return nil
	})
	require.NoError(t, err)

	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		tx.Set([]byte{0xF0, 2}, []byte{2})
		tx.Delete([]byte{0xF0, 3})

		var seen []byte
		require.NoError(t, tx.Iterate([]byte{0xF0}, func(key []byte, value []byte) bool {
			seen = append(seen, value[0])
			return true
		}))
		require.Equal(t, []byte{1, 2}, seen)
		return nil
	})
	require.NoError(t, err)
}

type echoContract struct{}

func (echoContract) Address() ledger.Address { return ledger.ContractAddress("echo") }
func (echoContract) Name() string            { return "echo" }
func (echoContract) Methods() map[string]*ledger.Method {
	return map[string]*ledger.Method{
		"echo": {
			Payable: true,
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) {
				var in struct {
					Text string `json:"text"`
				}
				if err := ledger.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"text":  in.Text,
					"value": tx.ValueFor(ledger.ContractAddress("echo")),
				}, nil
			},
		},
		"plain": {
			Handler: func(tx *ledger.Tx, args json.RawMessage) (interface{}, error) { return nil, nil },
		},
	}
}

func TestSubmitSignedTransaction(t *testing.T) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	clock := ledger.NewManualClock(time.Unix(1000, 0))
	l := ledger.New(mapdb.NewMapDB(), ledger.WithClock(clock))
	l.RegisterContract(echoContract{})

	sender := ledger.AddressFromPublicKey(privateKey.Public().(ed25519.PublicKey))
	require.NoError(t, l.Genesis(func(tx *ledger.Tx) error {
		return tx.Mint(ledger.NativeDenom, sender, 50)
	}))

	transaction, err := ledger.NewTransaction(echoContract{}.Address(), 7, "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)
	transaction.Sign(privateKey, 0)
	require.Equal(t, sender, transaction.Sender())

	receipt, err := l.Submit(transaction)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"text": "hi", "value": uint64(7)}, receipt.Result)
	require.EqualValues(t, 43, balance(t, l, sender))

	// replaying the same transaction fails
	_, err = l.Submit(transaction)
	require.ErrorIs(t, err, ledger.ErrInvalidNonce)

	// value to a non payable method fails but still consumes the nonce
	transaction, err = ledger.NewTransaction(echoContract{}.Address(), 1, "plain", nil)
	require.NoError(t, err)
	transaction.Sign(privateKey, 1)
	_, err = l.Submit(transaction)
	require.ErrorIs(t, err, ledger.ErrNotPayable)

	nonce, err := l.Nonce(sender)
	require.NoError(t, err)
	require.EqualValues(t, 2, nonce)

	// tampering breaks the signature
	transaction, err = ledger.NewTransaction(echoContract{}.Address(), 0, "plain", nil)
	require.NoError(t, err)
	transaction.Sign(privateKey, 2)
	transaction.Value = 5
	_, err = l.Submit(transaction)
	require.ErrorIs(t, err, ledger.ErrInvalidSignature)
	require.Equal(t, ledger.KindAuthorization, ledger.KindOf(err))
}

// countingStore counts the writes that reach the underlying store.
type countingStore struct {
	kvstore.KVStore
	directWrites int
	batches      int
}

func (s *countingStore) Set(key kvstore.Key, value kvstore.Value) error {
	s.directWrites++
	return s.KVStore.Set(key, value)
}

func (s *countingStore) Batched() kvstore.BatchedMutations {
	s.batches++
	return s.KVStore.Batched()
}

func TestSubmitCommitsNonceWithEffects(t *testing.T) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sender := ledger.AddressFromPublicKey(privateKey.Public().(ed25519.PublicKey))

	store := &countingStore{KVStore: mapdb.NewMapDB()}
	l := ledger.New(store, ledger.WithClock(ledger.NewManualClock(time.Unix(1000, 0))))
	l.RegisterContract(echoContract{})
	require.NoError(t, l.Genesis(func(tx *ledger.Tx) error {
		return tx.Mint(ledger.NativeDenom, sender, 50)
	}))

	store.directWrites, store.batches = 0, 0

	transaction, err := ledger.NewTransaction(echoContract{}.Address(), 7, "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)
	transaction.Sign(privateKey, 0)
	_, err = l.Submit(transaction)
	require.NoError(t, err)

	require.Zero(t, store.directWrites)
	require.Equal(t, 1, store.batches)
	require.EqualValues(t, 43, balance(t, l, sender))
	nonce, err := l.Nonce(sender)
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce)

	// a failed call commits the consumed nonce alone
	transaction, err = ledger.NewTransaction(echoContract{}.Address(), 1, "plain", nil)
	require.NoError(t, err)
	transaction.Sign(privateKey, 1)
	_, err = l.Submit(transaction)
	require.ErrorIs(t, err, ledger.ErrNotPayable)

	require.Zero(t, store.directWrites)
	require.Equal(t, 2, store.batches)
	require.EqualValues(t, 43, balance(t, l, sender))
	nonce, err = l.Nonce(sender)
	require.NoError(t, err)
	require.EqualValues(t, 2, nonce)
	require.NoError(t, l.View(func(state ledger.State) error {
		require.EqualValues(t, 2, state.Sequence())
		return nil
	}))
}

func TestErrorCodesRoundTrip(t *testing.T) {
	for _, sentinel := range []*ledger.Error{ledger.ErrNothingToDo, ledger.ErrAlreadySettled, ledger.ErrBidTooLow} {
		e, exists := ledger.ErrorForCode(sentinel.Code())
		require.True(t, exists)
		require.Same(t, sentinel, e)
	}

	wrapped := errors.Wrap(ledger.ErrAlreadySettled, "auction 3")
	require.True(t, ledger.IsAlreadyDone(wrapped))
	require.Equal(t, "AlreadySettled", ledger.CodeOf(wrapped))
	require.False(t, ledger.IsAlreadyDone(ledger.ErrNotAuthorized))
}

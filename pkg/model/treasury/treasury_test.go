package treasury_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/treasury"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
)

const (
	usdc ledger.Denom = "usdc"
)

var (
	payee    = utils.NewNamedWallet("Payee").Address()
	outsider = utils.NewNamedWallet("Outsider").Address()
)

type callbackReceiver struct {
	onReceive func(tx *ledger.Tx) error
}

func (r *callbackReceiver) OnReceive(tx *ledger.Tx, _ ledger.Denom, _ uint64) error {
	return r.onReceive(tx)
}

func (r *callbackReceiver) OnReceiveAsset(_ *ledger.Tx, _ ledger.Address, _ uint64) error {
	return nil
}

func setupTreasury(t *testing.T) *testsuite.TestEnvironment {
	treasuryAddress := ledger.ContractAddress("treasury")
	return testsuite.SetupTestEnvironment(t, &dao.Genesis{
		Balances: map[ledger.Address]uint64{treasuryAddress: 50},
		Tokens: map[ledger.Denom]map[ledger.Address]uint64{
			usdc: {treasuryAddress: 100},
		},
	}, nil)
}

func asGovernor(te *testsuite.TestEnvironment, fn func(tx *ledger.Tx) error) error {
	_, err := te.Transact(te.DAO.Governance.Address(), fn)
	return err
}

func TestTransferNativeAboveBalance(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	err := asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx, payee, 80)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	te.AssertBalance(te.DAO.Treasury.Address(), 50)
	te.AssertBalance(payee, 0)

	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx, payee, 20)
	}))
	te.AssertBalance(te.DAO.Treasury.Address(), 30)
	te.AssertBalance(payee, 20)
}

func TestTransferToTreasuryKeepsBalance(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	treasuryAddress := te.DAO.Treasury.Address()

	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx, treasuryAddress, 50)
	}))
	te.AssertBalance(treasuryAddress, 50)

	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferAsset(tx, usdc, treasuryAddress, 100)
	}))
	te.AssertTokenBalance(usdc, treasuryAddress, 100)
}

func TestOnlyGovernorInstructs(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	_, err := te.Transact(outsider, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx, outsider, 1)
	})
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = te.Transact(outsider, func(tx *ledger.Tx) error {
		_, err := te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{Target: outsider, Value: 1})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = te.Transact(outsider, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.SetGovernor(tx, outsider)
	})
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)
	require.Equal(t, ledger.KindAuthorization, ledger.KindOf(err))
}

func TestTransferAsset(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferAsset(tx, usdc, payee, 40)
	}))
	te.AssertTokenBalance(usdc, payee, 40)
	te.AssertTokenBalance(usdc, te.DAO.Treasury.Address(), 60)

	// a rejecting receiver fails the whole transfer
	te.Ledger.RegisterReceiver(outsider, &callbackReceiver{onReceive: func(_ *ledger.Tx) error {
		return errors.New("closed")
	}})
	err := asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferAsset(tx, usdc, outsider, 10)
	})
	require.ErrorIs(t, err, ledger.ErrTransferRejected)
	te.AssertTokenBalance(usdc, te.DAO.Treasury.Address(), 60)
}

func TestExecuteCallReportsFailureAsData(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	var results []*treasury.CallResult
	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		// no auction is running
		failed, err := te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{
			Target:  te.DAO.Auction.Address(),
			Value:   5,
			Command: treasury.Command{Method: "placeBid"},
		})
		if err != nil {
			return err
		}

		paid, err := te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{Target: payee, Value: 7})
		if err != nil {
			return err
		}

		args, _ := json.Marshal(map[string]string{"description": "fund the festival"})
		created, err := te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{
			Target:  te.DAO.Candidates.Address(),
			Value:   te.Parameters.CandidateFee,
			Command: treasury.Command{Method: "createCandidate", Args: args},
		})
		if err != nil {
			return err
		}

		results = append(results, failed, paid, created)
		return nil
	}))

	require.False(t, results[0].Success)
	require.Equal(t, ledger.ErrAuctionNotActive.Code(), results[0].Code)
	require.True(t, results[1].Success)
	require.True(t, results[2].Success)

	// the failed bid moved nothing, the fee came back to the treasury
	te.AssertBalance(payee, 7)
	te.AssertBalance(te.DAO.Auction.Address(), 0)
	te.AssertBalance(te.DAO.Treasury.Address(), 43)

	// more value than the treasury holds fails the call instead of returning data
	err := asGovernor(te, func(tx *ledger.Tx) error {
		_, err := te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{Target: payee, Value: 1000})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestBatchExecute(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	err := asGovernor(te, func(tx *ledger.Tx) error {
		_, err := te.DAO.Treasury.BatchExecute(tx, []ledger.Address{payee}, []uint64{1, 2}, []treasury.Command{{}})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrLengthMismatch)

	var results []*treasury.CallResult
	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		var err error
		results, err = te.DAO.Treasury.BatchExecute(tx,
			[]ledger.Address{te.DAO.Governance.Address(), payee},
			[]uint64{0, 3},
			[]treasury.Command{{Method: "noSuchMethod"}, {}},
		)
		return err
	}))

	require.Len(t, results, 2)
	require.False(t, results[0].Success)
	require.Equal(t, ledger.ErrUnknownMethod.Code(), results[0].Code)
	require.True(t, results[1].Success)
	te.AssertBalance(payee, 3)
}

func TestExecuteCallIsNotReentrant(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	// the payee tries to pull more funds while receiving
	te.Ledger.RegisterReceiver(payee, &callbackReceiver{onReceive: func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx.WithCaller(te.DAO.Governance.Address()), payee, 10)
	}})

	var result *treasury.CallResult
	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		var err error
		result, err = te.DAO.Treasury.ExecuteCall(tx, &treasury.Call{Target: payee, Value: 5})
		return err
	}))

	require.False(t, result.Success)
	require.Equal(t, ledger.ErrTransferRejected.Code(), result.Code)
	require.Contains(t, string(result.ReturnData), "reentrant")
	te.AssertBalance(te.DAO.Treasury.Address(), 50)
	te.AssertBalance(payee, 0)
}

func TestSetGovernor(t *testing.T) {
	te := setupTreasury(t)
	defer te.CleanupTestEnvironment()

	for _, invalid := range []ledger.Address{ledger.NullAddress, te.DAO.Treasury.Address()} {
		err := asGovernor(te, func(tx *ledger.Tx) error {
			return te.DAO.Treasury.SetGovernor(tx, invalid)
		})
		require.ErrorIs(t, err, ledger.ErrInvalidGovernor)
	}

	require.NoError(t, asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.SetGovernor(tx, outsider)
	}))

	te.View(func(state ledger.State) error {
		governor, err := te.DAO.Treasury.Governor(state)
		require.NoError(t, err)
		require.Equal(t, outsider, governor)
		return nil
	})

	// the previous governor lost its rights
	err := asGovernor(te, func(tx *ledger.Tx) error {
		return te.DAO.Treasury.TransferNative(tx, payee, 1)
	})
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)
}

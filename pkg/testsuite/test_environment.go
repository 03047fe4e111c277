package testsuite

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"

	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
)

var (
	// GenesisTime is the ledger time of the genesis transaction of every test environment.
	GenesisTime = time.Unix(1_000_000, 0)
)

// TestEnvironment holds the state of the test environment.
type TestEnvironment struct {
	// testState is the state of the current test case.
	testState *testing.T

	// Clock drives the ledger time.
	Clock *ledger.ManualClock

	// Ledger is the ledger all engines are registered on.
	Ledger *ledger.Ledger

	// DAO holds the engines.
	DAO *dao.DAO

	// Parameters are the engine parameters of the environment.
	Parameters *dao.Parameters

	// store is the temporary key value store for the test.
	store kvstore.KVStore
}

// DefaultParameters returns the engine parameters used by most tests.
func DefaultParameters() *dao.Parameters {
	return &dao.Parameters{
		UploadDuration:   time.Hour,
		VotingDuration:   time.Hour,
		BiddingDuration:  time.Hour,
		AuctionDuration:  time.Hour,
		VotingDelay:      time.Minute,
		VotingPeriod:     time.Hour,
		Quorum:           5,
		CandidateFee:     10,
		SponsorThreshold: 3,
	}
}

// SetupTestEnvironment initializes a clean in-memory ledger, registers all engines
// and applies genesis. A nil params uses DefaultParameters.
func SetupTestEnvironment(testState *testing.T, genesis *dao.Genesis, params *dao.Parameters) *TestEnvironment {
	if params == nil {
		params = DefaultParameters()
	}
	if genesis == nil {
		genesis = &dao.Genesis{}
	}

	te := &TestEnvironment{
		testState:  testState,
		Clock:      ledger.NewManualClock(GenesisTime),
		Parameters: params,
		store:      mapdb.NewMapDB(),
	}

	te.Ledger = ledger.New(te.store, ledger.WithClock(te.Clock))
	te.DAO = dao.New(te.Ledger, params, nil)
	require.NoError(testState, te.DAO.Init(genesis))

	return te
}

// CleanupTestEnvironment cleans up everything at the end of the test.
func (te *TestEnvironment) CleanupTestEnvironment() {
	require.NoError(te.testState, te.Ledger.Close())
}

// Store returns the key value store of the environment.
func (te *TestEnvironment) Store() kvstore.KVStore {
	return te.store
}

// AdvanceTime moves the ledger clock forward.
func (te *TestEnvironment) AdvanceTime(d time.Duration) {
	te.Clock.Advance(d)
}

// SetTime sets the ledger clock to the given unix second.
func (te *TestEnvironment) SetTime(unix int64) {
	te.Clock.Set(time.Unix(unix, 0))
}

// Transact executes fn as a transaction of caller.
func (te *TestEnvironment) Transact(caller ledger.Address, fn func(tx *ledger.Tx) error) (*ledger.Receipt, error) {
	return te.Ledger.Transact(caller, fn)
}

// Call invokes method of the contract at target as caller, the way a transaction would.
func (te *TestEnvironment) Call(caller ledger.Address, target ledger.Address, value uint64, method string, args interface{}) (*ledger.Receipt, error) {
	var argsBytes json.RawMessage
	if args != nil {
		var err error
		argsBytes, err = json.Marshal(args)
		require.NoError(te.testState, err)
	}

	var result interface{}
	receipt, err := te.Ledger.Transact(caller, func(tx *ledger.Tx) error {
		var callErr error
		result, callErr = tx.Call(target, value, method, argsBytes)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	receipt.Result = result
	return receipt, nil
}

// View runs fn on the committed state and fails the test on error.
func (te *TestEnvironment) View(fn func(state ledger.State) error) {
	require.NoError(te.testState, te.Ledger.View(fn))
}

// PhaseInfo returns the running contest cycle.
func (te *TestEnvironment) PhaseInfo() *contest.PhaseInfo {
	var info *contest.PhaseInfo
	te.View(func(state ledger.State) error {
		var err error
		info, err = te.DAO.Contest.CurrentPhaseInfo(state)
		return err
	})
	return info
}

// AdvancePhase waits for the deadline of the running phase and advances it.
func (te *TestEnvironment) AdvancePhase() *contest.Transition {
	info := te.PhaseInfo()
	if te.Clock.Now().Before(info.Deadline) {
		te.Clock.Set(info.Deadline)
	}

	var transition *contest.Transition
	_, err := te.Transact(ledger.NullAddress, func(tx *ledger.Tx) error {
		var err error
		transition, err = te.DAO.Contest.AdvancePhase(tx)
		return err
	})
	require.NoError(te.testState, err)
	return transition
}

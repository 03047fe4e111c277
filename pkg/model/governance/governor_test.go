package governance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/governance"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/treasury"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
)

var (
	alice    = utils.NewNamedWallet("Alice").Address()
	bob      = utils.NewNamedWallet("Bob").Address()
	carol    = utils.NewNamedWallet("Carol").Address()
	payee    = utils.NewNamedWallet("Payee").Address()
	outsider = utils.NewNamedWallet("Outsider").Address()
)

func setupGovernance(t *testing.T) *testsuite.TestEnvironment {
	return testsuite.SetupTestEnvironment(t, &dao.Genesis{
		Members: map[ledger.Address]uint64{
			alice: 3,
			bob:   4,
			carol: 1,
		},
		Balances: map[ledger.Address]uint64{
			ledger.ContractAddress("treasury"): 100,
		},
	}, nil)
}

func propose(te *testsuite.TestEnvironment, proposer ledger.Address, description string, call *treasury.Call) (*governance.Proposal, error) {
	var proposal *governance.Proposal
	_, err := te.Transact(proposer, func(tx *ledger.Tx) error {
		var err error
		proposal, err = te.DAO.Governance.Propose(tx, description, call)
		return err
	})
	return proposal, err
}

func castVote(te *testsuite.TestEnvironment, voter ledger.Address, id uint64, choice governance.Choice) error {
	_, err := te.Transact(voter, func(tx *ledger.Tx) error {
		_, err := te.DAO.Governance.Vote(tx, id, choice)
		return err
	})
	return err
}

func execute(te *testsuite.TestEnvironment, caller ledger.Address, id uint64) (*treasury.CallResult, error) {
	var result *treasury.CallResult
	_, err := te.Transact(caller, func(tx *ledger.Tx) error {
		var err error
		result, err = te.DAO.Governance.Execute(tx, id)
		return err
	})
	return result, err
}

func finalize(te *testsuite.TestEnvironment, id uint64) (governance.ProposalState, error) {
	var state governance.ProposalState
	_, err := te.Transact(outsider, func(tx *ledger.Tx) error {
		var err error
		state, err = te.DAO.Governance.Finalize(tx, id)
		return err
	})
	return state, err
}

func proposalState(te *testsuite.TestEnvironment, id uint64) governance.ProposalState {
	var state governance.ProposalState
	te.View(func(state2 ledger.State) error {
		proposal, err := te.DAO.Governance.GetProposal(state2, id)
		if err != nil {
			return err
		}
		state = proposal.State
		return nil
	})
	return state
}

func TestProposalLifecycle(t *testing.T) {
	te := setupGovernance(t)
	defer te.CleanupTestEnvironment()

	payout := &treasury.Call{Target: payee, Value: 30}

	proposal, err := propose(te, alice, "pay the payee", payout)
	require.NoError(t, err)
	require.EqualValues(t, 1, proposal.ID)
	require.Equal(t, governance.ProposalStatePending, proposalState(te, proposal.ID))

	_, err = propose(te, alice, "pay the payee twice", payout)
	require.ErrorIs(t, err, ledger.ErrProposalAlreadyActive)

	te.AdvanceTime(te.Parameters.VotingDelay)
	require.Equal(t, governance.ProposalStateActive, proposalState(te, proposal.ID))

	_, err = propose(te, alice, "pay the payee twice", payout)
	require.ErrorIs(t, err, ledger.ErrProposalAlreadyActive)

	require.NoError(t, castVote(te, alice, proposal.ID, governance.ChoiceFor))
	require.NoError(t, castVote(te, bob, proposal.ID, governance.ChoiceFor))
	require.NoError(t, castVote(te, carol, proposal.ID, governance.ChoiceAgainst))

	_, err = execute(te, bob, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrWrongState)

	te.AdvanceTime(te.Parameters.VotingPeriod)
	require.Equal(t, governance.ProposalStateSucceeded, proposalState(te, proposal.ID))

	// a succeeded proposal is still live
	_, err = propose(te, alice, "pay the payee twice", payout)
	require.ErrorIs(t, err, ledger.ErrProposalAlreadyActive)

	_, err = execute(te, outsider, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	result, err := execute(te, bob, proposal.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, governance.ProposalStateExecuted, proposalState(te, proposal.ID))
	te.AssertBalance(payee, 30)
	te.AssertBalance(te.DAO.Treasury.Address(), 70)

	_, err = execute(te, bob, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)
	te.AssertBalance(payee, 30)

	next, err := propose(te, alice, "pay the payee again", payout)
	require.NoError(t, err)
	require.EqualValues(t, 2, next.ID)

	te.View(func(state ledger.State) error {
		count, err := te.DAO.Governance.ProposalCount(state)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)

		proposals, err := te.DAO.Governance.Proposals(state)
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		require.EqualValues(t, 7, proposals[0].ForVotes)
		require.EqualValues(t, 1, proposals[0].AgainstVotes)
		require.True(t, proposals[0].Result.Success)
		return nil
	})
}

func TestProposeChecks(t *testing.T) {
	te := setupGovernance(t)
	defer te.CleanupTestEnvironment()

	_, err := propose(te, outsider, "anything", nil)
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	_, err = propose(te, alice, "  ", nil)
	require.ErrorIs(t, err, ledger.ErrEmptyDescription)

	_, err = te.Transact(alice, func(tx *ledger.Tx) error {
		_, err := te.DAO.Governance.Vote(tx, 42, governance.ChoiceFor)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrUnknownProposal)
}

func TestVoteChecks(t *testing.T) {
	te := setupGovernance(t)
	defer te.CleanupTestEnvironment()

	proposal, err := propose(te, alice, "an idea", nil)
	require.NoError(t, err)

	require.ErrorIs(t, castVote(te, bob, proposal.ID, governance.ChoiceFor), ledger.ErrWrongState)

	te.AdvanceTime(te.Parameters.VotingDelay)

	// weight acquired after the proposal was created does not count
	_, err = te.Transact(bob, func(tx *ledger.Tx) error {
		return te.DAO.Membership.Transfer(tx, outsider, 4)
	})
	require.NoError(t, err)
	require.ErrorIs(t, castVote(te, outsider, proposal.ID, governance.ChoiceFor), ledger.ErrNotEligible)

	require.ErrorIs(t, castVote(te, carol, proposal.ID, governance.Choice(7)), ledger.ErrInvalidChoice)
	require.NoError(t, castVote(te, bob, proposal.ID, governance.ChoiceAbstain))
	require.ErrorIs(t, castVote(te, bob, proposal.ID, governance.ChoiceFor), ledger.ErrAlreadyVoted)

	te.AdvanceTime(te.Parameters.VotingPeriod)
	require.ErrorIs(t, castVote(te, carol, proposal.ID, governance.ChoiceFor), ledger.ErrWrongState)
}

func TestDefeatedProposal(t *testing.T) {
	te := setupGovernance(t)
	defer te.CleanupTestEnvironment()

	proposal, err := propose(te, carol, "a weak idea", &treasury.Call{Target: payee, Value: 1})
	require.NoError(t, err)

	te.AdvanceTime(te.Parameters.VotingDelay)
	require.NoError(t, castVote(te, alice, proposal.ID, governance.ChoiceFor))

	_, err = finalize(te, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrWrongState)

	te.AdvanceTime(te.Parameters.VotingPeriod)

	// 3 for votes miss the quorum of 5
	state, err := finalize(te, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, governance.ProposalStateDefeated, state)

	_, err = finalize(te, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)

	_, err = execute(te, alice, proposal.ID)
	require.ErrorIs(t, err, ledger.ErrWrongState)
	te.AssertBalance(payee, 0)

	// a defeated proposal no longer blocks its proposer
	_, err = propose(te, carol, "a better idea", nil)
	require.NoError(t, err)
}

func TestExecutionIsFinalWhenTheCallFails(t *testing.T) {
	te := setupGovernance(t)
	defer te.CleanupTestEnvironment()

	proposal, err := propose(te, bob, "pay too much", &treasury.Call{Target: payee, Value: 1000})
	require.NoError(t, err)

	te.AdvanceTime(te.Parameters.VotingDelay)
	require.NoError(t, castVote(te, bob, proposal.ID, governance.ChoiceFor))
	require.NoError(t, castVote(te, carol, proposal.ID, governance.ChoiceFor))
	te.AdvanceTime(te.Parameters.VotingPeriod)

	result, err := execute(te, alice, proposal.ID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, ledger.ErrInsufficientBalance.Code(), result.Code)

	require.Equal(t, governance.ProposalStateExecuted, proposalState(te, proposal.ID))
	te.AssertBalance(te.DAO.Treasury.Address(), 100)
}

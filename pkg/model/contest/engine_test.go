package contest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
)

var (
	uploader = utils.NewNamedWallet("Uploader").Address()
	voter1   = utils.NewNamedWallet("Voter1").Address()
	voter2   = utils.NewNamedWallet("Voter2").Address()
	voter3   = utils.NewNamedWallet("Voter3").Address()
	outsider = utils.NewNamedWallet("Outsider").Address()
)

func setupContest(t *testing.T) *testsuite.TestEnvironment {
	return testsuite.SetupTestEnvironment(t, &dao.Genesis{
		Members: map[ledger.Address]uint64{
			uploader: 1,
			voter1:   2,
			voter2:   3,
			voter3:   5,
		},
	}, nil)
}

func submitContent(te *testsuite.TestEnvironment, caller ledger.Address, slot uint8, contentRef string) error {
	_, err := te.Transact(caller, func(tx *ledger.Tx) error {
		_, err := te.DAO.Contest.SubmitContent(tx, slot, contentRef)
		return err
	})
	return err
}

func vote(te *testsuite.TestEnvironment, caller ledger.Address, slot uint8) error {
	_, err := te.Transact(caller, func(tx *ledger.Tx) error {
		_, err := te.DAO.Contest.SubmitVote(tx, slot)
		return err
	})
	return err
}

func advance(te *testsuite.TestEnvironment) (*contest.Transition, error) {
	var transition *contest.Transition
	_, err := te.Transact(outsider, func(tx *ledger.Tx) error {
		var err error
		transition, err = te.DAO.Contest.AdvancePhase(tx)
		return err
	})
	return transition, err
}

func TestTieBreakPicksEarliestLastVote(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.NoError(t, submitContent(te, uploader, 0, "ipfs://zero"))
	require.NoError(t, submitContent(te, uploader, 5, "ipfs://five"))

	transition := te.AdvancePhase()
	require.Equal(t, contest.PhaseUploading, transition.From)
	require.Equal(t, contest.PhaseVoting, transition.To)

	start := te.PhaseInfo().Deadline.Add(-te.Parameters.VotingDuration).Unix()

	te.SetTime(start + 100)
	require.NoError(t, vote(te, voter1, 0))
	te.SetTime(start + 102)
	require.NoError(t, vote(te, voter3, 5))
	te.SetTime(start + 105)
	require.NoError(t, vote(te, voter2, 0))

	te.View(func(state ledger.State) error {
		slot0, err := te.DAO.Contest.Slot(state, 0)
		require.NoError(t, err)
		require.EqualValues(t, 5, slot0.Votes)
		require.Equal(t, start+105, slot0.LastVoteTimestamp)

		slot5, err := te.DAO.Contest.Slot(state, 5)
		require.NoError(t, err)
		require.EqualValues(t, 5, slot5.Votes)
		require.Equal(t, start+102, slot5.LastVoteTimestamp)

		votes, err := te.DAO.Contest.SlotVotes(state, 5)
		require.NoError(t, err)
		require.EqualValues(t, 5, votes)

		winner, exists, err := te.DAO.Contest.Winner(state)
		require.NoError(t, err)
		require.True(t, exists)
		require.EqualValues(t, 5, winner.Index)
		return nil
	})

	transition = te.AdvancePhase()
	require.Equal(t, contest.PhaseBidding, transition.To)
	require.EqualValues(t, 5, transition.Winner.Index)

	te.View(func(state ledger.State) error {
		current, err := te.DAO.Auction.Current(state)
		require.NoError(t, err)
		require.True(t, current.Active)
		require.Equal(t, "ipfs://five", current.Lot.ContentRef)
		require.Equal(t, transition.AuctionID, current.ID)
		return nil
	})
}

func TestSubmitVoteChecks(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.ErrorIs(t, vote(te, outsider, 0), ledger.ErrNotEligible)
	require.ErrorIs(t, vote(te, voter1, 0), ledger.ErrWrongPhase)

	require.NoError(t, submitContent(te, uploader, 3, "ipfs://three"))
	te.AdvancePhase()

	require.ErrorIs(t, vote(te, outsider, 3), ledger.ErrNotEligible)
	require.ErrorIs(t, vote(te, voter1, 4), ledger.ErrEmptySlot)
	require.ErrorIs(t, vote(te, voter1, 20), ledger.ErrInvalidSlot)
	require.NoError(t, vote(te, voter1, 3))
	require.ErrorIs(t, vote(te, voter1, 3), ledger.ErrAlreadyVoted)
	// an existing vote is reported before the empty slot
	require.ErrorIs(t, vote(te, voter1, 4), ledger.ErrAlreadyVoted)

	// votes after the deadline are rejected even before the phase advanced
	te.AdvanceTime(te.Parameters.VotingDuration)
	require.ErrorIs(t, vote(te, voter2, 3), ledger.ErrWrongPhase)
}

func TestSubmitContentChecks(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.ErrorIs(t, submitContent(te, outsider, 0, "ipfs://x"), ledger.ErrNotEligible)
	require.ErrorIs(t, submitContent(te, uploader, 0, ""), ledger.ErrInvalidArguments)
	require.ErrorIs(t, submitContent(te, uploader, 20, "ipfs://x"), ledger.ErrInvalidSlot)
	require.NoError(t, submitContent(te, uploader, 0, "ipfs://x"))
	require.ErrorIs(t, submitContent(te, voter1, 0, "ipfs://y"), ledger.ErrSlotTaken)

	te.AdvancePhase()
	require.ErrorIs(t, submitContent(te, uploader, 1, "ipfs://z"), ledger.ErrWrongPhase)

	te.View(func(state ledger.State) error {
		slots, err := te.DAO.Contest.Slots(state)
		require.NoError(t, err)
		require.Len(t, slots, 20)
		require.True(t, slots[0].HasContent)
		require.Equal(t, uploader, slots[0].Uploader)
		require.False(t, slots[1].HasContent)
		return nil
	})
}

func TestAdvancePhaseIsIdempotent(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	_, err := advance(te)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)

	te.View(func(state ledger.State) error {
		needed, info, err := te.DAO.Contest.CheckTransition(state)
		require.NoError(t, err)
		require.False(t, needed)
		require.Equal(t, contest.PhaseUploading, info.Phase)
		return nil
	})

	te.AdvanceTime(te.Parameters.UploadDuration)

	te.View(func(state ledger.State) error {
		needed, _, err := te.DAO.Contest.CheckTransition(state)
		require.NoError(t, err)
		require.True(t, needed)
		return nil
	})

	transition, err := advance(te)
	require.NoError(t, err)
	require.Equal(t, contest.PhaseVoting, transition.To)

	_, err = advance(te)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)
	require.True(t, ledger.IsAlreadyDone(err))

	info := te.PhaseInfo()
	require.Equal(t, contest.PhaseVoting, info.Phase)
	require.EqualValues(t, 1, info.Cycle)
}

func TestNoContentRestartsUploading(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	te.AdvancePhase()
	transition := te.AdvancePhase()
	require.Equal(t, ledger.ErrNoContent.Code(), transition.Reason)
	require.Equal(t, contest.PhaseUploading, transition.To)
	require.EqualValues(t, 2, transition.NextCycle)

	info := te.PhaseInfo()
	require.EqualValues(t, 2, info.Cycle)
	require.Equal(t, contest.PhaseUploading, info.Phase)

	te.View(func(state ledger.State) error {
		active, err := te.DAO.Auction.IsActive(state)
		require.NoError(t, err)
		require.False(t, active)
		return nil
	})
}

func TestBiddingEndsAfterSettlement(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.NoError(t, submitContent(te, uploader, 1, "ipfs://one"))
	te.AdvancePhase()
	te.AdvancePhase()

	// the bidding deadline passed, but the auction is not settled
	te.AdvanceTime(te.Parameters.BiddingDuration)
	_, err := advance(te)
	require.ErrorIs(t, err, ledger.ErrAuctionStillOpen)

	_, err = te.Transact(outsider, func(tx *ledger.Tx) error {
		_, err := te.DAO.Auction.PerformUpkeep(tx, nil)
		return err
	})
	require.NoError(t, err)

	transition, err := advance(te)
	require.NoError(t, err)
	require.Equal(t, contest.PhaseBidding, transition.From)
	require.Equal(t, contest.PhaseUploading, transition.To)

	info := te.PhaseInfo()
	require.EqualValues(t, 2, info.Cycle)

	// the new cycle starts with empty slots and tallies
	te.View(func(state ledger.State) error {
		slot, err := te.DAO.Contest.Slot(state, 1)
		require.NoError(t, err)
		require.False(t, slot.HasContent)
		require.EqualValues(t, 0, slot.Votes)
		return nil
	})
}

func TestFinalizeWithWinner(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.NoError(t, submitContent(te, uploader, 2, "ipfs://two"))
	require.NoError(t, submitContent(te, uploader, 9, "ipfs://nine"))
	te.AdvancePhase()
	require.NoError(t, vote(te, voter3, 9))

	finalize := func(contentRef string, payload string, index uint8) (*contest.Transition, error) {
		var transition *contest.Transition
		_, err := te.Transact(outsider, func(tx *ledger.Tx) error {
			var err error
			transition, err = te.DAO.Contest.FinalizeWithWinner(tx, contentRef, payload, index)
			return err
		})
		return transition, err
	}

	_, err := finalize("ipfs://nine", "gateway/nine", 9)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)

	te.AdvanceTime(te.Parameters.VotingDuration)

	_, err = finalize("ipfs://two", "gateway/two", 2)
	require.ErrorIs(t, err, ledger.ErrWinnerMismatch)

	transition, err := finalize("ipfs://nine", "gateway/nine", 9)
	require.NoError(t, err)
	require.Equal(t, contest.PhaseBidding, transition.To)

	_, err = finalize("ipfs://nine", "gateway/nine", 9)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)

	te.View(func(state ledger.State) error {
		current, err := te.DAO.Auction.Current(state)
		require.NoError(t, err)

		token, err := te.DAO.Auction.Token(state, current.TokenID)
		require.NoError(t, err)
		require.Equal(t, "gateway/nine", token.Metadata)
		require.Equal(t, te.DAO.Auction.Address(), token.Owner)
		return nil
	})
}

func TestVoteWeightIsFrozenAtVotingStart(t *testing.T) {
	te := setupContest(t)
	defer te.CleanupTestEnvironment()

	require.NoError(t, submitContent(te, uploader, 0, "ipfs://zero"))
	te.AdvancePhase()

	// membership moved after the voting started does not count in this cycle
	_, err := te.Transact(voter3, func(tx *ledger.Tx) error {
		return te.DAO.Membership.Transfer(tx, outsider, 5)
	})
	require.NoError(t, err)

	require.ErrorIs(t, vote(te, outsider, 0), ledger.ErrNotEligible)
	require.NoError(t, vote(te, voter3, 0))

	te.View(func(state ledger.State) error {
		votes, err := te.DAO.Contest.SlotVotes(state, 0)
		require.NoError(t, err)
		require.EqualValues(t, 5, votes)
		return nil
	})
}

func TestPhaseMarshaling(t *testing.T) {
	text, err := contest.PhaseBidding.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "bidding", string(text))

	var phase contest.Phase
	require.NoError(t, phase.UnmarshalText([]byte("Voting")))
	require.Equal(t, contest.PhaseVoting, phase)
	require.Error(t, phase.UnmarshalText([]byte("sleeping")))
}

package tally_test

import (
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/model/tally"
)

func TestSelectWinnerTieBreak(t *testing.T) {
	slot0 := &tally.SlotTally{Index: 0, Votes: 5, LastVoteTimestamp: 105, LastVoteSequence: 4}
	slot5 := &tally.SlotTally{Index: 5, Votes: 5, LastVoteTimestamp: 102, LastVoteSequence: 3}
	slot7 := &tally.SlotTally{Index: 7, Votes: 4, LastVoteTimestamp: 90, LastVoteSequence: 1}

	winner, exists := tally.SelectWinner([]*tally.SlotTally{slot0, slot5, slot7})
	require.True(t, exists)
	require.EqualValues(t, 5, winner.Index)

	// the order of the candidates does not matter
	winner, _ = tally.SelectWinner([]*tally.SlotTally{slot7, slot5, slot0})
	require.EqualValues(t, 5, winner.Index)

	// equal timestamps fall back to the sequence, then to the index
	a := &tally.SlotTally{Index: 9, Votes: 3, LastVoteTimestamp: 100, LastVoteSequence: 8}
	b := &tally.SlotTally{Index: 2, Votes: 3, LastVoteTimestamp: 100, LastVoteSequence: 9}
	require.True(t, tally.Beats(a, b))
	require.False(t, tally.Beats(b, a))

	c := &tally.SlotTally{Index: 2, Votes: 0}
	d := &tally.SlotTally{Index: 3, Votes: 0}
	winner, _ = tally.SelectWinner([]*tally.SlotTally{d, c})
	require.EqualValues(t, 2, winner.Index)

	_, exists = tally.SelectWinner(nil)
	require.False(t, exists)
}

func TestRecordVote(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(100, 0))
	l := ledger.New(mapdb.NewMapDB(), ledger.WithClock(clock))
	store := tally.NewStore()

	alice := ledger.ContractAddress("alice")
	bob := ledger.ContractAddress("bob")

	_, err := l.Transact(alice, func(tx *ledger.Tx) error {
		_, err := store.RecordVote(tx, 1, alice, 3, 2)
		return err
	})
	require.NoError(t, err)

	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		_, err := store.RecordVote(tx, 1, alice, 4, 2)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrAlreadyVoted)

	// a new cycle starts from scratch
	clock.Set(time.Unix(110, 0))
	_, err = l.Transact(alice, func(tx *ledger.Tx) error {
		_, err := store.RecordVote(tx, 2, alice, 4, 2)
		return err
	})
	require.NoError(t, err)

	_, err = l.Transact(bob, func(tx *ledger.Tx) error {
		_, err := store.RecordVote(tx, 1, bob, tally.SlotCount, 1)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrInvalidSlot)

	_, err = l.Transact(bob, func(tx *ledger.Tx) error {
		_, err := store.RecordVote(tx, 1, bob, 3, 7)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, l.View(func(state ledger.State) error {
		slots, err := store.Slots(state, 1)
		require.NoError(t, err)
		require.Len(t, slots, tally.SlotCount)
		require.EqualValues(t, 9, slots[3].Votes)
		require.EqualValues(t, 110, slots[3].LastVoteTimestamp)
		require.EqualValues(t, 0, slots[4].Votes)

		// the tally of a slot is the sum of the recorded weights
		records, err := store.Votes(state, 1)
		require.NoError(t, err)
		require.Len(t, records, 2)
		var sum uint64
		for _, record := range records {
			sum += record.Weight
		}
		require.Equal(t, slots[3].Votes, sum)

		vote, err := store.Vote(state, 2, bob)
		require.NoError(t, err)
		require.Nil(t, vote)
		return nil
	}))
}

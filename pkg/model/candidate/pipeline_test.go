package candidate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/candidate"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
)

var (
	proposer = utils.NewNamedWallet("Proposer").Address()
	sponsor1 = utils.NewNamedWallet("Sponsor1").Address()
	sponsor2 = utils.NewNamedWallet("Sponsor2").Address()
	sponsor3 = utils.NewNamedWallet("Sponsor3").Address()
	sponsor4 = utils.NewNamedWallet("Sponsor4").Address()
	outsider = utils.NewNamedWallet("Outsider").Address()
)

func setupPipeline(t *testing.T) *testsuite.TestEnvironment {
	return testsuite.SetupTestEnvironment(t, &dao.Genesis{
		Members: map[ledger.Address]uint64{
			sponsor1: 1,
			sponsor2: 1,
			sponsor3: 1,
			sponsor4: 1,
		},
		Balances: map[ledger.Address]uint64{
			proposer: 100,
		},
	}, nil)
}

func createCandidate(te *testsuite.TestEnvironment, fee uint64, description string) (*candidate.Candidate, error) {
	receipt, err := te.Call(proposer, te.DAO.Candidates.Address(), fee, "createCandidate", map[string]string{"description": description})
	if err != nil {
		return nil, err
	}
	return receipt.Result.(*candidate.Candidate), nil
}

func sponsor(te *testsuite.TestEnvironment, sponsor ledger.Address, id uint64) (*candidate.SponsorEvent, error) {
	var event *candidate.SponsorEvent
	_, err := te.Transact(sponsor, func(tx *ledger.Tx) error {
		var err error
		event, err = te.DAO.Candidates.SponsorCandidate(tx, id)
		return err
	})
	return event, err
}

func TestPromotionAtThreshold(t *testing.T) {
	te := setupPipeline(t)
	defer te.CleanupTestEnvironment()

	created, err := createCandidate(te, te.Parameters.CandidateFee, "a bigger stage")
	require.NoError(t, err)
	require.EqualValues(t, 1, created.ID)

	te.AssertBalance(proposer, 90)
	te.AssertBalance(te.DAO.Treasury.Address(), 10)
	te.AssertBalance(te.DAO.Candidates.Address(), 0)

	for i, member := range []ledger.Address{sponsor1, sponsor2} {
		event, err := sponsor(te, member, created.ID)
		require.NoError(t, err)
		require.EqualValues(t, i+1, event.SponsorCount)
		require.False(t, event.Promoted)
	}

	te.View(func(state ledger.State) error {
		_, err := te.DAO.Candidates.PromotedDescription(state, created.ID)
		require.ErrorIs(t, err, ledger.ErrNotPromoted)
		return nil
	})

	event, err := sponsor(te, sponsor3, created.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, event.SponsorCount)
	require.True(t, event.Promoted)

	_, err = sponsor(te, sponsor4, created.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadyPromoted)

	te.View(func(state ledger.State) error {
		stored, err := te.DAO.Candidates.Candidate(state, created.ID)
		require.NoError(t, err)
		require.True(t, stored.Promoted)
		require.NotNil(t, stored.PromotedAt)
		require.EqualValues(t, 3, stored.SponsorCount)

		description, err := te.DAO.Candidates.PromotedDescription(state, created.ID)
		require.NoError(t, err)
		require.Equal(t, "a bigger stage", description)

		sponsored, err := te.DAO.Candidates.Sponsored(state, created.ID, sponsor4)
		require.NoError(t, err)
		require.False(t, sponsored)
		return nil
	})
}

func TestCreateCandidateChecks(t *testing.T) {
	te := setupPipeline(t)
	defer te.CleanupTestEnvironment()

	for _, fee := range []uint64{0, te.Parameters.CandidateFee - 1, te.Parameters.CandidateFee + 1} {
		_, err := createCandidate(te, fee, "an idea")
		require.ErrorIs(t, err, ledger.ErrWrongFee)
	}

	_, err := createCandidate(te, te.Parameters.CandidateFee, " ")
	require.ErrorIs(t, err, ledger.ErrEmptyDescription)

	// rejected creations keep the fee with the caller
	te.AssertBalance(proposer, 100)

	te.View(func(state ledger.State) error {
		count, err := te.DAO.Candidates.CandidateCount(state)
		require.NoError(t, err)
		require.EqualValues(t, 0, count)
		return nil
	})
}

func TestSponsorChecks(t *testing.T) {
	te := setupPipeline(t)
	defer te.CleanupTestEnvironment()

	created, err := createCandidate(te, te.Parameters.CandidateFee, "an idea")
	require.NoError(t, err)

	_, err = sponsor(te, outsider, created.ID)
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	_, err = sponsor(te, sponsor1, 99)
	require.ErrorIs(t, err, ledger.ErrUnknownCandidate)

	_, err = sponsor(te, sponsor1, created.ID)
	require.NoError(t, err)

	_, err = sponsor(te, sponsor1, created.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadySponsored)

	second, err := createCandidate(te, te.Parameters.CandidateFee, "another idea")
	require.NoError(t, err)
	require.EqualValues(t, 2, second.ID)

	te.View(func(state ledger.State) error {
		candidates, err := te.DAO.Candidates.Candidates(state)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		require.EqualValues(t, 1, candidates[0].SponsorCount)
		require.EqualValues(t, 0, candidates[1].SponsorCount)
		return nil
	})
	te.AssertBalance(te.DAO.Treasury.Address(), 20)
}

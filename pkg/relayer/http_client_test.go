package relayer_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/relayer"
	"github.com/slotdao/cycled/pkg/restapi"
	"github.com/slotdao/cycled/pkg/testsuite"
	"github.com/slotdao/cycled/pkg/testsuite/utils"
	v1 "github.com/slotdao/cycled/plugins/restapi/v1"
)

func setupHTTPClient(t *testing.T, te *testsuite.TestEnvironment) *relayer.HTTPClient {
	e := echo.New()
	e.HTTPErrorHandler = restapi.ErrorHandler()
	v1.New(te.DAO, nil, nil, 100).Register(e.Group("/api/v1"))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	privateKey, _ := utils.NewNamedWallet("keeper").KeyPair()
	return relayer.NewHTTPClient(server.URL+"/", privateKey, te.DAO.Contest.Address(), te.DAO.Auction.Address(), 5*time.Second)
}

func TestHTTPClientMapsLedgerErrors(t *testing.T) {
	te := setupContest(t)
	client := setupHTTPClient(t, te)
	ctx := context.Background()

	require.Equal(t, keeper, client.Caller())

	info, err := client.PhaseInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, te.PhaseInfo().Cycle, info.Cycle)
	require.Equal(t, contest.PhaseUploading, info.Phase)
	require.True(t, info.Deadline.Equal(te.PhaseInfo().Deadline))

	_, err = client.AdvancePhase(ctx)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)
	require.True(t, ledger.IsAlreadyDone(err))

	// the rejected transaction consumed a nonce, the next one has to pick it up
	te.AdvanceTime(te.Parameters.UploadDuration)
	transition, err := client.AdvancePhase(ctx)
	require.NoError(t, err)
	require.Equal(t, contest.PhaseUploading, transition.From)
	require.Equal(t, contest.PhaseVoting, transition.To)
	require.Equal(t, contest.PhaseVoting, te.PhaseInfo().Phase)

	_, err = client.FinalizeWithWinner(ctx, "cid", "", 0)
	require.ErrorIs(t, err, ledger.ErrNothingToDo)
}

func TestHTTPClientDrivesOrchestrator(t *testing.T) {
	te := setupContest(t)
	client := setupHTTPClient(t, te)
	o := relayer.New(client, relayer.WithContentGatewayURL(gatewayURL), fastBackoff())
	ctx := context.Background()

	submitContent(t, te, alice, 5, "cid-5")
	submitContent(t, te, bob, 6, "cid-6")

	te.AdvanceTime(te.Parameters.UploadDuration)
	require.NoError(t, o.Tick(ctx))

	vote(t, te, alice, 5)
	vote(t, te, bob, 6)

	slots, err := client.Slots(ctx)
	require.NoError(t, err)
	winner, found := relayer.Winner(slots)
	require.True(t, found)
	require.EqualValues(t, 5, winner.Index)

	te.AdvanceTime(te.Parameters.VotingDuration)
	require.NoError(t, o.Tick(ctx))

	current := currentAuction(t, te)
	require.EqualValues(t, 5, current.Lot.Slot)
	require.Equal(t, "https://gateway.example/ipfs/cid-5", current.Lot.Metadata)

	needed, _, err := client.CheckUpkeep(ctx)
	require.NoError(t, err)
	require.False(t, needed)

	te.AdvanceTime(te.Parameters.BiddingDuration)
	needed, performData, err := client.CheckUpkeep(ctx)
	require.NoError(t, err)
	require.True(t, needed)
	require.Len(t, performData, 8)

	require.NoError(t, o.Tick(ctx))
	require.Equal(t, contest.PhaseUploading, te.PhaseInfo().Phase)

	// without bids the token stays with the treasury
	settled := currentAuction(t, te)
	require.False(t, settled.Active)
	require.NotNil(t, settled.Settlement)
	require.Equal(t, te.DAO.Treasury.Address(), settled.Settlement.Recipient)
}

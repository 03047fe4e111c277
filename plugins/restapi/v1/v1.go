package v1

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/slotdao/cycled/pkg/metrics"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/restapi"
)

const (
	// RouteContestPhase is the route for getting the phase of the running cycle.
	// GET returns the phase info.
	RouteContestPhase = "/contest/phase"

	// RouteContestSlots is the route for getting the slots of the running cycle.
	// GET returns all slots ordered by index.
	RouteContestSlots = "/contest/slots"

	// RouteContestSlot is the route for getting a slot of the running cycle.
	// GET returns the slot.
	RouteContestSlot = "/contest/slots/:" + restapi.ParameterSlotIndex

	// RouteContestWinner is the route for getting the current leader of the running cycle.
	// GET returns the slot or 404 if no slot holds content.
	RouteContestWinner = "/contest/winner"

	// RouteAuction is the route for getting the latest auction.
	// GET returns the auction or 404 if none was started yet.
	RouteAuction = "/auction"

	// RouteAuctionByID is the route for getting an auction by its id.
	RouteAuctionByID = "/auctions/:" + restapi.ParameterID

	// RouteAuctionUpkeep is the route for checking whether the latest auction needs settlement.
	RouteAuctionUpkeep = "/auction/upkeep"

	// RouteToken is the route for getting a minted token.
	RouteToken = "/tokens/:" + restapi.ParameterID

	// RouteTreasury is the route for getting the treasury.
	RouteTreasury = "/treasury"

	// RouteProposals is the route for listing governance proposals.
	RouteProposals = "/governance/proposals"

	// RouteProposal is the route for getting a governance proposal.
	RouteProposal = "/governance/proposals/:" + restapi.ParameterID

	// RouteCandidates is the route for listing candidates.
	RouteCandidates = "/candidates"

	// RouteCandidate is the route for getting a candidate.
	RouteCandidate = "/candidates/:" + restapi.ParameterID

	// RouteCandidateDescription is the route for getting the description of a promoted candidate.
	RouteCandidateDescription = "/candidates/:" + restapi.ParameterID + "/description"

	// RouteAccount is the route for getting the balances and the nonce of an address.
	RouteAccount = "/accounts/:" + restapi.ParameterAddress

	// RouteTransactions is the route for submitting signed transactions.
	// POST executes the transaction and returns its receipt.
	RouteTransactions = "/transactions"
)

// API serves the read and write endpoints of the ledger.
type API struct {
	dao        *dao.DAO
	metrics    *metrics.RestAPIMetrics
	limiter    *rate.Limiter
	maxResults int
}

// New creates an API. A nil limiter accepts every transaction.
func New(d *dao.DAO, restAPIMetrics *metrics.RestAPIMetrics, limiter *rate.Limiter, maxResults int) *API {
	if restAPIMetrics == nil {
		restAPIMetrics = &metrics.RestAPIMetrics{}
	}
	return &API{
		dao:        d,
		metrics:    restAPIMetrics,
		limiter:    limiter,
		maxResults: maxResults,
	}
}

// Register adds the routes of the API to routeGroup.
func (api *API) Register(routeGroup *echo.Group) {
	routeGroup.GET(RouteContestPhase, api.contestPhase)
	routeGroup.GET(RouteContestSlots, api.contestSlots)
	routeGroup.GET(RouteContestSlot, api.contestSlot)
	routeGroup.GET(RouteContestWinner, api.contestWinner)

	routeGroup.GET(RouteAuction, api.currentAuction)
	routeGroup.GET(RouteAuctionByID, api.auctionByID)
	routeGroup.GET(RouteAuctionUpkeep, api.auctionUpkeep)
	routeGroup.GET(RouteToken, api.token)

	routeGroup.GET(RouteTreasury, api.treasury)
	routeGroup.GET(RouteProposals, api.proposals)
	routeGroup.GET(RouteProposal, api.proposal)
	routeGroup.GET(RouteCandidates, api.candidates)
	routeGroup.GET(RouteCandidate, api.candidate)
	routeGroup.GET(RouteCandidateDescription, api.candidateDescription)

	routeGroup.GET(RouteAccount, api.account)
	routeGroup.POST(RouteTransactions, api.submitTransaction)
}

package relayer

import (
	"context"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/ledger"
)

// Client is the view of the ledger the orchestrator needs.
// Rejected operations return the ledger sentinel errors.
type Client interface {
	// Caller returns the address transactions are submitted from.
	Caller() ledger.Address
	PhaseInfo(ctx context.Context) (*contest.PhaseInfo, error)
	Slots(ctx context.Context) ([]*contest.Slot, error)
	CheckUpkeep(ctx context.Context) (bool, []byte, error)

	AdvancePhase(ctx context.Context) (*contest.Transition, error)
	FinalizeWithWinner(ctx context.Context, contentRef string, assetPayload string, winnerIndex uint8) (*contest.Transition, error)
	PerformUpkeep(ctx context.Context, performData []byte) (*auction.Settlement, error)
}

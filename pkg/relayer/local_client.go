package relayer

import (
	"context"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
)

// LocalClient calls the engines of an in-process ledger.
type LocalClient struct {
	dao    *dao.DAO
	caller ledger.Address
}

// NewLocalClient creates a client submitting transactions as caller.
func NewLocalClient(d *dao.DAO, caller ledger.Address) *LocalClient {
	return &LocalClient{dao: d, caller: caller}
}

func (c *LocalClient) Caller() ledger.Address {
	return c.caller
}

func (c *LocalClient) PhaseInfo(_ context.Context) (*contest.PhaseInfo, error) {
	var info *contest.PhaseInfo
	err := c.dao.Ledger.View(func(state ledger.State) error {
		var err error
		info, err = c.dao.Contest.CurrentPhaseInfo(state)
		return err
	})
	return info, err
}

func (c *LocalClient) Slots(_ context.Context) ([]*contest.Slot, error) {
	var slots []*contest.Slot
	err := c.dao.Ledger.View(func(state ledger.State) error {
		var err error
		slots, err = c.dao.Contest.Slots(state)
		return err
	})
	return slots, err
}

func (c *LocalClient) CheckUpkeep(_ context.Context) (bool, []byte, error) {
	var needed bool
	var performData []byte
	err := c.dao.Ledger.View(func(state ledger.State) error {
		var err error
		needed, performData, err = c.dao.Auction.CheckUpkeep(state)
		return err
	})
	return needed, performData, err
}

func (c *LocalClient) AdvancePhase(_ context.Context) (*contest.Transition, error) {
	var transition *contest.Transition
	_, err := c.dao.Ledger.Transact(c.caller, func(tx *ledger.Tx) error {
		var err error
		transition, err = c.dao.Contest.AdvancePhase(tx)
		return err
	})
	return transition, err
}

func (c *LocalClient) FinalizeWithWinner(_ context.Context, contentRef string, assetPayload string, winnerIndex uint8) (*contest.Transition, error) {
	var transition *contest.Transition
	_, err := c.dao.Ledger.Transact(c.caller, func(tx *ledger.Tx) error {
		var err error
		transition, err = c.dao.Contest.FinalizeWithWinner(tx, contentRef, assetPayload, winnerIndex)
		return err
	})
	return transition, err
}

func (c *LocalClient) PerformUpkeep(_ context.Context, performData []byte) (*auction.Settlement, error) {
	var settlement *auction.Settlement
	_, err := c.dao.Ledger.Transact(c.caller, func(tx *ledger.Tx) error {
		var err error
		settlement, err = c.dao.Auction.PerformUpkeep(tx, performData)
		return err
	})
	return settlement, err
}

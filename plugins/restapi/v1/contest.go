package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

// SlotsResponse defines the response of a GET contest slots REST API call.
type SlotsResponse struct {
	Cycle uint64          `json:"cycle"`
	Phase contest.Phase   `json:"phase"`
	Slots []*contest.Slot `json:"slots"`
}

func (api *API) contestPhase(c echo.Context) error {
	var info *contest.PhaseInfo
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		info, err = api.dao.Contest.CurrentPhaseInfo(state)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, info)
}

func (api *API) contestSlots(c echo.Context) error {
	resp := &SlotsResponse{}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		info, err := api.dao.Contest.CurrentPhaseInfo(state)
		if err != nil {
			return err
		}
		resp.Cycle = info.Cycle
		resp.Phase = info.Phase

		resp.Slots, err = api.dao.Contest.Slots(state)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

func (api *API) contestSlot(c echo.Context) error {
	index, err := restapi.ParseSlotIndexParam(c)
	if err != nil {
		return err
	}

	var slot *contest.Slot
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		slot, err = api.dao.Contest.Slot(state, index)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, slot)
}

func (api *API) contestWinner(c echo.Context) error {
	var winner *contest.Slot
	var found bool
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		winner, found, err = api.dao.Contest.Winner(state)
		return err
	}); err != nil {
		return err
	}
	if !found {
		return errors.WithMessage(restapi.ErrNotFound, "no slot holds content")
	}
	return restapi.JSONResponse(c, http.StatusOK, winner)
}

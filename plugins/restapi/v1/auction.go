package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

// UpkeepResponse defines the response of a GET auction upkeep REST API call.
type UpkeepResponse struct {
	UpkeepNeeded bool            `json:"upkeepNeeded"`
	PerformData  ledger.HexBytes `json:"performData,omitempty"`
}

// TreasuryResponse defines the response of a GET treasury REST API call.
type TreasuryResponse struct {
	Address  ledger.Address `json:"address"`
	Governor ledger.Address `json:"governor"`
	Balance  uint64         `json:"balance"`
}

func (api *API) currentAuction(c echo.Context) error {
	var current *auction.Auction
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		current, err = api.dao.Auction.Current(state)
		return err
	}); err != nil {
		return err
	}
	if current == nil {
		return errors.WithMessage(restapi.ErrNotFound, "no auction was started yet")
	}
	return restapi.JSONResponse(c, http.StatusOK, current)
}

func (api *API) auctionByID(c echo.Context) error {
	id, err := restapi.ParseUint64Param(c, restapi.ParameterID)
	if err != nil {
		return err
	}

	var a *auction.Auction
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		a, err = api.dao.Auction.Auction(state, id)
		return err
	}); err != nil {
		if errors.Is(err, ledger.ErrInvalidArguments) {
			return errors.WithMessagef(restapi.ErrNotFound, "auction %d not found", id)
		}
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, a)
}

func (api *API) auctionUpkeep(c echo.Context) error {
	resp := &UpkeepResponse{}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		resp.UpkeepNeeded, resp.PerformData, err = api.dao.Auction.CheckUpkeep(state)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

func (api *API) token(c echo.Context) error {
	id, err := restapi.ParseUint64Param(c, restapi.ParameterID)
	if err != nil {
		return err
	}

	var token *auction.Token
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		token, err = api.dao.Auction.Token(state, id)
		return err
	}); err != nil {
		if errors.Is(err, ledger.ErrInvalidArguments) {
			return errors.WithMessagef(restapi.ErrNotFound, "token %d not found", id)
		}
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, token)
}

func (api *API) treasury(c echo.Context) error {
	resp := &TreasuryResponse{Address: api.dao.Treasury.Address()}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		if resp.Governor, err = api.dao.Treasury.Governor(state); err != nil {
			return err
		}
		resp.Balance, err = ledger.BalanceOf(state, resp.Address)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

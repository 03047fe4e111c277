package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

// AccountResponse defines the response of a GET account REST API call.
type AccountResponse struct {
	Address ledger.Address `json:"address"`
	// The native balance.
	Balance uint64 `json:"balance"`
	// The nonce the next transaction of the address must carry.
	Nonce uint64 `json:"nonce"`
	// The current membership weight.
	Weight uint64 `json:"weight"`
	// The outbid amount the address may withdraw from the auction.
	Withdrawable uint64 `json:"withdrawable"`
}

func (api *API) account(c echo.Context) error {
	address, err := restapi.ParseAddressParam(c)
	if err != nil {
		return err
	}

	resp := &AccountResponse{Address: address}
	if resp.Nonce, err = api.dao.Ledger.Nonce(address); err != nil {
		return err
	}

	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		if resp.Balance, err = ledger.BalanceOf(state, address); err != nil {
			return err
		}
		if resp.Weight, err = api.dao.Membership.Weight(state, address); err != nil {
			return err
		}
		resp.Withdrawable, err = api.dao.Auction.Withdrawable(state, address)
		return err
	}); err != nil {
		return errors.WithMessagef(echo.ErrInternalServerError, "reading account %s failed: %s", address, err)
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

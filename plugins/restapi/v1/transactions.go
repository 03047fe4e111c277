package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

var (
	// ErrTooManyRequests is returned if the transaction rate limit is exceeded.
	ErrTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
)

func (api *API) submitTransaction(c echo.Context) error {
	if api.limiter != nil && !api.limiter.Allow() {
		api.metrics.RateLimitedRequests.Inc()
		return ErrTooManyRequests
	}

	transaction := &ledger.Transaction{}
	if err := c.Bind(transaction); err != nil {
		return errors.WithMessagef(restapi.ErrInvalidParameter, "invalid transaction, error: %s", err)
	}

	receipt, err := api.dao.Ledger.Submit(transaction)
	if err != nil {
		api.metrics.RejectedTransactions.Inc()
		return err
	}
	api.metrics.SubmittedTransactions.Inc()

	return restapi.JSONResponse(c, http.StatusCreated, receipt)
}

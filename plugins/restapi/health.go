package restapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

// the node is healthy as long as the committed state can be read
func setupHealthRoute() {
	deps.Echo.GET(nodeAPIHealthRoute, func(c echo.Context) error {
		if err := deps.Ledger.View(func(state ledger.State) error {
			_, err := deps.DAO.Contest.CurrentPhaseInfo(state)
			return err
		}); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
}

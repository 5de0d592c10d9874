package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.  It also reports
// the replication mode so an operator can tell local-only from shared.
func (h *BoardHandler) Health(c echo.Context) error {
	st := h.Sync()
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"mode":   st.Mode,
		"synced": st.Synced,
	})
}

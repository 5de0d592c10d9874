// Package handler defines the HTTP handlers for the board API.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
	"github.com/iliyamo/clinic-treatment-board/internal/replication"
	"github.com/iliyamo/clinic-treatment-board/internal/service"
)

// BoardHandler exposes the board mutations and reads over HTTP.
type BoardHandler struct {
	Board     *service.Board
	Sync      func() replication.Status // replication status source
	HistoryTZ *time.Location            // zone used for history day bounds and export
}

// NewBoardHandler panics if board is nil.  A nil sync reports local mode.
func NewBoardHandler(board *service.Board, sync func() replication.Status, tz *time.Location) *BoardHandler {
	if board == nil {
		panic("nil board passed to NewBoardHandler")
	}
	if sync == nil {
		sync = func() replication.Status { return replication.LocalStatus }
	}
	if tz == nil {
		tz = time.UTC
	}
	return &BoardHandler{Board: board, Sync: sync, HistoryTZ: tz}
}

// mutationResp is returned by every mutation.  Applied is false for no-ops
// and rejections; Reason is set only for rejections.
type mutationResp struct {
	Applied bool        `json:"applied"`
	Reason  string      `json:"reason,omitempty"`
	State   interface{} `json:"state"`
}

// respond maps an engine outcome to an HTTP response.  Rejections become 400
// for malformed input and 409 for conflicts with the current state.
func respond(c echo.Context, out engine.Outcome) error {
	resp := mutationResp{Applied: out.Changed, State: out.State}
	if out.Reason == nil {
		return c.JSON(http.StatusOK, resp)
	}
	resp.Reason = out.Reason.Error()
	return c.JSON(reasonStatus(out.Reason), resp)
}

func reasonStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrDuplicateTreatment),
		errors.Is(err, engine.ErrAlreadyQueued),
		errors.Is(err, engine.ErrNotDirectorEligible):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// bayParam reads the :id path parameter as a bay id.
func bayParam(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badBayID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bay id"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}

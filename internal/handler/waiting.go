package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

type addWaitingReq struct {
	Name string `json:"name"`
	Type string `json:"type"` // a treatment kind, CONSULT or REVISIT
}

type assignReq struct {
	BayID int `json:"bayId"`
}

func (h *BoardHandler) AddWaiting(c echo.Context) error {
	var req addWaitingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	out := h.Board.AddWaitingEntry(req.Name, strings.ToUpper(strings.TrimSpace(req.Type)))
	if out.Changed {
		return c.JSON(http.StatusCreated, mutationResp{Applied: true, State: out.State})
	}
	return respond(c, out)
}

func (h *BoardHandler) RemoveWaiting(c echo.Context) error {
	return respond(c, h.Board.RemoveWaitingEntry(c.Param("id")))
}

// AssignWaiting seats a waiting entry in a bay, replacing whoever was there.
func (h *BoardHandler) AssignWaiting(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if req.BayID <= 0 {
		return badBayID(c)
	}
	return respond(c, h.Board.AssignWaitingEntryToBay(c.Param("id"), req.BayID))
}

// UpdateWaitingTreatment edits the treatment an entry carries: sub-option,
// wet flag, area, intensity or timer length.
func (h *BoardHandler) UpdateWaitingTreatment(c echo.Context) error {
	var patch engine.TreatmentPatch
	if err := c.Bind(&patch); err != nil {
		return badBody(c)
	}
	return respond(c, h.Board.UpdateTreatmentFields(0, c.Param("id"), patch))
}

func (h *BoardHandler) SetWaitingStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	status := model.TreatmentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	return respond(c, h.Board.SetWaitingTreatmentStatus(c.Param("id"), status))
}

// ReleaseDirector hands a director task back to its bay as RUNNING.
func (h *BoardHandler) ReleaseDirector(c echo.Context) error {
	return respond(c, h.Board.ReleaseDirectorTask(c.Param("id")))
}

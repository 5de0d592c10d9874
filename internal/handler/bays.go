package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// ----- DTOs -----

type addTreatmentReq struct {
	Type     string `json:"type"`
	Duration int    `json:"duration"` // seconds; zero or less uses the catalogue default
}

type statusReq struct {
	Status string `json:"status"`
}

// GetState returns the whole board.
func (h *BoardHandler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Board.State())
}

// GetSync reports the replication mode and whether the last remote exchange
// succeeded.
func (h *BoardHandler) GetSync(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Sync())
}

// GetBay returns one bay with its treatments in display order.
func (h *BoardHandler) GetBay(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	s := h.Board.State()
	i := s.BayIndex(id)
	if i < 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bay not found"})
	}
	bay := s.Bays[i]
	bay.Treatments = model.SortedForDisplay(bay.Treatments)
	return c.JSON(http.StatusOK, bay)
}

func (h *BoardHandler) AddBay(c echo.Context) error {
	out := h.Board.AddBay()
	if !out.Changed {
		return respond(c, out)
	}
	return c.JSON(http.StatusCreated, mutationResp{Applied: true, State: out.State})
}

// PatchBay occupies a vacant bay or updates name, note and body area of an
// occupied one.
func (h *BoardHandler) PatchBay(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	var patch engine.BayPatch
	if err := c.Bind(&patch); err != nil {
		return badBody(c)
	}
	return respond(c, h.Board.OccupyOrUpdateBay(id, patch))
}

func (h *BoardHandler) Discharge(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	return respond(c, h.Board.Discharge(id))
}

func (h *BoardHandler) RefineNote(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	return respond(c, h.Board.RefineNote(c.Request().Context(), id))
}

func (h *BoardHandler) AddTreatment(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	var req addTreatmentReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	kind := model.TreatmentType(strings.ToUpper(strings.TrimSpace(req.Type)))
	return respond(c, h.Board.AddTreatment(id, kind, req.Duration))
}

func (h *BoardHandler) SetTreatmentStatus(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	status := model.TreatmentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	return respond(c, h.Board.SetTreatmentStatus(id, c.Param("tid"), status))
}

func (h *BoardHandler) UpdateTreatment(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	var patch engine.TreatmentPatch
	if err := c.Bind(&patch); err != nil {
		return badBody(c)
	}
	return respond(c, h.Board.UpdateTreatmentFields(id, c.Param("tid"), patch))
}

func (h *BoardHandler) MoveToDirector(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	return respond(c, h.Board.MoveTreatmentToDirectorQueue(id, c.Param("tid")))
}

func (h *BoardHandler) MoveToWaiting(c echo.Context) error {
	id, ok := bayParam(c)
	if !ok {
		return badBayID(c)
	}
	return respond(c, h.Board.MoveBayTreatmentToWaiting(id, c.Param("tid")))
}

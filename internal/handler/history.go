package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
	"github.com/iliyamo/clinic-treatment-board/internal/export"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *BoardHandler) searchHistory(c echo.Context) []model.HistoryRecord {
	return engine.SearchHistory(h.Board.State().History, engine.HistoryQuery{
		Name:     c.QueryParam("name"),
		From:     c.QueryParam("from"),
		To:       c.QueryParam("to"),
		Location: h.HistoryTZ,
	})
}

// History lists discharged sessions, newest first.  Query parameters:
// name (substring, case-insensitive), from and to (YYYY-MM-DD, inclusive).
func (h *BoardHandler) History(c echo.Context) error {
	recs := h.searchHistory(c)
	return c.JSON(http.StatusOK, echo.Map{"count": len(recs), "records": recs})
}

// ExportHistory returns the same selection as History as an XLSX download.
func (h *BoardHandler) ExportHistory(c echo.Context) error {
	data, err := export.HistoryXLSX(h.searchHistory(c), h.HistoryTZ)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}
	name := fmt.Sprintf("history-%s.xlsx", time.Now().In(h.HistoryTZ).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

// HistoryVersion identifies the current archive contents for response
// caching.  Every discharge prepends a record with a fresh id.
func (h *BoardHandler) HistoryVersion() string {
	hist := h.Board.State().History
	if len(hist) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%s-%d", hist[0].ID, len(hist))
}

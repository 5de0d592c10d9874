// Package router registers the HTTP routes for the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/handler"
	"github.com/iliyamo/clinic-treatment-board/internal/middleware"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
	"github.com/iliyamo/clinic-treatment-board/internal/websocket"
)

// Deps carries everything the routes are bound to.  RateLimit and
// HistoryCache may be nil; they are skipped then.
type Deps struct {
	Board        *handler.BoardHandler
	Auth         *handler.AuthHandler
	Viewers      *websocket.Handler
	Metrics      http.Handler
	JWTSecret    string
	RateLimit    echo.MiddlewareFunc
	HistoryCache echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication:
// health, metrics and login.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Board.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	e.POST("/v1/auth/login", d.Auth.Login, optional(d.RateLimit)...)
}

// RegisterBoard registers the authenticated board API under /v1.  Every
// route accepts STAFF and DIRECTOR tokens except releasing a director task,
// which only the director may do.
func RegisterBoard(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleStaff, utils.RoleDirector),
	)
	h := d.Board
	write := optional(d.RateLimit)

	// ---- Reads ----
	g.GET("/state", h.GetState)
	g.GET("/sync", h.GetSync)
	g.GET("/bays/:id", h.GetBay)
	if d.Viewers != nil {
		g.GET("/ws", d.Viewers.Connect)
	}

	// ---- Bays ----
	g.POST("/bays", h.AddBay, write...)
	g.PATCH("/bays/:id", h.PatchBay, write...)
	g.POST("/bays/:id/discharge", h.Discharge, write...)
	g.POST("/bays/:id/refine-note", h.RefineNote, write...)

	// ---- Treatments ----
	g.POST("/bays/:id/treatments", h.AddTreatment, write...)
	g.PUT("/bays/:id/treatments/:tid/status", h.SetTreatmentStatus, write...)
	g.PATCH("/bays/:id/treatments/:tid", h.UpdateTreatment, write...)
	g.POST("/bays/:id/treatments/:tid/director", h.MoveToDirector, write...)
	g.POST("/bays/:id/treatments/:tid/waiting", h.MoveToWaiting, write...)

	// ---- Waiting list ----
	g.POST("/waiting", h.AddWaiting, write...)
	g.DELETE("/waiting/:id", h.RemoveWaiting, write...)
	g.PATCH("/waiting/:id", h.UpdateWaitingTreatment, write...)
	g.POST("/waiting/:id/assign", h.AssignWaiting, write...)
	g.PUT("/waiting/:id/status", h.SetWaitingStatus, write...)

	// ---- History ----
	g.GET("/history", h.History, optional(d.HistoryCache)...)
	g.GET("/history/export", h.ExportHistory)

	registerDirector(g, d)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}

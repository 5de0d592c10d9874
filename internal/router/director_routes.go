package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/middleware"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
)

// registerDirector adds DIRECTOR-only endpoints to the authenticated group.
func registerDirector(g *echo.Group, d Deps) {
	g.POST("/director/:id/release", d.Board.ReleaseDirector,
		append([]echo.MiddlewareFunc{middleware.RequireRole(utils.RoleDirector)}, optional(d.RateLimit)...)...)
}

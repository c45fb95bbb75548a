package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/handler"
	"github.com/iliyamo/smart-parking/internal/middleware"
)

// RegisterAdmin registers the operator endpoints.  Everything except login
// requires a valid JWT with the ADMIN role; the analytics summary is
// additionally served through cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.POST("/v1/admin/login", h.Login)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.POST("/reset", h.ResetAll)
	g.POST("/blocks/:block/reset", h.ResetBlock)
	g.POST("/blocks/:block/slots/:slot/reset", h.ResetSlot)
	g.GET("/analytics", h.Analytics, cache)
}

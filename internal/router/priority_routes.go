package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/handler"
)

// RegisterPriority registers staff priority booking under /v1/priority.
// Staff are identified by their directory id in the body, not by a JWT.
func RegisterPriority(e *echo.Echo, h *handler.PriorityHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/priority")
	g.POST("/staff/verify", h.VerifyStaff)
	g.POST("/blocks/:block/slots/:slot/book", h.Book, limit)
	g.POST("/blocks/:block/slots/:slot/book/verify", h.Verify)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/smart-parking/internal/handler"
)

// RegisterRoutes registers the probes: /healthz for load balancers and
// /metrics for Prometheus.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterParking registers the public booking and release endpoints.
// Routes that issue a code pass through limit, the redis token bucket;
// verification and queries are not limited.
func RegisterParking(e *echo.Echo, p *handler.ParkingHandler, f *handler.FingerprintHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/slots", p.ListSlots)
	g.GET("/blocks/:block", p.GetBlock)
	g.GET("/blocks/:block/slots/:slot", p.GetSlot)

	g.POST("/blocks/:block/slots/:slot/book", p.Book, limit)
	g.POST("/blocks/:block/slots/:slot/book/verify", p.VerifyBooking)
	g.POST("/blocks/:block/slots/:slot/release", p.Release, limit)
	g.POST("/blocks/:block/slots/:slot/release/scan", p.ScanRelease, limit)
	g.POST("/blocks/:block/slots/:slot/release/verify", p.VerifyRelease)

	g.POST("/fingerprint/verify", f.Verify)

	// Target of the release QR code printed after a booking.
	e.GET("/release/:block/:slot", p.ScanRelease, limit)
}

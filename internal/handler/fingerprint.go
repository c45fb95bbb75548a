package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/service"
)

// FingerprintHandler scores a device without issuing a ticket.
type FingerprintHandler struct {
	Svc *service.ParkingService
}

func NewFingerprintHandler(svc *service.ParkingService) *FingerprintHandler {
	return &FingerprintHandler{Svc: svc}
}

type fingerprintReq struct {
	Phone       string              `json:"phone_number"`
	Fingerprint *FingerprintPayload `json:"fingerprint"`
}

// Verify: POST /v1/fingerprint/verify
func (h *FingerprintHandler) Verify(c echo.Context) error {
	var req fingerprintReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if req.Fingerprint == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "fingerprint required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.SubmitFingerprint(ctx, req.Phone, req.Fingerprint.Snapshot(), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":             true,
		"device_verification": res.Verdict,
		"risk_assessment":     res.Risk,
		"session_id":          res.SessionID,
	})
}

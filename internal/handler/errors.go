// Package handler translates the parking engine's operations into JSON
// endpoints.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/service"
)

// errorStatus maps engine errors to a status code and a client message.
// Order matters: ErrUnknownStaff is also an ErrPolicyDenied.
var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrValidation, http.StatusBadRequest, ""},
	{service.ErrSlotNotFound, http.StatusNotFound, "slot not found"},
	{service.ErrTicketNotFound, http.StatusNotFound, "OTP not found"},
	{service.ErrTicketExpired, http.StatusGone, "OTP expired"},
	{service.ErrInvalidCode, http.StatusBadRequest, "Invalid OTP"},
	{service.ErrTrustMismatch, http.StatusForbidden, "Device verification failed. Please use the same device."},
	{service.ErrStaleState, http.StatusConflict, "slot state changed, please start again"},
	{service.ErrConflict, http.StatusConflict, "slot was taken by another request"},
	{service.ErrRiskRejected, http.StatusForbidden, "Security verification failed. Please try again from a trusted device."},
	{service.ErrUnknownStaff, http.StatusNotFound, "Invalid staff ID"},
	{service.ErrPolicyDenied, http.StatusForbidden, "priority booking not allowed for this slot"},
	{service.ErrNotOccupant, http.StatusForbidden, "slot is booked by another phone number"},
	{service.ErrNotificationFailed, http.StatusInternalServerError, "Failed to send OTP"},
}

// respondError writes err as {"success": false, "error": ...}.  Unknown
// errors are logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := m.msg
		if msg == "" {
			msg = err.Error()
		}
		body := echo.Map{"success": false, "error": msg}
		var rr *service.RiskRejectedError
		if errors.As(err, &rr) {
			body["risk_assessment"] = rr.Assessment
		}
		var pe *service.PolicyError
		if errors.As(err, &pe) {
			body["reason"] = pe.Reason
		}
		return c.JSON(m.status, body)
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
}

func requestMeta(c echo.Context) model.RequestMeta {
	return model.RequestMeta{IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
}

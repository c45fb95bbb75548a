package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/service"
)

// PriorityHandler exposes staff priority booking.
type PriorityHandler struct {
	Svc *service.ParkingService
}

func NewPriorityHandler(svc *service.ParkingService) *PriorityHandler {
	return &PriorityHandler{Svc: svc}
}

type staffReq struct {
	StaffID string `json:"staff_id"`
}

type priorityBookReq struct {
	StaffID string `json:"staff_id"`
	Phone   string `json:"phone_number"`
}

type priorityVerifyReq struct {
	StaffID string `json:"staff_id"`
	Code    string `json:"otp"`
}

// VerifyStaff: POST /v1/priority/staff/verify
func (h *PriorityHandler) VerifyStaff(c echo.Context) error {
	var req staffReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	v, err := h.Svc.VerifyStaff(req.StaffID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":                  true,
		"staff_info":               v.Staff,
		"available_priority_slots": v.AvailableSlots,
	})
}

// Book: POST /v1/priority/blocks/:block/slots/:slot/book
func (h *PriorityHandler) Book(c echo.Context) error {
	var req priorityBookReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.IssuePriorityTicket(ctx, service.PriorityRequest{
		StaffID: req.StaffID,
		Block:   c.Param("block"),
		Slot:    c.Param("slot"),
		Phone:   req.Phone,
		Meta:    requestMeta(c),
	})
	return issued(c, res, err, "Priority OTP sent")
}

// Verify: POST /v1/priority/blocks/:block/slots/:slot/book/verify
func (h *PriorityHandler) Verify(c echo.Context) error {
	var req priorityVerifyReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.VerifyPriorityTicket(ctx, service.CodeSubmission{
		Block:   c.Param("block"),
		Slot:    c.Param("slot"),
		StaffID: req.StaffID,
		Code:    req.Code,
		Meta:    requestMeta(c),
	})
	return verified(c, res, err, "Priority slot booked successfully")
}

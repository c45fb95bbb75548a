package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/service"
)

const requestTimeout = 5 * time.Second

// ParkingHandler exposes booking, release and slot queries.
type ParkingHandler struct {
	Svc *service.ParkingService
}

func NewParkingHandler(svc *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{Svc: svc}
}

// ----- DTOs -----

type bookReq struct {
	Phone       string              `json:"phone_number"`
	Fingerprint *FingerprintPayload `json:"fingerprint"`
	DeviceInfo  *FingerprintPayload `json:"device_info"`
}

type releaseReq struct {
	Phone string `json:"phone_number"`
}

type verifyReq struct {
	Phone           string `json:"phone_number"`
	Code            string `json:"otp"`
	FingerprintHash string `json:"fingerprint_hash"`
}

type issueResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	service.IssueResult
}

type verifyResp struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Slot       model.Slot `json:"slot"`
	ReleaseURL string     `json:"release_url,omitempty"`
}

// issued writes a successful issuance.  A delivery failure still carries
// the ticket id so the client can retry verification once the code lands.
func issued(c echo.Context, res service.IssueResult, err error, msg string) error {
	if err != nil {
		if errors.Is(err, service.ErrNotificationFailed) && res.TicketID != "" {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false, "error": "Failed to send OTP", "ticket_id": res.TicketID,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, issueResp{Success: true, Message: msg, IssueResult: res})
}

func verified(c echo.Context, res service.VerificationResult, err error, msg string) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, verifyResp{Success: true, Message: msg, Slot: res.Slot, ReleaseURL: res.ReleaseURL})
}

// Book: POST /v1/blocks/:block/slots/:slot/book
func (h *ParkingHandler) Book(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	in := service.BookingRequest{
		Block: c.Param("block"),
		Slot:  c.Param("slot"),
		Phone: req.Phone,
		Meta:  requestMeta(c),
	}
	fp := req.Fingerprint
	if fp == nil {
		fp = req.DeviceInfo
	}
	if fp != nil {
		snap := fp.Snapshot()
		in.Fingerprint = &snap
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.IssueBookingTicket(ctx, in)
	msg := "OTP sent"
	if in.Fingerprint != nil {
		msg = "OTP sent with device verification"
	}
	return issued(c, res, err, msg)
}

// VerifyBooking: POST /v1/blocks/:block/slots/:slot/book/verify
func (h *ParkingHandler) VerifyBooking(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.VerifyBookingTicket(ctx, service.CodeSubmission{
		Block:           c.Param("block"),
		Slot:            c.Param("slot"),
		Phone:           req.Phone,
		Code:            req.Code,
		FingerprintHash: req.FingerprintHash,
		Meta:            requestMeta(c),
	})
	return verified(c, res, err, "Slot booked successfully")
}

// Release: POST /v1/blocks/:block/slots/:slot/release
func (h *ParkingHandler) Release(c echo.Context) error {
	var req releaseReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.IssueReleaseTicket(ctx, service.ReleaseRequest{
		Block: c.Param("block"),
		Slot:  c.Param("slot"),
		Phone: req.Phone,
		Meta:  requestMeta(c),
	})
	return issued(c, res, err, "Release OTP sent")
}

// ScanRelease: POST /v1/blocks/:block/slots/:slot/release/scan
// Target of the QR release link; the code goes to the current occupant.
func (h *ParkingHandler) ScanRelease(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.IssueReleaseForSlot(ctx, c.Param("block"), c.Param("slot"), requestMeta(c))
	return issued(c, res, err, "Release OTP sent to the registered phone number")
}

// VerifyRelease: POST /v1/blocks/:block/slots/:slot/release/verify
func (h *ParkingHandler) VerifyRelease(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	res, err := h.Svc.VerifyReleaseTicket(ctx, service.CodeSubmission{
		Block: c.Param("block"),
		Slot:  c.Param("slot"),
		Phone: req.Phone,
		Code:  req.Code,
		Meta:  requestMeta(c),
	})
	return verified(c, res, err, "Slot released successfully")
}

// GetSlot: GET /v1/blocks/:block/slots/:slot
func (h *ParkingHandler) GetSlot(c echo.Context) error {
	s, err := h.Svc.QuerySlot(c.Param("block"), c.Param("slot"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// GetBlock: GET /v1/blocks/:block
func (h *ParkingHandler) GetBlock(c echo.Context) error {
	v, err := h.Svc.QueryBlock(c.Param("block"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// ListSlots: GET /v1/slots
func (h *ParkingHandler) ListSlots(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"blocks": h.Svc.ListSlots()})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/config"
	"github.com/iliyamo/smart-parking/internal/middleware"
	"github.com/iliyamo/smart-parking/internal/service"
	"github.com/iliyamo/smart-parking/internal/utils"
)

// AdminHandler bundles the admin login and maintenance endpoints.
type AdminHandler struct {
	Cfg config.Config
	Svc *service.ParkingService
}

func NewAdminHandler(cfg config.Config, svc *service.ParkingService) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Svc: svc}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login: POST /v1/admin/login
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	user := strings.TrimSpace(req.Username)
	if user == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	if user != h.Cfg.AdminUser || !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, user, middleware.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issue failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": tok.Token, "expires": tok.Exp})
}

func (h *AdminHandler) resetDone(c echo.Context, freed int, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "freed": freed})
}

// ResetAll: POST /v1/admin/reset
func (h *AdminHandler) ResetAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	freed, err := h.Svc.ResetAll(ctx, requestMeta(c))
	return h.resetDone(c, freed, err)
}

// ResetBlock: POST /v1/admin/blocks/:block/reset
func (h *AdminHandler) ResetBlock(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	freed, err := h.Svc.ResetBlock(ctx, requestMeta(c), c.Param("block"))
	return h.resetDone(c, freed, err)
}

// ResetSlot: POST /v1/admin/blocks/:block/slots/:slot/reset
func (h *AdminHandler) ResetSlot(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	freed, err := h.Svc.ResetSlot(ctx, requestMeta(c), c.Param("block"), c.Param("slot"))
	return h.resetDone(c, freed, err)
}

// Analytics: GET /v1/admin/analytics?window=24h
func (h *AdminHandler) Analytics(c echo.Context) error {
	window := service.DefaultAnalyticsWindow
	if w := c.QueryParam("window"); w != "" {
		d, err := time.ParseDuration(w)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window"})
		}
		window = d
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	sum, err := h.Svc.AnalyticsSummary(ctx, window)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

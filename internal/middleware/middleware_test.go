package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/config"
	"github.com/iliyamo/smart-parking/internal/utils"
)

func protected(secret string) *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(secret), RequireRole(RoleAdmin))
	g.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	})
	return e
}

func TestJWTAuthAndRole(t *testing.T) {
	e := protected("s3cret")
	sign := func(secret, role string) string {
		tok, err := utils.NewAccessToken(secret, "ops", role, 5)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return "Bearer " + tok.Token
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"admin", sign("s3cret", RoleAdmin), http.StatusOK},
		{"wrong role", sign("s3cret", "VIEWER"), http.StatusForbidden},
		{"wrong secret", sign("other", RoleAdmin), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusOK && rec.Body.String() != "ops" {
				t.Fatalf("subject = %q", rec.Body.String())
			}
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/blocks/medical/slots/3/book", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/blocks/:block/slots/:slot/book")
	c.SetParamNames("block", "slot")
	c.SetParamValues("medical", "3")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_slot"}
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.9:slot:medical/3" {
		t.Fatalf("ip_slot key = %q", got)
	}
	cfg.KeyStrategy = "route"
	if got := buildRateKey(cfg, c); got != "rl:route:POST /v1/blocks/:block/slots/:slot/book" {
		t.Fatalf("route key = %q", got)
	}
}

func TestMiddlewarePassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
		Metrics(),
	)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smart-parking/internal/config"
	"github.com/iliyamo/smart-parking/internal/handler"
	"github.com/iliyamo/smart-parking/internal/middleware"
	"github.com/iliyamo/smart-parking/internal/repository"
	"github.com/iliyamo/smart-parking/internal/router"
	"github.com/iliyamo/smart-parking/internal/service"
	"github.com/iliyamo/smart-parking/internal/utils"
)

const (
	testSecret = "test-secret"
	testPhone  = "+919876543210"
)

type inbox struct {
	mu   sync.Mutex
	sent map[string]string
}

func (n *inbox) Send(_ context.Context, to, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string]string{}
	}
	n.sent[to] = message
	return nil
}

var codePattern = regexp.MustCompile(`OTP[^0-9]*([0-9]{6})`)

func (n *inbox) code(t *testing.T, to string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	m := codePattern.FindStringSubmatch(n.sent[to])
	if m == nil {
		t.Fatalf("no code sent to %s", to)
	}
	return m[1]
}

// newServer wires the full route table over in-memory stores without
// redis: rate limiting and caching pass through.
func newServer(t *testing.T) (*echo.Echo, *inbox) {
	t.Helper()
	slots := repository.NewSlotRegistry([]string{"techpark", "medical"}, 10)
	pc := config.DefaultPriorityConfig()
	ranges := map[string][]string{}
	for block, entries := range pc.PrioritySlots {
		ids, err := config.ExpandSlotRanges(entries)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		ranges[block] = ids
	}
	directory := service.NewIdentityDirectory(pc.Staff)
	policy := service.NewPriorityPolicy(directory, slots, ranges, pc.MaxPriorityLevel)

	prints, err := repository.NewFingerprintFileRepo("", 0)
	if err != nil {
		t.Fatalf("fingerprints: %v", err)
	}
	audit, err := repository.NewAuditFileRepo("", 0)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	bookings, err := repository.NewBookingFileRepo("")
	if err != nil {
		t.Fatalf("bookings: %v", err)
	}
	n := &inbox{}
	svc := service.NewParkingService(service.Deps{
		Slots:     slots,
		Tickets:   service.NewTicketManager(slots, service.TicketManagerOptions{BaseURL: "http://parking.test/", Policy: policy}),
		Directory: directory,
		Policy:    policy,
		Trust:     service.NewFingerprintTrustEngine(prints, nil),
		Auditor:   service.NewSecurityAuditor(audit, prints, nil),
		Bookings:  bookings,
		Notifier:  n,
	})

	hash, err := utils.HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := config.Config{JWTSecret: testSecret, AdminUser: "admin", AdminPasswordHash: hash, AccessTTLMin: 5}

	e := echo.New()
	pass := middleware.NewTokenBucket(config.RateLimitConfig{}, nil)
	router.RegisterRoutes(e)
	router.RegisterParking(e, handler.NewParkingHandler(svc), handler.NewFingerprintHandler(svc), pass)
	router.RegisterPriority(e, handler.NewPriorityHandler(svc), pass)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, svc), testSecret, middleware.NewRedisCache(config.CacheConfig{}, nil))
	return e, n
}

func do(t *testing.T, e *echo.Echo, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestBookVerifyRelease(t *testing.T) {
	e, n := newServer(t)

	status, body := do(t, e, http.MethodPost, "/v1/blocks/techpark/slots/3/book", `{"phone_number":"98765 43210"}`, "")
	if status != http.StatusOK || body["ticket_id"] == "" || body["sent_to"] != "+91******3210" {
		t.Fatalf("book: %d %v", status, body)
	}
	if _, ok := body["otp"]; ok {
		t.Fatal("code leaked in response")
	}

	status, body = do(t, e, http.MethodPost, "/v1/blocks/techpark/slots/3/book/verify",
		`{"phone_number":"9876543210","otp":"000000"}`, "")
	if status != http.StatusBadRequest || body["error"] != "Invalid OTP" {
		t.Fatalf("wrong code: %d %v", status, body)
	}

	code := n.code(t, testPhone)
	status, body = do(t, e, http.MethodPost, "/v1/blocks/techpark/slots/3/book/verify",
		`{"phone_number":"9876543210","otp":"`+code+`"}`, "")
	if status != http.StatusOK || body["release_url"] != "http://parking.test/release/techpark/3" {
		t.Fatalf("verify: %d %v", status, body)
	}

	status, body = do(t, e, http.MethodGet, "/v1/blocks/techpark/slots/3", "", "")
	if status != http.StatusOK || body["status"] != "OCCUPIED" {
		t.Fatalf("query: %d %v", status, body)
	}

	status, body = do(t, e, http.MethodPost, "/v1/blocks/techpark/slots/3/book", `{"phone_number":"9123456789"}`, "")
	if status != http.StatusConflict {
		t.Fatalf("book occupied: %d %v", status, body)
	}

	// The release link sends the code to the occupant.
	status, body = do(t, e, http.MethodGet, "/release/techpark/3", "", "")
	if status != http.StatusOK {
		t.Fatalf("release link: %d %v", status, body)
	}
	code = n.code(t, testPhone)
	status, body = do(t, e, http.MethodPost, "/v1/blocks/techpark/slots/3/release/verify", `{"otp":"`+code+`"}`, "")
	if status != http.StatusOK {
		t.Fatalf("release verify: %d %v", status, body)
	}
	status, body = do(t, e, http.MethodGet, "/v1/blocks/techpark", "", "")
	if status != http.StatusOK || body["available"] != float64(10) {
		t.Fatalf("block: %d %v", status, body)
	}
}

func TestErrorStatuses(t *testing.T) {
	e, _ := newServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad phone", http.MethodPost, "/v1/blocks/techpark/slots/1/book", `{"phone_number":"12345"}`, http.StatusBadRequest},
		{"unknown slot", http.MethodPost, "/v1/blocks/techpark/slots/99/book", `{"phone_number":"9876543210"}`, http.StatusNotFound},
		{"no ticket", http.MethodPost, "/v1/blocks/techpark/slots/1/book/verify", `{"phone_number":"9876543210","otp":"123456"}`, http.StatusNotFound},
		{"release free slot", http.MethodPost, "/v1/blocks/techpark/slots/1/release", `{"phone_number":"9876543210"}`, http.StatusConflict},
		{"unknown staff", http.MethodPost, "/v1/priority/staff/verify", `{"staff_id":"NOPE"}`, http.StatusNotFound},
		{"low priority staff", http.MethodPost, "/v1/priority/blocks/medical/slots/2/book", `{"staff_id":"STF001","phone_number":"9876543210"}`, http.StatusForbidden},
		{"unknown block", http.MethodGet, "/v1/blocks/nowhere", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/v1/blocks/techpark/slots/1/book", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, e, tt.method, tt.path, tt.body, "")
			if status != tt.want {
				t.Fatalf("status = %d, want %d (%v)", status, tt.want, body)
			}
		})
	}
}

func TestPriorityEndpoints(t *testing.T) {
	e, n := newServer(t)

	status, body := do(t, e, http.MethodPost, "/v1/priority/staff/verify", `{"staff_id":"doc001"}`, "")
	if status != http.StatusOK {
		t.Fatalf("verify staff: %d %v", status, body)
	}
	avail, _ := body["available_priority_slots"].(map[string]any)
	if slots, _ := avail["medical"].([]any); len(slots) != 8 {
		t.Fatalf("available = %v", avail)
	}

	status, body = do(t, e, http.MethodPost, "/v1/priority/blocks/medical/slots/2/book",
		`{"staff_id":"DOC001","phone_number":"9876543210"}`, "")
	if status != http.StatusOK || body["staff_info"] == nil {
		t.Fatalf("priority book: %d %v", status, body)
	}
	code := n.code(t, testPhone)
	status, body = do(t, e, http.MethodPost, "/v1/priority/blocks/medical/slots/2/book/verify",
		`{"staff_id":"DOC001","otp":"`+code+`"}`, "")
	if status != http.StatusOK {
		t.Fatalf("priority verify: %d %v", status, body)
	}
	slot, _ := body["slot"].(map[string]any)
	if slot["staff_id"] != "DOC001" || slot["priority_booking"] != true {
		t.Fatalf("slot = %v", slot)
	}
}

func TestFingerprintVerify(t *testing.T) {
	e, _ := newServer(t)
	payload := `{"phone_number":"9876543210","fingerprint":{
		"fingerprint":"abc123","userAgent":"HeadlessChrome/120","platform":"Linux",
		"screen":{"width":800,"height":600,"colorDepth":24},"viewport":{"width":800,"height":600},
		"webGL":{"vendor":"Google","renderer":"SwiftShader"},"deviceMemory":8,"hardwareConcurrency":4}}`
	status, body := do(t, e, http.MethodPost, "/v1/fingerprint/verify", payload, "")
	if status != http.StatusOK || body["session_id"] == "" {
		t.Fatalf("fingerprint: %d %v", status, body)
	}
	risk, _ := body["risk_assessment"].(map[string]any)
	if risk["risk_level"] != "HIGH" {
		t.Fatalf("risk = %v", risk)
	}

	status, _ = do(t, e, http.MethodPost, "/v1/fingerprint/verify", `{"phone_number":"9876543210"}`, "")
	if status != http.StatusBadRequest {
		t.Fatalf("missing fingerprint: %d", status)
	}
}

func TestAdminEndpoints(t *testing.T) {
	e, _ := newServer(t)

	if status, _ := do(t, e, http.MethodPost, "/v1/admin/reset", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("reset without token: %d", status)
	}
	if status, _ := do(t, e, http.MethodPost, "/v1/admin/login", `{"username":"admin","password":"nope"}`, ""); status != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", status)
	}
	status, body := do(t, e, http.MethodPost, "/v1/admin/login", `{"username":"admin","password":"hunter2"}`, "")
	token, _ := body["token"].(string)
	if status != http.StatusOK || token == "" {
		t.Fatalf("login: %d %v", status, body)
	}

	if status, body = do(t, e, http.MethodPost, "/v1/admin/blocks/techpark/reset", "", token); status != http.StatusOK {
		t.Fatalf("reset block: %d %v", status, body)
	}
	if status, body = do(t, e, http.MethodGet, "/v1/admin/analytics?window=1h", "", token); status != http.StatusOK {
		t.Fatalf("analytics: %d %v", status, body)
	}
	if status, _ = do(t, e, http.MethodGet, "/v1/admin/analytics?window=soon", "", token); status != http.StatusBadRequest {
		t.Fatalf("bad window: %d", status)
	}

	// A valid token without the ADMIN role is refused.
	other, err := utils.NewAccessToken(testSecret, "u1", "CUSTOMER", 5)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ = do(t, e, http.MethodPost, "/v1/admin/reset", "", other.Token); status != http.StatusForbidden {
		t.Fatalf("non-admin reset: %d", status)
	}
}

func TestFingerprintPayloadSnapshot(t *testing.T) {
	var p handler.FingerprintPayload
	if err := json.Unmarshal([]byte(`{"fingerprint":" h1 ","screen":{"width":1920,"height":1080,"colorDepth":24},
		"deviceMemory":8,"hardwareConcurrency":"16","plugins":["pdf"]}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := p.Snapshot()
	if s.FingerprintHash != "h1" || s.ScreenResolution != "1920x1080" || s.ColorDepth != 24 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.DeviceMemory != "8" || s.HardwareConcurrency != "16" {
		t.Fatalf("device = %q / %q", s.DeviceMemory, s.HardwareConcurrency)
	}
	if s.Viewport != "0x0" {
		t.Fatalf("viewport default = %q", s.Viewport)
	}

	var empty handler.FingerprintPayload
	if s := empty.Snapshot(); s.DeviceMemory != "unknown" || s.ScreenResolution != "0x0" {
		t.Fatalf("empty snapshot = %+v", s)
	}
}

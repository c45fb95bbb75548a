package model

import "time"

// RiskLevel buckets a risk score.  NEW_USER and UNKNOWN only appear on
// trust verdicts that had nothing to compare against.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskNewUser RiskLevel = "NEW_USER"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// WebGLInfo holds the reported graphics vendor and renderer strings.
type WebGLInfo struct {
	Vendor   string `json:"vendor"`
	Renderer string `json:"renderer"`
}

// StorageSupport lists the client-side storage APIs the browser exposes.
type StorageSupport struct {
	LocalStorage   bool `json:"localStorage"`
	SessionStorage bool `json:"sessionStorage"`
	IndexedDB      bool `json:"indexedDB"`
}

// FeatureFlags lists optional browser features.
type FeatureFlags struct {
	WebWorker     bool `json:"webWorker"`
	ServiceWorker bool `json:"serviceWorker"`
	Geolocation   bool `json:"geolocation"`
	Notification  bool `json:"notification"`
}

// FingerprintSnapshot is one observed device profile.  It is a fixed-shape
// record: absent string signals stay empty, except DeviceMemory and
// HardwareConcurrency which default to "unknown" and the geometry fields
// which default to "0x0" (see FingerprintPayload.Snapshot).
type FingerprintSnapshot struct {
	FingerprintHash     string         `json:"fingerprint_hash"`
	UserAgent           string         `json:"user_agent"`
	Platform            string         `json:"platform"`
	Language            string         `json:"language"`
	Timezone            string         `json:"timezone"`
	ScreenResolution    string         `json:"screen_resolution"`
	ColorDepth          int            `json:"color_depth"`
	Viewport            string         `json:"viewport"`
	TouchSupport        bool           `json:"touch_support"`
	WebGL               WebGLInfo      `json:"webgl_info"`
	CanvasFingerprint   string         `json:"canvas_fingerprint"`
	AudioFingerprint    string         `json:"audio_fingerprint"`
	WebRTCFingerprint   string         `json:"webrtc_fingerprint"`
	Fonts               []string       `json:"fonts"`
	Plugins             []string       `json:"plugins"`
	Storage             StorageSupport `json:"storage_support"`
	DeviceMemory        string         `json:"device_memory"`
	HardwareConcurrency string         `json:"hardware_concurrency"`
	Features            FeatureFlags   `json:"features"`

	CapturedAt time.Time `json:"timestamp"`
	IPAddress  string    `json:"ip_address"`
	SessionID  string    `json:"session_id"`
}

// TrustReason explains a trust verdict.
type TrustReason string

const (
	ReasonNoHistory          TrustReason = "NoHistory"
	ReasonExactMatch         TrustReason = "ExactMatch"
	ReasonVeryHighSimilarity TrustReason = "VeryHighSimilarity"
	ReasonHighSimilarity     TrustReason = "HighSimilarity"
	ReasonModerateSimilarity TrustReason = "ModerateSimilarity"
	ReasonLowSimilarity      TrustReason = "LowSimilarity"
)

// TrustVerdict is the result of comparing a snapshot with a requester's
// history.  Confidence is in [0,100].
type TrustVerdict struct {
	Trusted    bool        `json:"is_trusted"`
	Confidence float64     `json:"confidence"`
	Reason     TrustReason `json:"reason"`
	RiskLevel  RiskLevel   `json:"risk_level"`
	Warning    string      `json:"warning,omitempty"`
}

// RiskAssessment is the additive heuristic score for a snapshot.
type RiskAssessment struct {
	Score      int       `json:"risk_score"`
	Level      RiskLevel `json:"risk_level"`
	Factors    []string  `json:"risk_factors"`
	Confidence float64   `json:"confidence"`
	Rejected   bool      `json:"rejected"`
}

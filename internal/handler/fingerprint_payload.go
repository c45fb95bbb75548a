package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/service"
)

// looseString accepts a JSON string or number.  Browsers report
// deviceMemory and hardwareConcurrency as numbers.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

type dimensions struct {
	Width      int `json:"width"`
	Height     int `json:"height"`
	ColorDepth int `json:"colorDepth"`
}

func (d *dimensions) String() string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(d.Width) + "x" + strconv.Itoa(d.Height)
}

// FingerprintPayload is the device profile posted by the browser
// collector.  Absent fields take the documented defaults in Snapshot.
type FingerprintPayload struct {
	Fingerprint         string          `json:"fingerprint"`
	UserAgent           string          `json:"userAgent"`
	Platform            string          `json:"platform"`
	Language            string          `json:"language"`
	Timezone            string          `json:"timezone"`
	Screen              *dimensions     `json:"screen"`
	Viewport            *dimensions     `json:"viewport"`
	TouchSupport        bool            `json:"touchSupport"`
	WebGL               model.WebGLInfo `json:"webGL"`
	Canvas              string          `json:"canvas"`
	AudioContext        string          `json:"audioContext"`
	WebRTC              string          `json:"webRTC"`
	Fonts               []string        `json:"fonts"`
	Plugins             []string        `json:"plugins"`
	LocalStorage        bool            `json:"localStorage"`
	SessionStorage      bool            `json:"sessionStorage"`
	IndexedDB           bool            `json:"indexedDB"`
	DeviceMemory        looseString     `json:"deviceMemory"`
	HardwareConcurrency looseString     `json:"hardwareConcurrency"`
	WebWorker           bool            `json:"webWorker"`
	ServiceWorker       bool            `json:"serviceWorker"`
	Geolocation         bool            `json:"geolocation"`
	Notification        bool            `json:"notification"`
}

// Snapshot converts the payload into the fixed-shape snapshot the trust
// engine scores.
func (p FingerprintPayload) Snapshot() model.FingerprintSnapshot {
	s := model.FingerprintSnapshot{
		FingerprintHash:     strings.TrimSpace(p.Fingerprint),
		UserAgent:           p.UserAgent,
		Platform:            p.Platform,
		Language:            p.Language,
		Timezone:            p.Timezone,
		ScreenResolution:    p.Screen.String(),
		Viewport:            p.Viewport.String(),
		TouchSupport:        p.TouchSupport,
		WebGL:               p.WebGL,
		CanvasFingerprint:   p.Canvas,
		AudioFingerprint:    p.AudioContext,
		WebRTCFingerprint:   p.WebRTC,
		Fonts:               p.Fonts,
		Plugins:             p.Plugins,
		Storage:             model.StorageSupport{LocalStorage: p.LocalStorage, SessionStorage: p.SessionStorage, IndexedDB: p.IndexedDB},
		DeviceMemory:        string(p.DeviceMemory),
		HardwareConcurrency: string(p.HardwareConcurrency),
		Features: model.FeatureFlags{
			WebWorker:     p.WebWorker,
			ServiceWorker: p.ServiceWorker,
			Geolocation:   p.Geolocation,
			Notification:  p.Notification,
		},
	}
	if p.Screen != nil {
		s.ColorDepth = p.Screen.ColorDepth
	}
	return service.NormalizeSnapshot(s)
}

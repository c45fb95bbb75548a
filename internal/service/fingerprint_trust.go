package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/smart-parking/internal/model"
)

// FingerprintStore is the per-requester snapshot history.  Implementations
// keep at most the 10 most recent snapshots, oldest evicted first, and
// return them most recent last.
type FingerprintStore interface {
	Append(ctx context.Context, identity string, snap model.FingerprintSnapshot) (model.FingerprintSnapshot, error)
	List(ctx context.Context, identity string) ([]model.FingerprintSnapshot, error)
	All(ctx context.Context) (map[string][]model.FingerprintSnapshot, error)
}

// similarityWeights sum to 100.
var similarityWeights = []struct {
	field  string
	weight float64
	value  func(model.FingerprintSnapshot) string
}{
	{"user_agent", 25, func(s model.FingerprintSnapshot) string { return s.UserAgent }},
	{"platform", 20, func(s model.FingerprintSnapshot) string { return s.Platform }},
	{"screen_resolution", 15, func(s model.FingerprintSnapshot) string { return s.ScreenResolution }},
	{"timezone", 10, func(s model.FingerprintSnapshot) string { return s.Timezone }},
	{"language", 10, func(s model.FingerprintSnapshot) string { return s.Language }},
	{"hardware_concurrency", 8, func(s model.FingerprintSnapshot) string { return s.HardwareConcurrency }},
	{"device_memory", 7, func(s model.FingerprintSnapshot) string { return s.DeviceMemory }},
	{"canvas_fingerprint", 5, func(s model.FingerprintSnapshot) string { return s.CanvasFingerprint }},
}

// userAgentPrefix is the prefix length that still earns partial credit
// when only the browser version changed.
const userAgentPrefix = 50

var (
	automationKeywords = []string{"headless", "phantom", "selenium", "webdriver", "bot", "crawler"}
	virtualRenderers   = []string{"swiftshader", "llvmpipe", "mesa", "virtualbox", "vmware"}
)

// Similarity scores how alike two snapshots are, in [0,100].  Only fields
// present in both snapshots count, so the score is normalized over the
// comparable weight rather than the full table.
func Similarity(current, previous model.FingerprintSnapshot) float64 {
	var score, total float64
	for _, w := range similarityWeights {
		a, b := w.value(current), w.value(previous)
		if a == "" || b == "" {
			continue
		}
		total += w.weight
		switch {
		case a == b:
			score += w.weight
		case w.field == "user_agent" && runePrefix(a, userAgentPrefix) == runePrefix(b, userAgentPrefix):
			score += w.weight * 0.7
		}
	}
	if total == 0 {
		return 0
	}
	return math.Round(score/total*100*100) / 100
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// Classify compares a snapshot against a requester's history.  An exact
// hash match anywhere in the history is fully trusted; otherwise the
// snapshot is scored against the most recent entry.
func Classify(current model.FingerprintSnapshot, history []model.FingerprintSnapshot) model.TrustVerdict {
	if len(history) == 0 {
		return model.TrustVerdict{Confidence: 0, Reason: model.ReasonNoHistory, RiskLevel: model.RiskNewUser}
	}
	if current.FingerprintHash != "" {
		for _, h := range history {
			if h.FingerprintHash == current.FingerprintHash {
				return model.TrustVerdict{Trusted: true, Confidence: 100, Reason: model.ReasonExactMatch, RiskLevel: model.RiskLow}
			}
		}
	}

	sim := Similarity(current, history[len(history)-1])
	switch {
	case sim >= 85:
		return model.TrustVerdict{Trusted: true, Confidence: sim, Reason: model.ReasonVeryHighSimilarity, RiskLevel: model.RiskLow}
	case sim >= 70:
		return model.TrustVerdict{Trusted: true, Confidence: sim, Reason: model.ReasonHighSimilarity, RiskLevel: model.RiskLow}
	case sim >= 50:
		return model.TrustVerdict{
			Trusted:    true,
			Confidence: sim,
			Reason:     model.ReasonModerateSimilarity,
			RiskLevel:  model.RiskMedium,
			Warning:    "Device configuration appears modified",
		}
	default:
		return model.TrustVerdict{Confidence: sim, Reason: model.ReasonLowSimilarity, RiskLevel: model.RiskHigh}
	}
}

// Risk factor descriptions, reported in assessments and analytics.
const (
	FactorMissingFingerprint = "Missing fingerprint data"
	FactorSuspiciousAgent    = "Missing or suspicious user agent"
	FactorAutomation         = "Possible automation detected in user agent"
	FactorVirtualGraphics    = "Virtual/emulated graphics detected"
	FactorNoPlugins          = "No browser plugins detected"
	FactorViewportRatio      = "Unusual screen to viewport ratio"
	FactorInvalidGeometry    = "Invalid screen dimensions"
	FactorUnknownDevice      = "Completely unknown device"
	FactorPartialDevice      = "Partially recognized device"
	FactorLimitedFeatures    = "Limited browser feature support"
)

// RiskScore sums independent risk factors and clamps the total to
// [0,100].  HIGH starts at 70, MEDIUM at 40; a request is rejected only
// when the level is HIGH and the score exceeds 80.
func RiskScore(snap model.FingerprintSnapshot, verdict model.TrustVerdict) model.RiskAssessment {
	score := 0
	factors := []string{}
	add := func(points int, factor string) {
		score += points
		factors = append(factors, factor)
	}

	if snap.FingerprintHash == "" {
		add(30, FactorMissingFingerprint)
	}
	if snap.UserAgent == "" || snap.UserAgent == "unknown" {
		add(25, FactorSuspiciousAgent)
	}
	if containsAny(strings.ToLower(snap.UserAgent), automationKeywords) {
		add(40, FactorAutomation)
	}
	if containsAny(strings.ToLower(snap.WebGL.Renderer), virtualRenderers) {
		add(30, FactorVirtualGraphics)
	}
	if len(snap.Plugins) == 0 {
		add(15, FactorNoPlugins)
	}

	sw, _, errS := parseGeometry(snap.ScreenResolution)
	vw, _, errV := parseGeometry(snap.Viewport)
	switch {
	case errS != nil || errV != nil:
		add(10, FactorInvalidGeometry)
	case sw > 0 && vw > 0:
		if ratio := float64(vw) / float64(sw); ratio > 1.1 || ratio < 0.3 {
			add(20, FactorViewportRatio)
		}
	}

	if !verdict.Trusted {
		switch {
		case verdict.Confidence < 30:
			add(35, FactorUnknownDevice)
		case verdict.Confidence < 60:
			add(20, FactorPartialDevice)
		}
	}

	if !snap.Features.WebWorker && !snap.Features.ServiceWorker {
		add(10, FactorLimitedFeatures)
	}

	if score > 100 {
		score = 100
	}
	level := model.RiskLow
	switch {
	case score >= 70:
		level = model.RiskHigh
	case score >= 40:
		level = model.RiskMedium
	}
	return model.RiskAssessment{
		Score:      score,
		Level:      level,
		Factors:    factors,
		Confidence: verdict.Confidence,
		Rejected:   level == model.RiskHigh && score > 80,
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// parseGeometry parses "WxH".
func parseGeometry(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok || strings.Contains(h, "x") {
		return 0, 0, strconv.ErrSyntax
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, err
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// NormalizeSnapshot fills the documented defaults for absent fields:
// "unknown" for device memory and hardware concurrency, "0x0" for screen
// and viewport geometry.
func NormalizeSnapshot(s model.FingerprintSnapshot) model.FingerprintSnapshot {
	if s.DeviceMemory == "" {
		s.DeviceMemory = "unknown"
	}
	if s.HardwareConcurrency == "" {
		s.HardwareConcurrency = "unknown"
	}
	if s.ScreenResolution == "" {
		s.ScreenResolution = "0x0"
	}
	if s.Viewport == "" {
		s.Viewport = "0x0"
	}
	return s
}

// FingerprintTrustEngine scores submitted snapshots against the
// requester's stored history.
type FingerprintTrustEngine struct {
	store FingerprintStore
	now   func() time.Time
}

func NewFingerprintTrustEngine(store FingerprintStore, now func() time.Time) *FingerprintTrustEngine {
	if now == nil {
		now = time.Now
	}
	return &FingerprintTrustEngine{store: store, now: now}
}

// Capture normalizes snap and stamps it with capture metadata.
func (e *FingerprintTrustEngine) Capture(snap model.FingerprintSnapshot, meta model.RequestMeta) model.FingerprintSnapshot {
	snap = NormalizeSnapshot(snap)
	snap.CapturedAt = e.now().UTC()
	snap.IPAddress = meta.IPAddress
	snap.SessionID = "session_" + uuid.NewString()
	return snap
}

// Assess classifies snap against identity's history and scores its risk.
// The history is read before snap is recorded, so a snapshot never
// vouches for itself.
func (e *FingerprintTrustEngine) Assess(ctx context.Context, identity string, snap model.FingerprintSnapshot) (model.TrustVerdict, model.RiskAssessment, error) {
	history, err := e.store.List(ctx, identity)
	if err != nil {
		return model.TrustVerdict{}, model.RiskAssessment{}, err
	}
	verdict := Classify(snap, history)
	return verdict, RiskScore(snap, verdict), nil
}

// Record appends snap to identity's history.
func (e *FingerprintTrustEngine) Record(ctx context.Context, identity string, snap model.FingerprintSnapshot) (model.FingerprintSnapshot, error) {
	return e.store.Append(ctx, identity, snap)
}

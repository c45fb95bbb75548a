package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/smart-parking/internal/model"
)

// AuditStore is the append-only security log.  Implementations keep at
// most the 1000 most recent events, oldest evicted first.
type AuditStore interface {
	Append(ctx context.Context, ev model.SecurityEvent) error
	List(ctx context.Context) ([]model.SecurityEvent, error)
}

// DefaultAnalyticsWindow bounds the recent-activity list of a summary.
const DefaultAnalyticsWindow = 24 * time.Hour

// SecurityAuditor records security events and aggregates them with the
// fingerprint history for the analytics dashboard.  It never takes part
// in a decision.
type SecurityAuditor struct {
	events       AuditStore
	fingerprints FingerprintStore
	now          func() time.Time
}

func NewSecurityAuditor(events AuditStore, fingerprints FingerprintStore, now func() time.Time) *SecurityAuditor {
	if now == nil {
		now = time.Now
	}
	return &SecurityAuditor{events: events, fingerprints: fingerprints, now: now}
}

// Record appends an event.  Phone identities are stored masked; staff ids
// and "admin" are kept as given.  Failures are logged and swallowed:
// auditing must not fail the request that triggered it.
func (a *SecurityAuditor) Record(ctx context.Context, meta model.RequestMeta, identity, eventType string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	if strings.HasPrefix(identity, "+") {
		identity = MaskPhone(identity)
	}
	ev := model.SecurityEvent{
		Timestamp: a.now().UTC(),
		Identity:  identity,
		EventType: eventType,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := a.events.Append(ctx, ev); err != nil {
		log.Printf("audit: append %s for %s: %v", eventType, identity, err)
	}
}

// Events returns the retained events, oldest first.
func (a *SecurityAuditor) Events(ctx context.Context) ([]model.SecurityEvent, error) {
	return a.events.List(ctx)
}

// DeviceActivity is one recently captured snapshot in a summary.
type DeviceActivity struct {
	Timestamp time.Time       `json:"timestamp"`
	Platform  string          `json:"platform"`
	RiskLevel model.RiskLevel `json:"risk_level"`
	IPAddress string          `json:"ip_address"`
}

// SecurityEventCounts counts audit events by age.
type SecurityEventCounts struct {
	Last24h  int `json:"last_24h"`
	LastWeek int `json:"last_week"`
	InWindow int `json:"in_window"`
}

// RiskFactorCount is one entry of the top risk factor ranking.
type RiskFactorCount struct {
	Factor string `json:"factor"`
	Count  int    `json:"count"`
}

// AnalyticsSummary aggregates device and security activity.
type AnalyticsSummary struct {
	GeneratedAt      time.Time               `json:"generated_at"`
	Window           string                  `json:"window"`
	TotalUsers       int                     `json:"total_users"`
	TotalDevices     int                     `json:"total_devices"`
	PlatformStats    map[string]int          `json:"platform_stats"`
	RiskDistribution map[model.RiskLevel]int `json:"risk_distribution"`
	TopRiskFactors   []RiskFactorCount       `json:"top_risk_factors"`
	RecentActivity   []DeviceActivity        `json:"recent_activity"`
	SecurityEvents   SecurityEventCounts     `json:"security_events"`
	EventsByType     map[string]int          `json:"events_by_type"`
}

// Summarize builds an AnalyticsSummary.  Each stored snapshot is scored
// on its own, without history, the same way a first-time device is.
func (a *SecurityAuditor) Summarize(ctx context.Context, window time.Duration) (AnalyticsSummary, error) {
	if window <= 0 {
		window = DefaultAnalyticsWindow
	}
	now := a.now().UTC()
	out := AnalyticsSummary{
		GeneratedAt:      now,
		Window:           window.String(),
		PlatformStats:    map[string]int{},
		RiskDistribution: map[model.RiskLevel]int{model.RiskLow: 0, model.RiskMedium: 0, model.RiskHigh: 0},
		TopRiskFactors:   []RiskFactorCount{},
		RecentActivity:   []DeviceActivity{},
		EventsByType:     map[string]int{},
	}

	histories, err := a.fingerprints.All(ctx)
	if err != nil {
		return out, err
	}
	factors := map[string]int{}
	out.TotalUsers = len(histories)
	for _, snaps := range histories {
		out.TotalDevices += len(snaps)
		for _, s := range snaps {
			platform := s.Platform
			if platform == "" {
				platform = "Unknown"
			}
			out.PlatformStats[platform]++

			risk := RiskScore(s, Classify(s, nil))
			out.RiskDistribution[risk.Level]++
			for _, f := range risk.Factors {
				factors[f]++
			}
			if !s.CapturedAt.IsZero() && now.Sub(s.CapturedAt) <= window {
				ip := s.IPAddress
				if ip == "" {
					ip = "Unknown"
				}
				out.RecentActivity = append(out.RecentActivity, DeviceActivity{
					Timestamp: s.CapturedAt,
					Platform:  platform,
					RiskLevel: risk.Level,
					IPAddress: ip,
				})
			}
		}
	}
	for f, n := range factors {
		out.TopRiskFactors = append(out.TopRiskFactors, RiskFactorCount{Factor: f, Count: n})
	}
	sort.Slice(out.TopRiskFactors, func(i, j int) bool {
		if out.TopRiskFactors[i].Count != out.TopRiskFactors[j].Count {
			return out.TopRiskFactors[i].Count > out.TopRiskFactors[j].Count
		}
		return out.TopRiskFactors[i].Factor < out.TopRiskFactors[j].Factor
	})
	sort.Slice(out.RecentActivity, func(i, j int) bool {
		return out.RecentActivity[i].Timestamp.After(out.RecentActivity[j].Timestamp)
	})

	events, err := a.events.List(ctx)
	if err != nil {
		return out, err
	}
	for _, ev := range events {
		age := now.Sub(ev.Timestamp)
		if age <= 24*time.Hour {
			out.SecurityEvents.Last24h++
		}
		if age <= 7*24*time.Hour {
			out.SecurityEvents.LastWeek++
		}
		if age <= window {
			out.SecurityEvents.InWindow++
			out.EventsByType[ev.EventType]++
		}
	}
	return out, nil
}

package model

import "time"

// Security event types recorded by the auditor.
const (
	EventFingerprintVerification = "FINGERPRINT_VERIFICATION"
	EventEnhancedBookingAttempt  = "ENHANCED_BOOKING_ATTEMPT"
	EventFingerprintMismatch     = "FINGERPRINT_MISMATCH"
	EventRiskRejected            = "RISK_REJECTED"
	EventBookingSuccess          = "BOOKING_SUCCESS"
	EventPriorityBookingSuccess  = "PRIORITY_BOOKING_SUCCESS"
	EventReleaseSuccess          = "RELEASE_SUCCESS"
	EventVerificationFailed      = "VERIFICATION_FAILED"
	EventPolicyDenied            = "POLICY_DENIED"
	EventSlotReset               = "SLOT_RESET"
)

// SecurityEvent is one append-only audit record.
type SecurityEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Identity  string         `json:"phone_number"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
}

// RequestMeta describes the transport-level origin of a request.  The
// engine copies it into audit records and fingerprint captures.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

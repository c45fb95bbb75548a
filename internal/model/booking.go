package model

import "time"

// BookingRecord is the durable record of a slot's current occupant.  It
// outlives the in-memory registry so a release can be resumed after a
// restart.
//
// Fields:
//  Block, Slot     – slot identity.
//  Phone           – occupant.
//  StaffID         – set for priority bookings.
//  PriorityLevel   – staff tier for priority bookings.
//  ReleaseURL      – release link issued with the booking.
//  Device          – device context captured at booking time.
//  BookedAt        – commit time.
type BookingRecord struct {
	Block         string        `json:"block"`
	Slot          string        `json:"slot"`
	Phone         string        `json:"phone_number"`
	StaffID       string        `json:"staff_id,omitempty"`
	PriorityLevel int           `json:"priority_level,omitempty"`
	ReleaseURL    string        `json:"release_url"`
	Device        BookingDevice `json:"device_info"`
	BookedAt      time.Time     `json:"timestamp"`
}

// BookingDevice is the device context stored alongside a booking.
type BookingDevice struct {
	UserAgent       string    `json:"userAgent,omitempty"`
	IPAddress       string    `json:"ip,omitempty"`
	FingerprintHash string    `json:"fingerprint_hash,omitempty"`
	DeviceVerified  bool      `json:"device_verified,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level,omitempty"`
	Enhanced        bool      `json:"enhanced_security,omitempty"`
}

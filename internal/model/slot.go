package model

import "time"

// SlotStatus is the occupancy state of a parking slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotOccupied  SlotStatus = "OCCUPIED"
)

// TrustMetadata is attached to an occupied slot when the booking went
// through the fingerprint-gated path.  It is never mutated after the
// transition that created it, so copies may share the pointer.
//
// Fields:
//  FingerprintHash – hash submitted with the verifying request.
//  DeviceVerified  – trust verdict recorded when the ticket was issued.
//  RiskLevel       – risk level recorded when the ticket was issued.
type TrustMetadata struct {
	FingerprintHash string    `json:"fingerprint_hash"`
	DeviceVerified  bool      `json:"device_verified"`
	RiskLevel       RiskLevel `json:"risk_level"`
}

// Slot is one physical parking space identified by (Block, Number).  The
// SlotRegistry owns every Slot; callers only ever receive copies.
//
// Fields:
//  Block, Number   – identity of the slot.
//  Status          – AVAILABLE or OCCUPIED.
//  Occupant        – normalized phone bound to an occupied slot.
//  ReleaseRef      – release URL handed to the occupant.
//  StaffID         – staff identity for priority bookings.
//  PriorityBooking – true when the slot was taken through the priority flow.
//  Trust           – set only for fingerprint-gated bookings.
//  BookedAt        – time of the committing transition.
type Slot struct {
	Block           string         `json:"block"`
	Number          string         `json:"slot"`
	Status          SlotStatus     `json:"status"`
	Occupant        string         `json:"occupant,omitempty"`
	ReleaseRef      string         `json:"release_url,omitempty"`
	StaffID         string         `json:"staff_id,omitempty"`
	PriorityBooking bool           `json:"priority_booking,omitempty"`
	Trust           *TrustMetadata `json:"trust,omitempty"`
	BookedAt        *time.Time     `json:"booked_at,omitempty"`
}

// Occupied reports whether the slot is currently taken.
func (s Slot) Occupied() bool { return s.Status == SlotOccupied }

package model

import (
	"strings"
	"time"
)

// Purpose names the transition a ticket gates.
type Purpose string

const (
	PurposeBook         Purpose = "BOOK"
	PurposeRelease      Purpose = "RELEASE"
	PurposePriorityBook Purpose = "PRIORITY_BOOK"
)

// ExpectedStatus is the slot state the purpose requires before its
// transition may be applied.
func (p Purpose) ExpectedStatus() SlotStatus {
	if p == PurposeRelease {
		return SlotOccupied
	}
	return SlotAvailable
}

// TargetStatus is the slot state after a committed transition.
func (p Purpose) TargetStatus() SlotStatus {
	if p == PurposeRelease {
		return SlotAvailable
	}
	return SlotOccupied
}

// TicketKey is the negotiation key a ticket is filed under.  Keys combine
// the requester identity with the purpose and target so that two flows of
// the same requester never overwrite one another.
type TicketKey struct {
	Identity string
	Purpose  Purpose
	Block    string
	Slot     string
}

func (k TicketKey) String() string {
	return strings.Join([]string{k.Identity, string(k.Purpose), k.Block, k.Slot}, "|")
}

// ReservationTicket is one in-flight OTP exchange.  Tickets live only in
// process memory and are deleted on consumption, expiry or staleness.
//
// Fields:
//  ID              – generated id returned to the caller for correlation.
//  Key             – negotiation key.
//  Code            – 6 digit one-time code.
//  Phone           – normalized phone the code is delivered to and, for
//                    booking purposes, the future occupant.
//  StaffID         – staff identity for priority tickets.
//  IssuedAt        – creation time.
//  ExpiresAt       – IssuedAt + TTL.
//  FingerprintHash – hash recorded at issuance (enhanced tickets only).
//  Enhanced        – issued through the fingerprint-gated path.
//  DeviceVerified  – trust verdict at issuance.
//  RiskLevel       – risk level at issuance.
//  Attempts        – wrong codes submitted so far.
type ReservationTicket struct {
	ID              string
	Key             TicketKey
	Code            string
	Phone           string
	StaffID         string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	FingerprintHash string
	Enhanced        bool
	DeviceVerified  bool
	RiskLevel       RiskLevel
	Attempts        int
}

// Purpose is shorthand for t.Key.Purpose.
func (t *ReservationTicket) Purpose() Purpose { return t.Key.Purpose }

// Expired reports whether the ticket's TTL has elapsed at now.
func (t *ReservationTicket) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

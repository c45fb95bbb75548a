// Package service implements the reservation and trust engine: the OTP
// ticket protocol gating every slot transition, the staff priority policy,
// device fingerprint trust and risk scoring, and the security audit trail.
// ParkingService composes them into the operations the HTTP layer exposes.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/smart-parking/internal/model"
	"github.com/iliyamo/smart-parking/internal/repository"
)

// Sentinel errors returned by the engine.  Handlers map them to transport
// responses with errors.Is; none of them leave a slot half-mutated.
var (
	// ErrValidation: malformed phone, identity or missing field.  No state changed.
	ErrValidation = errors.New("validation failed")
	// ErrTicketNotFound: no live ticket under the negotiation key.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketExpired: the ticket outlived its TTL and was deleted.
	ErrTicketExpired = errors.New("ticket expired")
	// ErrInvalidCode: wrong code.  The ticket is kept for retries within its TTL.
	ErrInvalidCode = errors.New("invalid code")
	// ErrTrustMismatch: the device fingerprint changed mid-flow.  The ticket is kept.
	ErrTrustMismatch = errors.New("device fingerprint mismatch")
	// ErrStaleState: the slot no longer matches the flow's precondition.
	ErrStaleState = errors.New("slot state changed")
	// ErrConflict: a concurrent transition won the race.
	ErrConflict = errors.New("concurrent transition")
	// ErrRiskRejected: the device was vetoed before a ticket was issued.
	ErrRiskRejected = errors.New("security verification failed")
	// ErrPolicyDenied: the staff member may not take this slot.
	ErrPolicyDenied = errors.New("priority policy denied")
	// ErrUnknownStaff: the staff id is not in the directory.
	ErrUnknownStaff = errors.New("unknown staff id")
	// ErrNotOccupant: a release was requested by someone other than the occupant.
	ErrNotOccupant = errors.New("slot is not held by this requester")
	// ErrNotificationFailed: the code could not be delivered.  The ticket stays issued.
	ErrNotificationFailed = errors.New("failed to send OTP")
	// ErrSlotNotFound: unknown block or slot.
	ErrSlotNotFound = repository.ErrSlotNotFound
)

// RiskRejectedError carries the assessment that vetoed a request.
type RiskRejectedError struct {
	Assessment model.RiskAssessment
}

func (e *RiskRejectedError) Error() string {
	return fmt.Sprintf("%s: risk score %d (%s)", ErrRiskRejected, e.Assessment.Score, e.Assessment.Level)
}

func (e *RiskRejectedError) Is(target error) bool { return target == ErrRiskRejected }

// PolicyError carries the priority policy reason behind a denial.
type PolicyError struct {
	Reason PolicyReason
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyDenied, e.Reason)
}

func (e *PolicyError) Is(target error) bool {
	if target == ErrPolicyDenied {
		return true
	}
	return target == ErrUnknownStaff && e.Reason == ReasonUnknownStaff
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

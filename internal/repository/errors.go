// Package repository holds the state containers and stores behind the
// parking engine: the in-memory slot registry, fingerprint history, the
// audit log and durable booking records.  The sentinel errors below let
// higher layers such as the service and handlers distinguish failure
// scenarios with errors.Is.
package repository

import "errors"

// ErrConflict is returned when a slot transition loses a race: the slot
// was no longer in the expected state (or held by the expected occupant)
// when the caller acquired it.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrSlotNotFound is returned for an unknown block or slot number.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when no durable booking record exists
// for a slot.
var ErrBookingNotFound = errors.New("booking not found")

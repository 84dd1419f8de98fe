// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios and map them to the right HTTP status. ErrConflict and
// its more specific variants all roll back the enclosing transaction
// before surfacing.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on
// a resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because
// of conflicting state. Handlers should translate this into an HTTP
// 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a referenced user, event, pass,
// booking or registration does not exist. Handlers should translate
// this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInsufficientRooms is returned by the inventory ledger when a
// reserve cannot be satisfied without driving available_rooms
// negative.
var ErrInsufficientRooms = errors.New("not enough rooms")

// ErrDuplicateTransaction is returned when a checkout reuses a
// transaction identifier already recorded on a non-synthesized
// registration row.
var ErrDuplicateTransaction = errors.New("transaction id already used")

// ErrAlreadyBooked is returned when a user with an active
// accommodation booking attempts to create a second one.
var ErrAlreadyBooked = errors.New("user already has a booking")

// ErrAlreadyRegistered is returned when a user re-submits a checkout
// for an event or pass they already have a registration row for.
var ErrAlreadyRegistered = errors.New("already registered for item")

// ErrAmbiguousRecovery is returned by the recovery path when the
// paid amount matches more than one (gender, quantity) combination
// and the booking cannot be reconstructed without guessing.
var ErrAmbiguousRecovery = errors.New("ambiguous recovery match")

// isDuplicateKey reports whether err is a unique-key violation.
// MySQL surfaces error 1062; sqlite (used by the test databases)
// reports "UNIQUE constraint failed".
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}

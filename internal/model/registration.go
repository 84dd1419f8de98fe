package model

import "time"

// PassEntryTxn marks registration rows synthesized by pass explosion
// rather than paid for directly by the user. Such rows are excluded
// from admin-facing listings and from the transaction uniqueness
// check.
const PassEntryTxn = "PASS_ENTRY"

// Round eligibility values carried on each registration. Zero means
// the round has not been decided yet.
const (
	RoundUndecided  = 0
	RoundEligible   = 1
	RoundIneligible = -1
)

// Registration is one row per (user, purchased item) where the item
// is an event, a pass, or the accommodation category. It records the
// user's claim of payment; the authoritative confirmation lives in
// VerifiedRegistration.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – the purchasing user.
//  EventID         – event purchased (nil for pass/accommodation rows).
//  PassID          – pass purchased (nil for event/accommodation rows).
//  IsAccommodation – true when the row records an accommodation purchase.
//  TransactionID   – user-supplied identifier correlating one checkout.
//  Amount          – amount charged for the whole checkout, in rupees.
//  ProofPath       – blob-store path of the uploaded payment proof.
//  Round1..Round3  – tri-state eligibility flags (0, 1 or -1).
//  CreatedAt       – creation timestamp.
type Registration struct {
	ID              uint64    // registrations.id
	UserID          uint64    // registrations.user_id
	EventID         *uint64   // registrations.event_id (nullable)
	PassID          *uint64   // registrations.pass_id (nullable)
	IsAccommodation bool      // registrations.is_accommodation
	TransactionID   string    // registrations.transaction_id
	Amount          int64     // registrations.amount
	ProofPath       string    // registrations.proof_path
	Round1          int       // registrations.round1
	Round2          int       // registrations.round2
	Round3          int       // registrations.round3
	CreatedAt       time.Time // registrations.created_at
}

// VerifiedRegistration is the authoritative per (user, event) or
// per (user, pass) confirmation record. Existence with Verified=true
// is the single source of truth for "this user may attend this
// event" or "this user holds this pass", independent of the raw
// Registration row.
type VerifiedRegistration struct {
	ID            uint64  // verified_registrations.id
	UserID        uint64  // verified_registrations.user_id
	EventID       *uint64 // verified_registrations.event_id (nullable)
	PassID        *uint64 // verified_registrations.pass_id (nullable)
	Verified      bool    // verified_registrations.verified
	TransactionID string  // verified_registrations.transaction_id
}

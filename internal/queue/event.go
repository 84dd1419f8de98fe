// Package queue defines message payloads exchanged over the message broker.
package queue

// VerificationEmailEvent is published when a registration, pass or
// accommodation booking is verified. It carries enough information
// for the mail consumer to render and send the confirmation without
// querying the primary database.
type VerificationEmailEvent struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Kind     string `json:"kind"` // event | pass | accommodation | transaction
	ItemID   uint64 `json:"item_id,omitempty"`
}

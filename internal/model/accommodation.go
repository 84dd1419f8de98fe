package model

import "time"

// Accommodation booking lifecycle states. A booking is created as
// pending at checkout (with rooms already deducted), and moves to
// confirmed or rejected under admin review. Rejected bookings may be
// re-confirmed, which re-deducts inventory after a fresh
// availability check.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingRejected  = "REJECTED"
	BookingCancelled = "CANCELLED"
)

// AccommodationInventory is one ledger row per gender category.
// Invariant: 0 <= AvailableRooms <= TotalRooms at all times. The row
// is mutated only through the paired reserve/release operations in
// the repository, never by arbitrary clients.
type AccommodationInventory struct {
	Gender         string // accommodation_inventory.gender ("male" / "female")
	TotalRooms     int    // accommodation_inventory.total_rooms
	AvailableRooms int    // accommodation_inventory.available_rooms
	Fee            int64  // accommodation_inventory.fee (per room, rupees)
}

// AccommodationBooking is one row per user (unique on UserID). A
// confirmed booking blocks creation of a second booking for the same
// user.
type AccommodationBooking struct {
	ID            uint64    // accommodation_bookings.id
	UserID        uint64    // accommodation_bookings.user_id
	Gender        string    // accommodation_bookings.gender
	Status        string    // accommodation_bookings.status
	Quantity      int       // accommodation_bookings.quantity (rooms held)
	TransactionID string    // accommodation_bookings.transaction_id
	CreatedAt     time.Time // accommodation_bookings.created_at
	UpdatedAt     time.Time // accommodation_bookings.updated_at
}

package model

// Event represents a single symposium event a participant can
// register for. Fee is stored in whole rupees; DiscountPercent is an
// optional percentage applied at checkout.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the event.
//  Category        – event category ("tech" or "non-tech").
//  Fee             – registration fee in rupees.
//  DiscountPercent – percentage discount applied to the fee (0-100).
//  MaxTeamSize     – largest team allowed for the event.
type Event struct {
	ID              uint64 // events.id
	Name            string // events.name
	Category        string // events.category
	Fee             int64  // events.fee
	DiscountPercent int64  // events.discount_percent
	MaxTeamSize     int    // events.max_team_size
}

// Pass is a bundled purchase that unlocks a set of events. The
// unlocked set is declared explicitly in the pass_events table;
// Category exists as a fallback for legacy passes created before the
// mapping table (see the pass explosion engine).
type Pass struct {
	ID              uint64 // passes.id
	Name            string // passes.name
	Category        string // passes.category ("tech", "non-tech" or "" for legacy rows)
	Fee             int64  // passes.fee
	DiscountPercent int64  // passes.discount_percent
}

// PassEvent is one row of the static many-to-many pass_events
// mapping consumed read-only by the pass explosion engine.
type PassEvent struct {
	PassID  uint64 // pass_events.pass_id
	EventID uint64 // pass_events.event_id
}

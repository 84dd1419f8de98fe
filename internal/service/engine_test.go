package service

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utsavfest/symposium-backend/internal/model"
	"github.com/utsavfest/symposium-backend/internal/repository"
)

const testSchema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    full_name     TEXT NOT NULL DEFAULT '',
    mobile        TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'PARTICIPANT',
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE events (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL UNIQUE,
    category         TEXT NOT NULL DEFAULT '',
    fee              INTEGER NOT NULL DEFAULT 0,
    discount_percent INTEGER NOT NULL DEFAULT 0,
    max_team_size    INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE passes (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    name             TEXT NOT NULL UNIQUE,
    category         TEXT NOT NULL DEFAULT '',
    fee              INTEGER NOT NULL DEFAULT 0,
    discount_percent INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE pass_events (
    pass_id  INTEGER NOT NULL,
    event_id INTEGER NOT NULL,
    PRIMARY KEY (pass_id, event_id)
);
CREATE TABLE registrations (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id          INTEGER NOT NULL,
    event_id         INTEGER,
    pass_id          INTEGER,
    is_accommodation INTEGER NOT NULL DEFAULT 0,
    transaction_id   TEXT NOT NULL,
    amount           INTEGER NOT NULL DEFAULT 0,
    proof_path       TEXT NOT NULL DEFAULT '',
    round1           INTEGER NOT NULL DEFAULT 0,
    round2           INTEGER NOT NULL DEFAULT 0,
    round3           INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, event_id),
    UNIQUE (user_id, pass_id)
);
CREATE TABLE verified_registrations (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        INTEGER NOT NULL,
    event_id       INTEGER,
    pass_id        INTEGER,
    verified       INTEGER NOT NULL DEFAULT 0,
    transaction_id TEXT NOT NULL DEFAULT '',
    UNIQUE (user_id, event_id),
    UNIQUE (user_id, pass_id)
);
CREATE TABLE accommodation_inventory (
    gender          TEXT PRIMARY KEY,
    total_rooms     INTEGER NOT NULL,
    available_rooms INTEGER NOT NULL,
    fee             INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE accommodation_bookings (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        INTEGER NOT NULL UNIQUE,
    gender         TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'PENDING',
    quantity       INTEGER NOT NULL DEFAULT 1,
    transaction_id TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// engine bundles a fresh in-memory database with the services and
// repositories under test.
type engine struct {
	db        *sql.DB
	checkout  *Checkout
	verifier  *Verifier
	regs      *repository.RegistrationRepo
	verified  *repository.VerifiedRepo
	bookings  *repository.BookingRepo
	inventory *repository.InventoryRepo
	events    *repository.EventRepo
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// The pool must not open a second connection: each sqlite
	// :memory: connection is its own empty database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	verified := repository.NewVerifiedRepo(db)
	bookings := repository.NewBookingRepo(db)
	inventory := repository.NewInventoryRepo(db)

	return &engine{
		db:        db,
		checkout:  NewCheckout(db, regs, bookings, inventory),
		verifier:  NewVerifier(db, users, events, regs, verified, bookings, inventory, nil),
		regs:      regs,
		verified:  verified,
		bookings:  bookings,
		inventory: inventory,
		events:    events,
	}
}

func (e *engine) seedUser(t *testing.T, email string) uint64 {
	t.Helper()
	res, err := e.db.Exec(`INSERT INTO users (email, password_hash) VALUES (?, 'x')`, email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func (e *engine) seedEvent(t *testing.T, name, category string, fee int64) uint64 {
	t.Helper()
	res, err := e.db.Exec(
		`INSERT INTO events (name, category, fee) VALUES (?, ?, ?)`, name, category, fee)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func (e *engine) seedPass(t *testing.T, name, category string, fee int64) uint64 {
	t.Helper()
	res, err := e.db.Exec(
		`INSERT INTO passes (name, category, fee) VALUES (?, ?, ?)`, name, category, fee)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func (e *engine) seedInventory(t *testing.T, gender string, total int, fee int64) {
	t.Helper()
	_, err := e.db.Exec(
		`INSERT INTO accommodation_inventory (gender, total_rooms, available_rooms, fee) VALUES (?, ?, ?, ?)`,
		gender, total, total, fee)
	require.NoError(t, err)
}

func (e *engine) available(t *testing.T, gender string) int {
	t.Helper()
	n, err := e.inventory.Peek(context.Background(), gender)
	require.NoError(t, err)
	return n
}

func (e *engine) isEventVerified(t *testing.T, userID, eventID uint64) bool {
	t.Helper()
	ctx := context.Background()
	tx, err := e.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	ok, err := e.verified.IsEventVerifiedTx(ctx, tx, userID, eventID)
	require.NoError(t, err)
	return ok
}

func TestCheckoutAndVerifyTransaction(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	eventID := e.seedEvent(t, "Code Sprint", "tech", 150)
	e.seedInventory(t, "male", 5, 300)

	err := e.checkout.Submit(ctx, CheckoutInput{
		UserID:        user,
		EventIDs:      []uint64{eventID},
		Accommodation: &AccommodationRequest{Gender: "male", Quantity: 2},
		TransactionID: "TXN-1001",
		Amount:        750,
	})
	require.NoError(t, err)

	// Rooms are held while the booking is still pending.
	assert.Equal(t, 3, e.available(t, "male"))
	b, err := e.bookings.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.False(t, e.isEventVerified(t, user, eventID))

	count, err := e.verifier.VerifyTransaction(ctx, "TXN-1001")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // event + booking

	assert.True(t, e.isEventVerified(t, user, eventID))
	b, err = e.bookings.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 3, e.available(t, "male")) // no double deduction

	// Re-running the same verification changes nothing.
	count, err = e.verifier.VerifyTransaction(ctx, "TXN-1001")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 3, e.available(t, "male"))
}

func TestCheckoutDuplicateTransaction(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	alice := e.seedUser(t, "alice@example.com")
	bob := e.seedUser(t, "bob@example.com")
	ev1 := e.seedEvent(t, "Code Sprint", "tech", 150)
	ev2 := e.seedEvent(t, "Quiz", "non-tech", 100)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: alice, EventIDs: []uint64{ev1}, TransactionID: "TXN-1", Amount: 150,
	}))
	err := e.checkout.Submit(ctx, CheckoutInput{
		UserID: bob, EventIDs: []uint64{ev2}, TransactionID: "TXN-1", Amount: 100,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateTransaction)

	// Nothing from the rejected submission was persisted.
	rows, err := e.regs.ListByUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCheckoutValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	err := e.checkout.Submit(ctx, CheckoutInput{UserID: 1, TransactionID: "T", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidInput) // empty cart

	err = e.checkout.Submit(ctx, CheckoutInput{
		UserID: 1, EventIDs: []uint64{1}, TransactionID: model.PassEntryTxn, Amount: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidInput) // reserved identifier

	err = e.checkout.Submit(ctx, CheckoutInput{
		UserID: 1, TransactionID: "T", Amount: 1,
		Accommodation: &AccommodationRequest{Gender: "other", Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckoutInsufficientRooms(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	e.seedInventory(t, "female", 2, 600)

	err := e.checkout.Submit(ctx, CheckoutInput{
		UserID:        user,
		Accommodation: &AccommodationRequest{Gender: "female", Quantity: 3},
		TransactionID: "TXN-9",
		Amount:        1800,
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientRooms)

	// The whole submission rolled back: no booking, no registration,
	// ledger untouched.
	assert.Equal(t, 2, e.available(t, "female"))
	_, err = e.bookings.GetByUser(ctx, user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	rows, err := e.regs.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRejectThenReconfirmBooking(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	e.seedInventory(t, "male", 4, 300)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID:        user,
		Accommodation: &AccommodationRequest{Gender: "male", Quantity: 2},
		TransactionID: "TXN-2",
		Amount:        600,
	}))
	assert.Equal(t, 2, e.available(t, "male"))

	changed, err := e.verifier.RejectBooking(ctx, user)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, e.available(t, "male")) // rooms returned

	// Rejecting again is a no-op.
	changed, err = e.verifier.RejectBooking(ctx, user)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 4, e.available(t, "male"))

	// Re-confirming a rejected booking re-reserves the rooms.
	changed, err = e.verifier.VerifyBooking(ctx, user)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, e.available(t, "male"))

	b, err := e.bookings.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestReconfirmFailsOnShortage(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	alice := e.seedUser(t, "alice@example.com")
	bob := e.seedUser(t, "bob@example.com")
	e.seedInventory(t, "male", 2, 300)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID:        alice,
		Accommodation: &AccommodationRequest{Gender: "male", Quantity: 2},
		TransactionID: "TXN-A",
		Amount:        600,
	}))
	changed, err := e.verifier.RejectBooking(ctx, alice)
	require.NoError(t, err)
	assert.True(t, changed)

	// Bob takes the freed rooms.
	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID:        bob,
		Accommodation: &AccommodationRequest{Gender: "male", Quantity: 2},
		TransactionID: "TXN-B",
		Amount:        600,
	}))

	_, err = e.verifier.VerifyBooking(ctx, alice)
	assert.ErrorIs(t, err, repository.ErrInsufficientRooms)

	// Alice stays rejected and the ledger is unchanged.
	b, err := e.bookings.GetByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, model.BookingRejected, b.Status)
	assert.Equal(t, 0, e.available(t, "male"))
}

func TestVerifyEventIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	eventID := e.seedEvent(t, "Code Sprint", "tech", 150)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, EventIDs: []uint64{eventID}, TransactionID: "TXN-3", Amount: 150,
	}))

	changed, err := e.verifier.VerifyEvent(ctx, user, eventID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = e.verifier.VerifyEvent(ctx, user, eventID)
	require.NoError(t, err)
	assert.False(t, changed)

	// Exactly one authoritative row exists and it carries the
	// checkout's transaction identifier.
	rows, err := e.verified.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TXN-3", rows[0].TransactionID)
}

func TestUnverifyEvent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	eventID := e.seedEvent(t, "Code Sprint", "tech", 150)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, EventIDs: []uint64{eventID}, TransactionID: "TXN-4", Amount: 150,
	}))
	_, err := e.verifier.VerifyEvent(ctx, user, eventID)
	require.NoError(t, err)

	require.NoError(t, e.verifier.UnverifyEvent(ctx, user, eventID))
	assert.False(t, e.isEventVerified(t, user, eventID))

	// A second unverify has nothing to delete.
	err = e.verifier.UnverifyEvent(ctx, user, eventID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Verification after unverify works again.
	changed, err := e.verifier.VerifyEvent(ctx, user, eventID)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestVerifyTransactionUnknown(t *testing.T) {
	e := newEngine(t)
	_, err := e.verifier.VerifyTransaction(context.Background(), "NO-SUCH-TXN")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.verifier.VerifyTransaction(context.Background(), model.PassEntryTxn)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecoverByAmount(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	eventID := e.seedEvent(t, "Code Sprint", "tech", 150)
	e.seedInventory(t, "male", 5, 300)
	e.seedInventory(t, "female", 5, 600)

	// The user paid 600 but the booking row was never written. 600
	// equals the female fee exactly, so recovery must resolve to
	// (female, 1) even though 600 is also twice the male fee.
	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, EventIDs: []uint64{eventID}, TransactionID: "TXN-R", Amount: 600,
	}))

	changed, err := e.verifier.RecoverVerify(ctx, user)
	require.NoError(t, err)
	assert.True(t, changed)

	b, err := e.bookings.GetByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, "female", b.Gender)
	assert.Equal(t, 1, b.Quantity)
	assert.Equal(t, "TXN-R", b.TransactionID)
	assert.Equal(t, 4, e.available(t, "female"))
	assert.Equal(t, 5, e.available(t, "male"))

	// With the booking now present, recovery behaves like a plain
	// booking verification and reports no change.
	changed, err = e.verifier.RecoverVerify(ctx, user)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 4, e.available(t, "female"))
}

func TestRecoverAmbiguousAmount(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	eventID := e.seedEvent(t, "Code Sprint", "tech", 150)
	e.seedInventory(t, "male", 5, 300)
	e.seedInventory(t, "female", 5, 600)

	// 1200 is a multiple of both fees and equal to neither; recovery
	// must refuse rather than guess.
	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, EventIDs: []uint64{eventID}, TransactionID: "TXN-X", Amount: 1200,
	}))

	_, err := e.verifier.RecoverVerify(ctx, user)
	assert.ErrorIs(t, err, repository.ErrAmbiguousRecovery)

	_, err = e.bookings.GetByUser(ctx, user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 5, e.available(t, "male"))
	assert.Equal(t, 5, e.available(t, "female"))
}

func TestRecoverNoPayment(t *testing.T) {
	e := newEngine(t)
	user := e.seedUser(t, "alice@example.com")
	e.seedInventory(t, "male", 5, 300)

	_, err := e.verifier.RecoverVerify(context.Background(), user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMatchAmount(t *testing.T) {
	fees := map[string]int64{"male": 300, "female": 600}

	gender, qty, err := matchAmount(600, fees)
	require.NoError(t, err)
	assert.Equal(t, "female", gender)
	assert.Equal(t, 1, qty)

	gender, qty, err = matchAmount(900, fees)
	require.NoError(t, err)
	assert.Equal(t, "male", gender)
	assert.Equal(t, 3, qty)

	_, _, err = matchAmount(1200, fees)
	assert.ErrorIs(t, err, repository.ErrAmbiguousRecovery)

	_, _, err = matchAmount(250, fees)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = matchAmount(0, fees)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = matchAmount(300, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

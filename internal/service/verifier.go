package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/utsavfest/symposium-backend/internal/model"
	"github.com/utsavfest/symposium-backend/internal/monitoring"
	"github.com/utsavfest/symposium-backend/internal/queue"
	"github.com/utsavfest/symposium-backend/internal/repository"
)

// ErrInvalidInput marks requests rejected before any store access.
var ErrInvalidInput = errors.New("invalid input")

// MailPublisher publishes verification emails. Failures are logged
// by the verifier and never block or roll back a verification.
type MailPublisher interface {
	PublishVerificationEmail(ctx context.Context, ev queue.VerificationEmailEvent) error
}

// Verifier is the verification state machine and its orchestration
// entry points. Event/pass verification is a delete-then-insert of
// the authoritative verified row; accommodation verification drives
// the booking status machine together with the inventory ledger.
// Every public method wraps its statements in one database
// transaction with rollback on error.
type Verifier struct {
	db        *sql.DB
	users     *repository.UserRepo
	events    *repository.EventRepo
	regs      *repository.RegistrationRepo
	verified  *repository.VerifiedRepo
	bookings  *repository.BookingRepo
	inventory *repository.InventoryRepo
	mail      MailPublisher // optional
}

// NewVerifier constructs the verifier. mail may be nil, in which
// case no emails are published.
func NewVerifier(db *sql.DB, users *repository.UserRepo, events *repository.EventRepo,
	regs *repository.RegistrationRepo, verified *repository.VerifiedRepo,
	bookings *repository.BookingRepo, inventory *repository.InventoryRepo,
	mail MailPublisher) *Verifier {
	return &Verifier{
		db: db, users: users, events: events, regs: regs,
		verified: verified, bookings: bookings, inventory: inventory, mail: mail,
	}
}

// VerifyEvent promotes one (user, event) registration to verified.
// It returns false when the pair was already verified (a no-op, not
// an error).
func (v *Verifier) VerifyEvent(ctx context.Context, userID, eventID uint64) (bool, error) {
	if userID == 0 || eventID == 0 {
		return false, ErrInvalidInput
	}
	if _, err := v.events.GetEvent(ctx, eventID); err != nil {
		return false, err
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	changed, err := v.verifyEventTx(ctx, tx, userID, eventID, "")
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	if changed {
		monitoring.VerificationsTotal.WithLabelValues("event").Inc()
		v.notify(ctx, userID, "event", eventID)
	}
	return changed, nil
}

// verifyEventTx is the event path of the state machine inside an
// existing transaction. txnID tags the fresh verified row; when
// empty it is resolved from the user's registration row for the
// event.
func (v *Verifier) verifyEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64, txnID string) (bool, error) {
	already, err := v.verified.IsEventVerifiedTx(ctx, tx, userID, eventID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if txnID == "" {
		txnID = v.lookupEventTxn(ctx, tx, userID, eventID)
	}
	if err := v.verified.ReplaceEventTx(ctx, tx, userID, eventID, txnID); err != nil {
		return false, err
	}
	return true, nil
}

func (v *Verifier) lookupEventTxn(ctx context.Context, tx *sql.Tx, userID, eventID uint64) string {
	var txn string
	err := tx.QueryRowContext(ctx,
		`SELECT transaction_id FROM registrations WHERE user_id = ? AND event_id = ? LIMIT 1`,
		userID, eventID).Scan(&txn)
	if err != nil {
		return ""
	}
	return txn
}

// VerifyPass promotes one (user, pass) registration to verified and
// explodes the pass into per-event verified registrations. Returns
// false when the pass was already verified; explosion still runs so
// a re-verify heals missing per-event rows.
func (v *Verifier) VerifyPass(ctx context.Context, userID, passID uint64) (bool, error) {
	if userID == 0 || passID == 0 {
		return false, ErrInvalidInput
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	changed, err := v.verifyPassTx(ctx, tx, userID, passID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	if changed {
		monitoring.VerificationsTotal.WithLabelValues("pass").Inc()
		v.notify(ctx, userID, "pass", passID)
	}
	return changed, nil
}

// verifyPassTx is the pass path inside an existing transaction.
func (v *Verifier) verifyPassTx(ctx context.Context, tx *sql.Tx, userID, passID uint64) (bool, error) {
	pass, err := v.events.GetPassTx(ctx, tx, passID)
	if err != nil {
		return false, err
	}
	already, err := v.verified.IsPassVerifiedTx(ctx, tx, userID, passID)
	if err != nil {
		return false, err
	}
	txnID := v.lookupPassTxn(ctx, tx, userID, passID)
	if !already {
		if err := v.verified.ReplacePassTx(ctx, tx, userID, passID, txnID); err != nil {
			return false, err
		}
	}
	// Explosion is idempotent; running it on a re-verify repairs any
	// missing per-event rows.
	if err := v.explodePassTx(ctx, tx, userID, pass, txnID); err != nil {
		return false, err
	}
	return !already, nil
}

func (v *Verifier) lookupPassTxn(ctx context.Context, tx *sql.Tx, userID, passID uint64) string {
	var txn string
	err := tx.QueryRowContext(ctx,
		`SELECT transaction_id FROM registrations WHERE user_id = ? AND pass_id = ? LIMIT 1`,
		userID, passID).Scan(&txn)
	if err != nil {
		return ""
	}
	return txn
}

// UnverifyEvent deletes the authoritative verified row for a
// (user, event) pair. Nothing is rolled back: only the
// accommodation reject path restores inventory.
func (v *Verifier) UnverifyEvent(ctx context.Context, userID, eventID uint64) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := v.verified.DeleteEventTx(ctx, tx, userID, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UnverifyPass deletes the authoritative verified row for a
// (user, pass) pair. Exploded per-event rows are left in place; they
// can be unverified individually when required.
func (v *Verifier) UnverifyPass(ctx context.Context, userID, passID uint64) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := v.verified.DeletePassTx(ctx, tx, userID, passID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// VerifyBooking confirms a user's accommodation booking.
//
//	pending  -> confirmed  (rooms already held since checkout)
//	rejected -> confirmed  (rooms re-reserved; fails on shortage)
//	confirmed -> confirmed (no-op, returns false)
func (v *Verifier) VerifyBooking(ctx context.Context, userID uint64) (bool, error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	changed, err := v.verifyBookingTx(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	if changed {
		monitoring.VerificationsTotal.WithLabelValues("accommodation").Inc()
		v.notify(ctx, userID, "accommodation", 0)
	}
	return changed, nil
}

func (v *Verifier) verifyBookingTx(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
	b, err := v.bookings.GetByUserTx(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	switch b.Status {
	case model.BookingConfirmed:
		return false, nil // already verified
	case model.BookingPending:
		if err := v.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingConfirmed); err != nil {
			return false, err
		}
		return true, nil
	case model.BookingRejected:
		// Rooms were released at rejection; a re-confirm must pass a
		// fresh availability check. On shortage the whole
		// verification aborts and the booking stays rejected.
		if err := v.inventory.ReserveTx(ctx, tx, b.Gender, b.Quantity); err != nil {
			return false, err
		}
		if err := v.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingConfirmed); err != nil {
			return false, err
		}
		return true, nil
	default: // cancelled
		return false, repository.ErrConflict
	}
}

// RejectBooking rejects a user's accommodation booking, returning
// its rooms to the ledger. Rejecting an already-rejected booking is
// a no-op that returns false.
func (v *Verifier) RejectBooking(ctx context.Context, userID uint64) (bool, error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := v.bookings.GetByUserTx(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	switch b.Status {
	case model.BookingRejected:
		return false, nil // already rejected
	case model.BookingPending, model.BookingConfirmed:
		if err := v.inventory.ReleaseTx(ctx, tx, b.Gender, b.Quantity); err != nil {
			return false, err
		}
		if err := v.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingRejected); err != nil {
			return false, err
		}
	default: // cancelled
		return false, repository.ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	monitoring.RejectionsTotal.Inc()
	return true, nil
}

// VerifyTransaction verifies every item submitted under one
// transaction identifier and returns the number of items that
// actually changed state. Already-verified items are skipped, not
// re-counted, so re-running on a fully verified transaction reports
// zero and mutates nothing.
func (v *Verifier) VerifyTransaction(ctx context.Context, txnID string) (int, error) {
	if txnID == "" || txnID == model.PassEntryTxn {
		return 0, ErrInvalidInput
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := v.regs.ListByTransactionTx(ctx, tx, txnID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, repository.ErrNotFound
	}

	count := 0
	for _, reg := range rows {
		var changed bool
		switch {
		case reg.IsAccommodation:
			changed, err = v.verifyBookingTx(ctx, tx, reg.UserID)
		case reg.EventID != nil:
			changed, err = v.verifyEventTx(ctx, tx, reg.UserID, *reg.EventID, txnID)
		case reg.PassID != nil:
			changed, err = v.verifyPassTx(ctx, tx, reg.UserID, *reg.PassID)
		default:
			continue
		}
		if err != nil {
			return 0, err
		}
		if changed {
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	if count > 0 {
		monitoring.VerificationsTotal.WithLabelValues("transaction").Inc()
		v.notify(ctx, rows[0].UserID, "transaction", 0)
	}
	return count, nil
}

// RecoverVerify is the fallback for verifying "by user" when the
// linkage records are missing. With a booking present it behaves
// like VerifyBooking. With no booking it reconstructs intent from
// the user's paid amount against current per-category fees: an
// amount equal to exactly one category's fee implies (category, 1);
// failing that, an amount that is an exact multiple of exactly one
// category's fee implies (category, amount/fee). More than one match
// refuses with ErrAmbiguousRecovery rather than guessing. The
// recreated booking is confirmed directly and rooms are deducted in
// the same transaction.
func (v *Verifier) RecoverVerify(ctx context.Context, userID uint64) (bool, error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := v.bookings.GetByUserTx(ctx, tx, userID); err == nil {
		changed, err := v.verifyBookingTx(ctx, tx, userID)
		if err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		committed = true
		return changed, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	amount, txnID, err := v.regs.LatestPaymentTx(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	fees, err := v.inventory.FeesTx(ctx, tx)
	if err != nil {
		return false, err
	}
	gender, quantity, err := matchAmount(amount, fees)
	if err != nil {
		return false, err
	}

	if err := v.bookings.CreateTx(ctx, tx, &model.AccommodationBooking{
		UserID:        userID,
		Gender:        gender,
		Status:        model.BookingConfirmed,
		Quantity:      quantity,
		TransactionID: txnID,
	}); err != nil {
		return false, err
	}
	if err := v.inventory.ReserveTx(ctx, tx, gender, quantity); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	monitoring.VerificationsTotal.WithLabelValues("recovery").Inc()
	v.notify(ctx, userID, "accommodation", 0)
	return true, nil
}

// matchAmount infers (gender, quantity) from a paid amount and the
// per-category fee map. Exact fee equality wins over multiples so a
// schedule like male=300/female=600 resolves 600 to (female, 1)
// instead of tripping over (male, 2).
func matchAmount(amount int64, fees map[string]int64) (string, int, error) {
	if amount <= 0 || len(fees) == 0 {
		return "", 0, repository.ErrNotFound
	}
	type match struct {
		gender   string
		quantity int
	}
	var exact, multiples []match
	for gender, fee := range fees {
		if fee <= 0 {
			continue
		}
		if amount == fee {
			exact = append(exact, match{gender, 1})
		} else if amount%fee == 0 {
			multiples = append(multiples, match{gender, int(amount / fee)})
		}
	}
	candidates := exact
	if len(candidates) == 0 {
		candidates = multiples
	}
	switch len(candidates) {
	case 0:
		return "", 0, repository.ErrNotFound
	case 1:
		return candidates[0].gender, candidates[0].quantity, nil
	default:
		return "", 0, repository.ErrAmbiguousRecovery
	}
}

// notify publishes a verification email. Mail is fire-and-forget:
// errors are logged and never surface to the verification caller.
func (v *Verifier) notify(ctx context.Context, userID uint64, kind string, itemID uint64) {
	if v.mail == nil {
		return
	}
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("verifier: user lookup for mail failed: %v", err)
		return
	}
	ev := queue.VerificationEmailEvent{
		Email:    u.Email,
		FullName: u.FullName,
		Kind:     kind,
		ItemID:   itemID,
	}
	if err := v.mail.PublishVerificationEmail(ctx, ev); err != nil {
		log.Printf("verifier: mail publish failed: %v", err)
	}
	monitoring.MailPublishedTotal.Inc()
}

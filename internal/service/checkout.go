package service

import (
	"context"
	"database/sql"

	"github.com/utsavfest/symposium-backend/internal/model"
	"github.com/utsavfest/symposium-backend/internal/monitoring"
	"github.com/utsavfest/symposium-backend/internal/repository"
)

// AccommodationRequest is the accommodation portion of a checkout.
type AccommodationRequest struct {
	Gender   string
	Quantity int
}

// CheckoutInput bundles everything a cart submission carries. All
// items share one user-supplied transaction identifier; Amount is
// the total the user claims to have paid for the whole cart.
type CheckoutInput struct {
	UserID        uint64
	EventIDs      []uint64
	PassIDs       []uint64
	Accommodation *AccommodationRequest
	TransactionID string
	Amount        int64
	ProofPath     string
}

// Checkout turns a cart submission into registration rows and, for
// accommodation, a pending booking with rooms already deducted.
// Holding rooms at checkout time rather than at verification time
// prevents over-selling between checkout and admin review; a
// rejection later releases them.
type Checkout struct {
	db        *sql.DB
	regs      *repository.RegistrationRepo
	bookings  *repository.BookingRepo
	inventory *repository.InventoryRepo
}

// NewCheckout constructs the checkout service.
func NewCheckout(db *sql.DB, regs *repository.RegistrationRepo, bookings *repository.BookingRepo,
	inventory *repository.InventoryRepo) *Checkout {
	return &Checkout{db: db, regs: regs, bookings: bookings, inventory: inventory}
}

// Submit records a checkout. Every row insert, the transaction-id
// uniqueness check and the provisional room deduction run inside one
// database transaction; any failure rolls the whole submission back.
//
// Returned errors: repository.ErrDuplicateTransaction,
// repository.ErrAlreadyRegistered, repository.ErrAlreadyBooked,
// repository.ErrInsufficientRooms, repository.ErrNotFound, or a
// storage error.
func (s *Checkout) Submit(ctx context.Context, in CheckoutInput) error {
	if err := validateCheckout(in); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The uniqueness check shares the insert's transaction; the
	// unique keys on the registration table back it up if two
	// submissions race past it.
	exists, err := s.regs.TransactionExistsTx(ctx, tx, in.TransactionID)
	if err != nil {
		return err
	}
	if exists {
		return repository.ErrDuplicateTransaction
	}

	for _, eventID := range in.EventIDs {
		has, err := s.regs.HasEventTx(ctx, tx, in.UserID, eventID)
		if err != nil {
			return err
		}
		if has {
			return repository.ErrAlreadyRegistered
		}
		id := eventID
		if err := s.regs.CreateTx(ctx, tx, &model.Registration{
			UserID:        in.UserID,
			EventID:       &id,
			TransactionID: in.TransactionID,
			Amount:        in.Amount,
			ProofPath:     in.ProofPath,
		}); err != nil {
			return err
		}
	}

	for _, passID := range in.PassIDs {
		has, err := s.regs.HasPassTx(ctx, tx, in.UserID, passID)
		if err != nil {
			return err
		}
		if has {
			return repository.ErrAlreadyRegistered
		}
		id := passID
		if err := s.regs.CreateTx(ctx, tx, &model.Registration{
			UserID:        in.UserID,
			PassID:        &id,
			TransactionID: in.TransactionID,
			Amount:        in.Amount,
			ProofPath:     in.ProofPath,
		}); err != nil {
			return err
		}
	}

	if in.Accommodation != nil {
		if err := s.bookings.CreateTx(ctx, tx, &model.AccommodationBooking{
			UserID:        in.UserID,
			Gender:        in.Accommodation.Gender,
			Status:        model.BookingPending,
			Quantity:      in.Accommodation.Quantity,
			TransactionID: in.TransactionID,
		}); err != nil {
			return err
		}
		// Provisional hold: rooms come out of the ledger now, while
		// the booking is still pending.
		if err := s.inventory.ReserveTx(ctx, tx, in.Accommodation.Gender, in.Accommodation.Quantity); err != nil {
			return err
		}
		if err := s.regs.CreateTx(ctx, tx, &model.Registration{
			UserID:          in.UserID,
			IsAccommodation: true,
			TransactionID:   in.TransactionID,
			Amount:          in.Amount,
			ProofPath:       in.ProofPath,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	monitoring.CheckoutsTotal.Inc()
	return nil
}

func validateCheckout(in CheckoutInput) error {
	if in.UserID == 0 || in.TransactionID == "" {
		return ErrInvalidInput
	}
	// PASS_ENTRY is reserved for rows synthesized by pass explosion.
	if in.TransactionID == model.PassEntryTxn {
		return ErrInvalidInput
	}
	if len(in.EventIDs) == 0 && len(in.PassIDs) == 0 && in.Accommodation == nil {
		return ErrInvalidInput
	}
	if acc := in.Accommodation; acc != nil {
		if acc.Quantity <= 0 {
			return ErrInvalidInput
		}
		if acc.Gender != "male" && acc.Gender != "female" {
			return ErrInvalidInput
		}
	}
	return nil
}

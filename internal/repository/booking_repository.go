package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// BookingRepo provides access to the accommodation_bookings table.
// A user has at most one booking row (unique on user_id); state
// transitions are performed by the verifier service inside a
// transaction together with the matching inventory adjustment.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func scanBooking(row *sql.Row) (*model.AccommodationBooking, error) {
	var b model.AccommodationBooking
	err := row.Scan(&b.ID, &b.UserID, &b.Gender, &b.Status, &b.Quantity,
		&b.TransactionID, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bookingColumns = `id, user_id, gender, status, quantity, transaction_id, created_at, updated_at`

// GetByUser returns the booking row for a user, or ErrNotFound.
func (r *BookingRepo) GetByUser(ctx context.Context, userID uint64) (*model.AccommodationBooking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM accommodation_bookings WHERE user_id = ? LIMIT 1`, userID)
	return scanBooking(row)
}

// GetByUserTx is GetByUser inside an existing transaction, used when
// the read informs a state transition in the same atomic unit.
func (r *BookingRepo) GetByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.AccommodationBooking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM accommodation_bookings WHERE user_id = ? LIMIT 1`, userID)
	return scanBooking(row)
}

// CreateTx inserts a booking row within the provided transaction and
// populates the generated ID. The unique key on user_id turns a
// second booking for the same user into ErrAlreadyBooked.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.AccommodationBooking) error {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	res, err := tx.ExecContext(ctx,
		`INSERT INTO accommodation_bookings (user_id, gender, status, quantity, transaction_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Gender, b.Status, b.Quantity, b.TransactionID, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrAlreadyBooked
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// UpdateStatusTx moves a booking to a new status within the provided
// transaction. The caller pairs this with the inventory adjustment
// that the transition requires.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status string) error {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	res, err := tx.ExecContext(ctx,
		`UPDATE accommodation_bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStatus returns bookings in the given status, newest first,
// for the admin review queue. An empty status returns all bookings.
func (r *BookingRepo) ListByStatus(ctx context.Context, status string) ([]model.AccommodationBooking, error) {
	q := `SELECT ` + bookingColumns + ` FROM accommodation_bookings`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AccommodationBooking, 0)
	for rows.Next() {
		var b model.AccommodationBooking
		if err := rows.Scan(&b.ID, &b.UserID, &b.Gender, &b.Status, &b.Quantity,
			&b.TransactionID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

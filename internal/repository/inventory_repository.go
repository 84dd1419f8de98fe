package repository

import (
	"context"
	"database/sql"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// InventoryRepo is the accommodation room ledger. One row exists per
// gender category and every mutation is a relative adjustment
// executed inside the caller's transaction, so two concurrent
// reserves can never both succeed on the last room.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions.
func (r *InventoryRepo) DB() *sql.DB { return r.db }

// ReserveTx deducts quantity rooms from the category inside the
// provided transaction. The availability check and the decrement are
// a single conditional UPDATE: when fewer than quantity rooms remain
// no row matches and ErrInsufficientRooms is returned, leaving the
// ledger untouched. ErrNotFound is returned for an unknown category.
func (r *InventoryRepo) ReserveTx(ctx context.Context, tx *sql.Tx, gender string, quantity int) error {
	if quantity <= 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE accommodation_inventory
		 SET available_rooms = available_rooms - ?
		 WHERE gender = ? AND available_rooms >= ?`,
		quantity, gender, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing category from a sold-out one.
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM accommodation_inventory WHERE gender = ?`, gender).Scan(&one)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrInsufficientRooms
	}
	return nil
}

// ReleaseTx returns quantity rooms to the category inside the
// provided transaction. The increment is guarded so available_rooms
// can never exceed total_rooms; a release that would overflow the
// ledger indicates a double release and is rejected with ErrConflict.
func (r *InventoryRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, gender string, quantity int) error {
	if quantity <= 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE accommodation_inventory
		 SET available_rooms = available_rooms + ?
		 WHERE gender = ? AND available_rooms + ? <= total_rooms`,
		quantity, gender, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Peek returns the number of rooms currently available in the
// category. It reads outside any transaction and must not be used to
// justify a write; writes re-check availability via ReserveTx.
func (r *InventoryRepo) Peek(ctx context.Context, gender string) (int, error) {
	var available int
	err := r.db.QueryRowContext(ctx,
		`SELECT available_rooms FROM accommodation_inventory WHERE gender = ?`,
		gender).Scan(&available)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return available, err
}

// FeesTx returns the per-room fee for every category, keyed by
// gender. The recovery path uses this map to infer a booking from a
// paid amount, so it reads inside the same transaction that will
// recreate the booking.
func (r *InventoryRepo) FeesTx(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT gender, fee FROM accommodation_inventory`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fees := make(map[string]int64)
	for rows.Next() {
		var gender string
		var fee int64
		if err := rows.Scan(&gender, &fee); err != nil {
			return nil, err
		}
		fees[gender] = fee
	}
	return fees, rows.Err()
}

// FeeByGender returns the per-room fee for one category.
func (r *InventoryRepo) FeeByGender(ctx context.Context, gender string) (int64, error) {
	var fee int64
	err := r.db.QueryRowContext(ctx,
		`SELECT fee FROM accommodation_inventory WHERE gender = ?`, gender).Scan(&fee)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return fee, err
}

// List returns every inventory row for the public availability view.
func (r *InventoryRepo) List(ctx context.Context) ([]model.AccommodationInventory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT gender, total_rooms, available_rooms, fee FROM accommodation_inventory ORDER BY gender`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AccommodationInventory, 0, 2)
	for rows.Next() {
		var inv model.AccommodationInventory
		if err := rows.Scan(&inv.Gender, &inv.TotalRooms, &inv.AvailableRooms, &inv.Fee); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

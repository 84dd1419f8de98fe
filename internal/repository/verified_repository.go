package repository

import (
	"context"
	"database/sql"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// VerifiedRepo provides access to the verified_registrations table,
// the authoritative record of which events a user may attend and
// which passes they hold. At most one row exists per (user, event)
// and per (user, pass); the schema enforces this with unique keys
// and writes go through ReplaceEventTx/ReplacePassTx, which delete
// any prior row and insert a fresh one inside the caller's
// transaction. That makes verification idempotent and self-healing
// against stale rows.
type VerifiedRepo struct {
	db *sql.DB
}

// NewVerifiedRepo returns a new VerifiedRepo bound to the given database.
func NewVerifiedRepo(db *sql.DB) *VerifiedRepo { return &VerifiedRepo{db: db} }

// IsEventVerifiedTx reports whether a verified row exists for the
// (user, event) pair.
func (r *VerifiedRepo) IsEventVerifiedTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM verified_registrations
		 WHERE user_id = ? AND event_id = ? AND verified = 1 LIMIT 1`,
		userID, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsPassVerifiedTx reports whether a verified row exists for the
// (user, pass) pair.
func (r *VerifiedRepo) IsPassVerifiedTx(ctx context.Context, tx *sql.Tx, userID, passID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM verified_registrations
		 WHERE user_id = ? AND pass_id = ? AND verified = 1 LIMIT 1`,
		userID, passID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceEventTx deletes any prior row for the (user, event) pair
// and inserts a fresh verified one tagged with the transaction
// identifier.
func (r *VerifiedRepo) ReplaceEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64, txnID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verified_registrations WHERE user_id = ? AND event_id = ?`,
		userID, eventID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO verified_registrations (user_id, event_id, pass_id, verified, transaction_id)
		 VALUES (?, ?, NULL, 1, ?)`,
		userID, eventID, txnID)
	return err
}

// ReplacePassTx deletes any prior row for the (user, pass) pair and
// inserts a fresh verified one.
func (r *VerifiedRepo) ReplacePassTx(ctx context.Context, tx *sql.Tx, userID, passID uint64, txnID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verified_registrations WHERE user_id = ? AND pass_id = ?`,
		userID, passID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO verified_registrations (user_id, event_id, pass_id, verified, transaction_id)
		 VALUES (?, NULL, ?, 1, ?)`,
		userID, passID, txnID)
	return err
}

// DeleteEventTx removes the authoritative row for a (user, event)
// pair. Manual unverify does not roll anything back: events have no
// finite inventory in this core.
func (r *VerifiedRepo) DeleteEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM verified_registrations WHERE user_id = ? AND event_id = ?`,
		userID, eventID)
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

// DeletePassTx removes the authoritative row for a (user, pass) pair.
func (r *VerifiedRepo) DeletePassTx(ctx context.Context, tx *sql.Tx, userID, passID uint64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM verified_registrations WHERE user_id = ? AND pass_id = ?`,
		userID, passID)
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

func scanVerified(rows *sql.Rows) ([]model.VerifiedRegistration, error) {
	defer rows.Close()
	out := make([]model.VerifiedRegistration, 0)
	for rows.Next() {
		var v model.VerifiedRegistration
		var eventID, passID sql.NullInt64
		if err := rows.Scan(&v.ID, &v.UserID, &eventID, &passID, &v.Verified, &v.TransactionID); err != nil {
			return nil, err
		}
		if eventID.Valid {
			id := uint64(eventID.Int64)
			v.EventID = &id
		}
		if passID.Valid {
			id := uint64(passID.Int64)
			v.PassID = &id
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByUser returns all verified rows for a user.
func (r *VerifiedRepo) ListByUser(ctx context.Context, userID uint64) ([]model.VerifiedRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, pass_id, verified, transaction_id
		 FROM verified_registrations WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return scanVerified(rows)
}

// ListByEvent returns all verified rows for an event, pass holders
// included, for attendance and reporting queries.
func (r *VerifiedRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.VerifiedRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, pass_id, verified, transaction_id
		 FROM verified_registrations WHERE event_id = ? AND verified = 1 ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	return scanVerified(rows)
}

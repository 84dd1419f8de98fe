package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// RegistrationRepo provides access to the registrations table: the
// append-mostly record of what a user claims to have paid for. Rows
// tagged with model.PassEntryTxn were synthesized by pass explosion
// and are excluded from admin listings and from the transaction
// uniqueness check.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, user_id, event_id, pass_id, is_accommodation,
	transaction_id, amount, proof_path, round1, round2, round3, created_at`

func scanRegistrations(rows *sql.Rows) ([]model.Registration, error) {
	defer rows.Close()
	out := make([]model.Registration, 0)
	for rows.Next() {
		var reg model.Registration
		var eventID, passID sql.NullInt64
		if err := rows.Scan(&reg.ID, &reg.UserID, &eventID, &passID, &reg.IsAccommodation,
			&reg.TransactionID, &reg.Amount, &reg.ProofPath,
			&reg.Round1, &reg.Round2, &reg.Round3, &reg.CreatedAt); err != nil {
			return nil, err
		}
		if eventID.Valid {
			id := uint64(eventID.Int64)
			reg.EventID = &id
		}
		if passID.Valid {
			id := uint64(passID.Int64)
			reg.PassID = &id
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// TransactionExistsTx reports whether any registration row already
// carries the transaction identifier. The check runs inside the
// checkout transaction so the dependent insert shares its atomic
// unit. Synthesized rows never collide here because PASS_ENTRY is
// rejected as a client-supplied identifier before checkout begins.
func (r *RegistrationRepo) TransactionExistsTx(ctx context.Context, tx *sql.Tx, txnID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM registrations WHERE transaction_id = ? LIMIT 1`, txnID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasEventTx reports whether the user already has a registration row
// for the event, including synthesized ones.
func (r *RegistrationRepo) HasEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM registrations WHERE user_id = ? AND event_id = ? LIMIT 1`,
		userID, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasPassTx reports whether the user already has a registration row
// for the pass.
func (r *RegistrationRepo) HasPassTx(ctx context.Context, tx *sql.Tx, userID, passID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM registrations WHERE user_id = ? AND pass_id = ? LIMIT 1`,
		userID, passID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a registration row within the provided
// transaction and populates the generated ID. The unique keys on
// (user_id, event_id) and (user_id, pass_id) turn re-checkouts into
// ErrAlreadyRegistered even when the pre-insert check raced.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (user_id, event_id, pass_id, is_accommodation,
		 transaction_id, amount, proof_path, round1, round2, round3, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.UserID, reg.EventID, reg.PassID, reg.IsAccommodation,
		reg.TransactionID, reg.Amount, reg.ProofPath,
		reg.Round1, reg.Round2, reg.Round3, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrAlreadyRegistered
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	return nil
}

// ListByTransactionTx returns every registration row sharing the
// transaction identifier, inside the verifier's transaction. A
// checkout may have bundled multiple events, a pass and an
// accommodation purchase under one identifier.
func (r *RegistrationRepo) ListByTransactionTx(ctx context.Context, tx *sql.Tx, txnID string) ([]model.Registration, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE transaction_id = ? ORDER BY id`, txnID)
	if err != nil {
		return nil, err
	}
	return scanRegistrations(rows)
}

// ListByUser returns all of a user's registration rows, including
// pass-synthesized ones, newest first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanRegistrations(rows)
}

// ListByEvent returns registrations for one event for the admin
// listing. Synthesized PASS_ENTRY rows are excluded; pass holders
// appear through the verified_registrations view instead.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? AND transaction_id <> ? ORDER BY id`,
		eventID, model.PassEntryTxn)
	if err != nil {
		return nil, err
	}
	return scanRegistrations(rows)
}

// LatestPaymentTx returns the amount and transaction identifier on
// the user's most recent directly-paid registration row. The
// recovery path matches the amount against per-category
// accommodation fees; sql.ErrNoRows maps to ErrNotFound.
func (r *RegistrationRepo) LatestPaymentTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, string, error) {
	var amount int64
	var txnID string
	err := tx.QueryRowContext(ctx,
		`SELECT amount, transaction_id FROM registrations
		 WHERE user_id = ? AND transaction_id <> ?
		 ORDER BY id DESC LIMIT 1`,
		userID, model.PassEntryTxn).Scan(&amount, &txnID)
	if err == sql.ErrNoRows {
		return 0, "", ErrNotFound
	}
	return amount, txnID, err
}

// SetRounds updates the tri-state round eligibility flags on one
// (user, event) registration row. Values must be -1, 0 or 1.
func (r *RegistrationRepo) SetRounds(ctx context.Context, userID, eventID uint64, r1, r2, r3 int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET round1 = ?, round2 = ?, round3 = ?
		 WHERE user_id = ? AND event_id = ?`,
		r1, r2, r3, userID, eventID)
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

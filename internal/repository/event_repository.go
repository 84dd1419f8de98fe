package repository

import (
	"context"
	"database/sql"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// EventRepo provides read access to event and pass metadata and to
// the pass_events mapping consumed by the pass explosion engine.
// Event and pass CRUD is managed out-of-band; the core only reads.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetEvent returns one event by ID, or ErrNotFound.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	var ev model.Event
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, fee, discount_percent, max_team_size FROM events WHERE id = ?`,
		id).Scan(&ev.ID, &ev.Name, &ev.Category, &ev.Fee, &ev.DiscountPercent, &ev.MaxTeamSize)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetPass returns one pass by ID, or ErrNotFound.
func (r *EventRepo) GetPass(ctx context.Context, id uint64) (*model.Pass, error) {
	var p model.Pass
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, fee, discount_percent FROM passes WHERE id = ?`,
		id).Scan(&p.ID, &p.Name, &p.Category, &p.Fee, &p.DiscountPercent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPassTx is GetPass inside an existing transaction; the verifier
// resolves pass metadata in the same atomic unit that explodes it.
func (r *EventRepo) GetPassTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Pass, error) {
	var p model.Pass
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, category, fee, discount_percent FROM passes WHERE id = ?`,
		id).Scan(&p.ID, &p.Name, &p.Category, &p.Fee, &p.DiscountPercent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListEvents returns all events ordered by name.
func (r *EventRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category, fee, discount_percent, max_team_size FROM events ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Category, &ev.Fee, &ev.DiscountPercent, &ev.MaxTeamSize); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListPasses returns all passes ordered by name.
func (r *EventRepo) ListPasses(ctx context.Context) ([]model.Pass, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category, fee, discount_percent FROM passes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Pass, 0)
	for rows.Next() {
		var p model.Pass
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Fee, &p.DiscountPercent); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EventIDsForPassTx returns the event IDs declared for the pass in
// the pass_events mapping table, inside the verifier's transaction.
// An empty slice means no explicit mapping exists and the caller may
// fall back to category matching.
func (r *EventRepo) EventIDsForPassTx(ctx context.Context, tx *sql.Tx, passID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT event_id FROM pass_events WHERE pass_id = ? ORDER BY event_id`, passID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EventIDsByCategoryTx returns the IDs of all events in a category,
// inside the verifier's transaction. Used by the legacy name-match
// fallback of the pass explosion engine.
func (r *EventRepo) EventIDsByCategoryTx(ctx context.Context, tx *sql.Tx, category string) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM events WHERE category = ? ORDER BY id`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

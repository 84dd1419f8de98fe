package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/utsavfest/symposium-backend/internal/model"
)

// explodePassTx synthesizes verified per-event registrations for
// every event the pass unlocks, inside the verifier's transaction.
// Event-scoped queries (attendance, rounds, listings) then need no
// special-case pass logic. The operation is idempotent: re-running
// for the same user and pass produces the same end state.
//
// The unlocked set comes from the pass_events mapping table when
// rows exist; otherwise from the pass's explicit category column;
// otherwise from substring matching on the pass name, the migration
// shim for legacy rows. A pass resolving to no events explodes into
// nothing and the explosion is silently a no-op.
func (v *Verifier) explodePassTx(ctx context.Context, tx *sql.Tx, userID uint64, pass *model.Pass, txnID string) error {
	eventIDs, err := v.events.EventIDsForPassTx(ctx, tx, pass.ID)
	if err != nil {
		return err
	}
	if len(eventIDs) == 0 {
		category := pass.Category
		if category == "" {
			category = categoryFromName(pass.Name)
		}
		if category == "" {
			return nil
		}
		eventIDs, err = v.events.EventIDsByCategoryTx(ctx, tx, category)
		if err != nil {
			return err
		}
	}

	for _, eventID := range eventIDs {
		has, err := v.regs.HasEventTx(ctx, tx, userID, eventID)
		if err != nil {
			return err
		}
		if !has {
			id := eventID
			if err := v.regs.CreateTx(ctx, tx, &model.Registration{
				UserID:        userID,
				EventID:       &id,
				TransactionID: model.PassEntryTxn,
			}); err != nil {
				return err
			}
		}
		// Replace any stale verified row; the fresh one carries the
		// pass purchase's transaction identifier.
		if err := v.verified.ReplaceEventTx(ctx, tx, userID, eventID, txnID); err != nil {
			return err
		}
	}
	return nil
}

// categoryFromName infers an event category from a legacy pass
// name. "non-tech" is checked before "tech" because the latter is a
// substring of the former.
func categoryFromName(name string) string {
	n := strings.ToLower(name)
	if strings.Contains(n, "non-tech") {
		return "non-tech"
	}
	if strings.Contains(n, "tech") {
		return "tech"
	}
	return ""
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utsavfest/symposium-backend/internal/model"
)

func TestVerifyPassExplodesByCategory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	tech1 := e.seedEvent(t, "Code Sprint", "tech", 150)
	tech2 := e.seedEvent(t, "Robo Race", "tech", 200)
	tech3 := e.seedEvent(t, "Hackathon", "tech", 250)
	other := e.seedEvent(t, "Quiz", "non-tech", 100)
	passID := e.seedPass(t, "Tech Combo", "tech", 400)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 400,
	}))

	changed, err := e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Every tech event got an authoritative verified row.
	for _, id := range []uint64{tech1, tech2, tech3} {
		assert.True(t, e.isEventVerified(t, user, id), "event %d", id)
	}
	assert.False(t, e.isEventVerified(t, user, other))

	// The synthesized registrations are tagged so listings can tell
	// them apart from paid rows.
	regs, err := e.regs.ListByUser(ctx, user)
	require.NoError(t, err)
	synthesized := 0
	for _, r := range regs {
		if r.TransactionID == model.PassEntryTxn {
			synthesized++
			require.NotNil(t, r.EventID)
		}
	}
	assert.Equal(t, 3, synthesized)

	// Synthesized rows stay out of the per-event admin listing.
	listed, err := e.regs.ListByEvent(ctx, tech1)
	require.NoError(t, err)
	assert.Empty(t, listed)
	attending, err := e.verified.ListByEvent(ctx, tech1)
	require.NoError(t, err)
	assert.Len(t, attending, 1)
}

func TestVerifyPassIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	tech := e.seedEvent(t, "Code Sprint", "tech", 150)
	passID := e.seedPass(t, "Tech Combo", "tech", 400)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 400,
	}))

	changed, err := e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Simulate a lost per-event row; a re-verify must heal it.
	_, err = e.db.Exec(`DELETE FROM verified_registrations WHERE event_id = ?`, tech)
	require.NoError(t, err)

	changed, err = e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)
	assert.False(t, changed) // pass itself was already verified
	assert.True(t, e.isEventVerified(t, user, tech))

	// No duplicate synthesized registrations accumulated.
	regs, err := e.regs.ListByUser(ctx, user)
	require.NoError(t, err)
	count := 0
	for _, r := range regs {
		if r.TransactionID == model.PassEntryTxn {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestVerifyPassMappingBeatsCategory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	mapped := e.seedEvent(t, "Code Sprint", "tech", 150)
	unmapped := e.seedEvent(t, "Robo Race", "tech", 200)
	passID := e.seedPass(t, "Sprint Pass", "tech", 150)
	_, err := e.db.Exec(`INSERT INTO pass_events (pass_id, event_id) VALUES (?, ?)`, passID, mapped)
	require.NoError(t, err)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 150,
	}))
	_, err = e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)

	// The explicit mapping wins; the category fallback never runs.
	assert.True(t, e.isEventVerified(t, user, mapped))
	assert.False(t, e.isEventVerified(t, user, unmapped))
}

func TestVerifyPassNameFallback(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	tech := e.seedEvent(t, "Code Sprint", "tech", 150)
	nontech := e.seedEvent(t, "Quiz", "non-tech", 100)
	// Legacy pass row: no category column value, no mapping. The name
	// contains "non-tech", which also contains "tech" as a substring;
	// it must resolve to non-tech.
	passID := e.seedPass(t, "Non-Tech All Access", "", 300)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 300,
	}))
	_, err := e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)

	assert.True(t, e.isEventVerified(t, user, nontech))
	assert.False(t, e.isEventVerified(t, user, tech))
}

func TestVerifyPassNoResolutionIsNoOp(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	e.seedEvent(t, "Code Sprint", "tech", 150)
	passID := e.seedPass(t, "Cultural Pass", "", 200)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 200,
	}))

	// The pass resolves to no events: the pass itself still verifies,
	// nothing explodes and no error surfaces.
	changed, err := e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)
	assert.True(t, changed)

	rows, err := e.verified.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].PassID)
	assert.Equal(t, passID, *rows[0].PassID)
}

func TestCategoryFromName(t *testing.T) {
	assert.Equal(t, "non-tech", categoryFromName("Non-Tech Combo"))
	assert.Equal(t, "tech", categoryFromName("Tech Combo"))
	assert.Equal(t, "tech", categoryFromName("MEGA TECH PASS"))
	assert.Equal(t, "", categoryFromName("Cultural Night"))
}

func TestUnverifyPassKeepsExplodedRows(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.seedUser(t, "alice@example.com")
	tech := e.seedEvent(t, "Code Sprint", "tech", 150)
	passID := e.seedPass(t, "Tech Combo", "tech", 400)

	require.NoError(t, e.checkout.Submit(ctx, CheckoutInput{
		UserID: user, PassIDs: []uint64{passID}, TransactionID: "TXN-P", Amount: 400,
	}))
	_, err := e.verifier.VerifyPass(ctx, user, passID)
	require.NoError(t, err)

	require.NoError(t, e.verifier.UnverifyPass(ctx, user, passID))

	// The pass row is gone but the per-event row survives until it is
	// unverified on its own.
	rows, err := e.verified.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].EventID)
	assert.Equal(t, tech, *rows[0].EventID)
}

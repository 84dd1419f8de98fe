package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/utsavfest/symposium-backend/internal/blob"
	"github.com/utsavfest/symposium-backend/internal/model"
	"github.com/utsavfest/symposium-backend/internal/repository"
	"github.com/utsavfest/symposium-backend/internal/service"
)

// AdminHandler exposes the verification state machine and the review
// listings to administrators. All routes require the ADMIN role.
type AdminHandler struct {
	Verifier *service.Verifier
	Regs     *repository.RegistrationRepo
	Verified *repository.VerifiedRepo
	Bookings *repository.BookingRepo
	Proofs   *blob.Store
}

// NewAdminHandler wires the admin handler.
func NewAdminHandler(verifier *service.Verifier, regs *repository.RegistrationRepo,
	verified *repository.VerifiedRepo, bookings *repository.BookingRepo, proofs *blob.Store) *AdminHandler {
	return &AdminHandler{Verifier: verifier, Regs: regs, Verified: verified, Bookings: bookings, Proofs: proofs}
}

// VerifyTransaction verifies every item submitted under one
// transaction identifier. The response reports how many items
// actually changed state; zero means the transaction was already
// fully verified.
func (h *AdminHandler) VerifyTransaction(c echo.Context) error {
	txnID := strings.TrimSpace(c.Param("txn"))
	count, err := h.Verifier.VerifyTransaction(c.Request().Context(), txnID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction_id": txnID, "verified": count})
}

type verifyItemReq struct {
	UserID  uint64 `json:"user_id"`
	EventID uint64 `json:"event_id"`
	PassID  uint64 `json:"pass_id"`
}

// VerifyEvent verifies a single (user, event) pair.
func (h *AdminHandler) VerifyEvent(c echo.Context) error {
	var req verifyItemReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and event_id required"})
	}
	changed, err := h.Verifier.VerifyEvent(c.Request().Context(), req.UserID, req.EventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// VerifyPass verifies a single (user, pass) pair and explodes the
// pass into per-event verified registrations.
func (h *AdminHandler) VerifyPass(c echo.Context) error {
	var req verifyItemReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.PassID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and pass_id required"})
	}
	changed, err := h.Verifier.VerifyPass(c.Request().Context(), req.UserID, req.PassID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// Unverify removes the authoritative verified row for a (user, event)
// or (user, pass) pair, whichever the body names.
func (h *AdminHandler) Unverify(c echo.Context) error {
	var req verifyItemReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || (req.EventID == 0) == (req.PassID == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id plus exactly one of event_id or pass_id required"})
	}
	ctx := c.Request().Context()
	var err error
	if req.EventID != 0 {
		err = h.Verifier.UnverifyEvent(ctx, req.UserID, req.EventID)
	} else {
		err = h.Verifier.UnverifyPass(ctx, req.UserID, req.PassID)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "unverified"})
}

// VerifyBooking confirms a user's accommodation booking.
func (h *AdminHandler) VerifyBooking(c echo.Context) error {
	userID, ok := pathID(c, "userID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	changed, err := h.Verifier.VerifyBooking(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// RejectBooking rejects a user's accommodation booking and returns
// its rooms to the ledger.
func (h *AdminHandler) RejectBooking(c echo.Context) error {
	userID, ok := pathID(c, "userID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	changed, err := h.Verifier.RejectBooking(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// Recover runs the fallback verification for a user whose linkage
// records are missing, inferring the booking from the paid amount.
func (h *AdminHandler) Recover(c echo.Context) error {
	userID, ok := pathID(c, "userID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	changed, err := h.Verifier.RecoverVerify(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// RegistrationsByEvent lists an event's direct registrations together
// with its verified rows (pass holders included in the latter).
func (h *AdminHandler) RegistrationsByEvent(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	regs, err := h.Regs.ListByEvent(ctx, eventID)
	if err != nil {
		return writeError(c, err)
	}
	verified, err := h.Verified.ListByEvent(ctx, eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"registrations": regs,
		"verified":      verified,
	})
}

// ListBookings lists accommodation bookings, optionally filtered by
// ?status=PENDING|CONFIRMED|REJECTED|CANCELLED.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.BookingPending, model.BookingConfirmed, model.BookingRejected, model.BookingCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	bookings, err := h.Bookings.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// Proof streams the payment-proof upload referenced by ?path=, as
// listed on registration rows. The blob store refuses paths outside
// its directory.
func (h *AdminHandler) Proof(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "path required"})
	}
	f, err := h.Proofs.Open(path)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "proof not found"})
	}
	defer f.Close()
	return c.Stream(http.StatusOK, "application/octet-stream", f)
}

type roundsReq struct {
	UserID  uint64 `json:"user_id"`
	EventID uint64 `json:"event_id"`
	Round1  int    `json:"round1"`
	Round2  int    `json:"round2"`
	Round3  int    `json:"round3"`
}

// SetRounds updates the tri-state round eligibility flags on one
// (user, event) registration.
func (h *AdminHandler) SetRounds(c echo.Context) error {
	var req roundsReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and event_id required"})
	}
	for _, r := range []int{req.Round1, req.Round2, req.Round3} {
		if r < model.RoundIneligible || r > model.RoundEligible {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "round flags must be -1, 0 or 1"})
		}
	}
	if err := h.Regs.SetRounds(c.Request().Context(), req.UserID, req.EventID,
		req.Round1, req.Round2, req.Round3); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rounds updated"})
}

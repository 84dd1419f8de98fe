package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/utsavfest/symposium-backend/internal/repository"
)

// StatusHandler serves a participant's own view: submitted
// registrations, their verification state and the accommodation
// booking.
type StatusHandler struct {
	Regs     *repository.RegistrationRepo
	Verified *repository.VerifiedRepo
	Bookings *repository.BookingRepo
}

// NewStatusHandler wires the status handler.
func NewStatusHandler(regs *repository.RegistrationRepo, verified *repository.VerifiedRepo,
	bookings *repository.BookingRepo) *StatusHandler {
	return &StatusHandler{Regs: regs, Verified: verified, Bookings: bookings}
}

// MyRegistrations returns the caller's registration rows together
// with the authoritative verified rows, so the client can show a
// per-item verified flag.
func (h *StatusHandler) MyRegistrations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	regs, err := h.Regs.ListByUser(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	verified, err := h.Verified.ListByUser(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"registrations": regs,
		"verified":      verified,
	})
}

// MyBooking returns the caller's accommodation booking, 404 when none
// exists.
func (h *StatusHandler) MyBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Bookings.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

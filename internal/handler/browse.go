package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/utsavfest/symposium-backend/internal/repository"
)

// BrowseHandler serves the public catalog: events, passes and live
// accommodation availability. These endpoints sit behind the response
// cache middleware; none of them require authentication.
type BrowseHandler struct {
	Events    *repository.EventRepo
	Inventory *repository.InventoryRepo
}

// NewBrowseHandler wires the browse handler.
func NewBrowseHandler(events *repository.EventRepo, inventory *repository.InventoryRepo) *BrowseHandler {
	return &BrowseHandler{Events: events, Inventory: inventory}
}

// ListEvents returns every event with its discounted fee visible to
// participants.
func (h *BrowseHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.ListEvents(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// ListPasses returns every pass.
func (h *BrowseHandler) ListPasses(c echo.Context) error {
	passes, err := h.Events.ListPasses(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"passes": passes})
}

// Accommodation returns the room ledger per gender category. The
// numbers are advisory; checkout re-checks availability inside its
// transaction.
func (h *BrowseHandler) Accommodation(c echo.Context) error {
	inv, err := h.Inventory.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accommodation": inv})
}

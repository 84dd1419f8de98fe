package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/utsavfest/symposium-backend/internal/blob"
	"github.com/utsavfest/symposium-backend/internal/repository"
	"github.com/utsavfest/symposium-backend/internal/service"
)

// CheckoutHandler accepts cart submissions as multipart forms: the
// item lists, the payment transaction identifier, the claimed amount
// and the payment-proof screenshot.
type CheckoutHandler struct {
	Checkout  *service.Checkout
	Events    *repository.EventRepo
	Inventory *repository.InventoryRepo
	Proofs    *blob.Store
}

// NewCheckoutHandler wires the checkout handler.
func NewCheckoutHandler(checkout *service.Checkout, events *repository.EventRepo,
	inventory *repository.InventoryRepo, proofs *blob.Store) *CheckoutHandler {
	return &CheckoutHandler{Checkout: checkout, Events: events, Inventory: inventory, Proofs: proofs}
}

// Submit handles POST /v1/checkout.
//
// Form fields: transaction_id, amount, event_ids (comma-separated),
// pass_ids (comma-separated), accommodation_gender,
// accommodation_quantity, and a "proof" file part. The claimed amount
// must equal the priced cart total; mismatches are rejected before
// any row is written.
func (h *CheckoutHandler) Submit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	txnID := strings.TrimSpace(c.FormValue("transaction_id"))
	amount, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("amount")), 10, 64)
	if err != nil || amount <= 0 || txnID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_id and positive amount required"})
	}
	eventIDs, err := parseIDList(c.FormValue("event_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_ids"})
	}
	passIDs, err := parseIDList(c.FormValue("pass_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass_ids"})
	}

	var acc *service.AccommodationRequest
	gender := strings.ToLower(strings.TrimSpace(c.FormValue("accommodation_gender")))
	if gender != "" {
		qty, err := strconv.Atoi(strings.TrimSpace(c.FormValue("accommodation_quantity")))
		if err != nil || qty <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid accommodation_quantity"})
		}
		acc = &service.AccommodationRequest{Gender: gender, Quantity: qty}
	}

	var accGender string
	var accQty int
	if acc != nil {
		accGender, accQty = acc.Gender, acc.Quantity
	}
	expected, err := service.CartTotal(ctx, h.Events, h.Inventory, eventIDs, passIDs, accGender, accQty)
	if err != nil {
		return writeError(c, err)
	}
	if amount != expected {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "amount does not match cart total",
			"expected": expected,
		})
	}

	proofPath := ""
	if fh, err := c.FormFile("proof"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable proof upload"})
		}
		defer src.Close()
		proofPath, err = h.Proofs.Save(src, fh.Filename)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storing proof failed"})
		}
	}

	if err := h.Checkout.Submit(ctx, service.CheckoutInput{
		UserID:        userID,
		EventIDs:      eventIDs,
		PassIDs:       passIDs,
		Accommodation: acc,
		TransactionID: txnID,
		Amount:        amount,
		ProofPath:     proofPath,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "checkout recorded", "transaction_id": txnID})
}

func parseIDList(raw string) ([]uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil || n == 0 {
			return nil, err
		}
		ids = append(ids, n)
	}
	return ids, nil
}

package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/utsavfest/symposium-backend/internal/repository"
)

// discountedFee applies a percentage discount to a fee and rounds to
// whole rupees. Decimal arithmetic avoids the drift of float math on
// odd percentages.
func discountedFee(fee, discountPercent int64) int64 {
	if discountPercent <= 0 {
		return fee
	}
	f := decimal.NewFromInt(fee)
	cut := f.Mul(decimal.NewFromInt(discountPercent)).Div(decimal.NewFromInt(100))
	return f.Sub(cut).Round(0).IntPart()
}

// CartTotal computes the expected amount for a checkout: discounted
// event and pass fees plus accommodation fee times quantity. The
// checkout service compares this against the amount the user claims
// to have paid and rejects mismatches before any row is written.
func CartTotal(ctx context.Context, events *repository.EventRepo, inventory *repository.InventoryRepo,
	eventIDs, passIDs []uint64, gender string, quantity int) (int64, error) {
	total := decimal.Zero
	for _, id := range eventIDs {
		ev, err := events.GetEvent(ctx, id)
		if err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromInt(discountedFee(ev.Fee, ev.DiscountPercent)))
	}
	for _, id := range passIDs {
		p, err := events.GetPass(ctx, id)
		if err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromInt(discountedFee(p.Fee, p.DiscountPercent)))
	}
	if quantity > 0 {
		fee, err := inventory.FeeByGender(ctx, gender)
		if err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromInt(fee).Mul(decimal.NewFromInt(int64(quantity))))
	}
	return total.IntPart(), nil
}

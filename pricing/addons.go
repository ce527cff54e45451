package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ADD-ON CALCULATOR
// =============================================================================

// AddOnInput is everything the add-on calculator needs.
type AddOnInput struct {
	Catalog  []AddOn
	Selected []AddOnSelection

	// GuestCount <= 0 means not known yet (mid-wizard).
	GuestCount int

	// MinCapacity is the boat's minimum capacity, used as the provisional
	// guest count for PER_PERSON items while GuestCount is unknown.
	MinCapacity int
}

type AddOnResult struct {
	Lines       []AddOnLine
	Total       decimal.Decimal
	Provisional bool
}

// CalculateAddOns expands the selection into priced lines.
//
//	FIXED       price once, quantity is informational (default 1)
//	PER_PERSON  price * guest count
func CalculateAddOns(in AddOnInput) (AddOnResult, error) {
	catalog := make(map[AddOnID]AddOn, len(in.Catalog))
	for _, a := range in.Catalog {
		catalog[a.ID] = a
	}

	result := AddOnResult{Lines: make([]AddOnLine, 0, len(in.Selected)), Total: decimal.Zero}
	seen := make(map[AddOnID]bool, len(in.Selected))

	for _, sel := range in.Selected {
		item, ok := catalog[sel.AddOnID]
		if !ok {
			return AddOnResult{}, fmt.Errorf("%w: %s", ErrUnknownAddOn, sel.AddOnID)
		}
		if seen[sel.AddOnID] {
			return AddOnResult{}, fmt.Errorf("%w: add-on %s selected twice", ErrInvalidInput, sel.AddOnID)
		}
		seen[sel.AddOnID] = true

		if item.Price.IsNegative() {
			return AddOnResult{}, fmt.Errorf("%w: %s has negative price", ErrInvalidAddOn, item.ID)
		}
		if sel.Quantity < 0 {
			return AddOnResult{}, fmt.Errorf("%w: negative quantity for %s", ErrInvalidInput, item.ID)
		}

		line := AddOnLine{
			AddOnID:   item.ID,
			Type:      item.Type,
			Name:      item.Label,
			PriceType: item.PriceType,
			UnitPrice: item.Price,
		}

		switch item.PriceType {
		case PriceFixed:
			line.Quantity = sel.Quantity
			if line.Quantity == 0 {
				line.Quantity = 1
			}
			line.LineTotal = item.Price

		case PricePerPerson:
			guests := in.GuestCount
			if guests <= 0 {
				guests = in.MinCapacity
				result.Provisional = true
			}
			line.Quantity = guests
			line.LineTotal = item.Price.Mul(decimal.NewFromInt(int64(guests)))

		default:
			return AddOnResult{}, fmt.Errorf("%w: %s has unknown price type %q", ErrInvalidAddOn, item.ID, item.PriceType)
		}

		result.Lines = append(result.Lines, line)
		result.Total = result.Total.Add(line.LineTotal)
	}

	return result, nil
}

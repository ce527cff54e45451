package pricing

import "github.com/shopspring/decimal"

// =============================================================================
// TAX CALCULATOR - GST, optionally split into CGST/SGST
// =============================================================================

type TaxResult struct {
	GSTPercent  decimal.Decimal
	Inclusive   bool
	GSTAmount   decimal.Decimal
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	TotalAmount decimal.Decimal
}

// CalculateTax applies GST to the pre-tax subtotal.
//
//	exclusive: gst = round(subtotal * p / 100)          total = round(subtotal + exact gst)
//	inclusive: gst = round(subtotal - subtotal/(1+p/100)) total = round(subtotal)
//
// The subtotal may carry fractions; only the returned figures are rounded, and
// TotalAmount is computed from the unrounded tax. With a fractional subtotal the
// parts need not add up: 100.45 at 18% gives GSTAmount 18 and TotalAmount 119.
// TotalAmount is the figure that is charged.
func CalculateTax(subtotal, gstPercent decimal.Decimal, inclusive bool) TaxResult {
	var exactTax, total decimal.Decimal
	if inclusive {
		divisor := decimal.NewFromInt(1).Add(gstPercent.Div(hundred))
		exactTax = subtotal.Sub(subtotal.Div(divisor))
		total = subtotal
	} else {
		exactTax = PercentOf(subtotal, gstPercent)
		total = subtotal.Add(exactTax)
	}

	gst := RoundUnit(exactTax)
	half := gst.Div(decimal.NewFromInt(2))

	return TaxResult{
		GSTPercent:  gstPercent,
		Inclusive:   inclusive,
		GSTAmount:   gst,
		CGST:        half,
		SGST:        half,
		TotalAmount: RoundUnit(total),
	}
}

package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swiftbasket/swiftbasket-backend/pkg/db/models"
)

// UnitPrice is the effective price of one product unit for one shopper.
type UnitPrice struct {
	MRP          int
	SellingPrice int
	// OffPercent is a bare numeric string ("10" or "12.5"); display suffixes
	// like "% OFF" are the client's job.
	OffPercent string
}

// ComputeUnitPrice resolves the price a given shopper pays for a unit.
//
// Non-premium shoppers (or a zero subcategory discount) see the stored
// mrp/sellingPrice unchanged. Premium shoppers with a positive subcategory
// percent-off get sellingPrice reduced by that percentage, and the original
// sellingPrice becomes the displayed mrp so the discount reads as the gap
// between the two.
//
// Pure and deterministic: product listing, product detail, cart summary, and
// order placement must all price through here so the amount charged is the
// amount the cart showed.
func ComputeUnitPrice(unit models.ProductUnit, subcategoryPercentOff float64, premium bool) UnitPrice {
	if !premium || subcategoryPercentOff <= 0 {
		return UnitPrice{
			MRP:          unit.MRP,
			SellingPrice: unit.SellingPrice,
			OffPercent:   normalizeOffPercent(unit.OffPercent),
		}
	}

	base := decimal.NewFromInt(int64(unit.SellingPrice))
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(subcategoryPercentOff).Div(decimal.NewFromInt(100)))
	discounted := int(base.Mul(factor).Round(0).IntPart())

	return UnitPrice{
		MRP:          unit.SellingPrice,
		SellingPrice: discounted,
		OffPercent:   ComputeOffPercent(unit.SellingPrice, discounted),
	}
}

// ComputeOffPercent derives the discount percentage between an mrp and a
// selling price as a bare numeric string. Integral values carry no decimals;
// everything else is rounded to two.
func ComputeOffPercent(mrp, sellingPrice int) string {
	if mrp <= 0 || sellingPrice >= mrp {
		return "0"
	}
	pct := decimal.NewFromInt(int64(mrp - sellingPrice)).
		Div(decimal.NewFromInt(int64(mrp))).
		Mul(decimal.NewFromInt(100))
	rounded := pct.Round(2)
	if rounded.Equal(rounded.Round(0)) {
		return rounded.Round(0).String()
	}
	return rounded.String()
}

// normalizeOffPercent strips any display suffix that crept into stored data.
func normalizeOffPercent(stored string) string {
	trimmed := strings.TrimSpace(stored)
	trimmed = strings.TrimSuffix(trimmed, "% OFF")
	trimmed = strings.TrimSuffix(trimmed, "%")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

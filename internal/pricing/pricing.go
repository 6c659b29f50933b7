// Package pricing derives per-piece and pack prices from product variants.
//
// Products are sold in wholesale packs: one pack holds one piece of every
// declared size and adding to cart always adds a whole pack. The stored
// variant price is per piece; the pack price is what cart totals charge.
package pricing

import (
	"github.com/atinyakov/packcart/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the symbol shown next to formatted amounts.
const Currency = "₹"

// DeliveryFee is the flat shipping charge added to non-empty orders.
var DeliveryFee = decimal.NewFromInt(40)

// Range is the min/max per-piece price across a product's variants.
type Range struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// PerPiecePrice returns the price of a single piece of the variant.
func PerPiecePrice(v models.Variant) decimal.Decimal {
	return v.Price
}

// PieceCount is the number of pieces in one pack. A variant without declared
// sizes is a single-piece pack, never zero.
func PieceCount(v models.Variant) int {
	return max(1, len(v.Sizes))
}

// PackPrice is the price charged for one pack of the variant.
func PackPrice(v models.Variant) decimal.Decimal {
	return PerPiecePrice(v).Mul(decimal.NewFromInt(int64(PieceCount(v))))
}

// ProductPerPiecePrice uses the product's first variant; zero without variants.
func ProductPerPiecePrice(p models.Product) decimal.Decimal {
	if len(p.Variants) == 0 {
		return decimal.Zero
	}
	return PerPiecePrice(p.Variants[0])
}

// ProductPackPrice uses the product's first variant; zero without variants.
func ProductPackPrice(p models.Product) decimal.Decimal {
	if len(p.Variants) == 0 {
		return decimal.Zero
	}
	return PackPrice(p.Variants[0])
}

// PerPieceRange returns the per-piece price band used on listing pages.
func PerPieceRange(p models.Product) Range {
	if len(p.Variants) == 0 {
		return Range{Min: decimal.Zero, Max: decimal.Zero}
	}
	r := Range{Min: PerPiecePrice(p.Variants[0]), Max: PerPiecePrice(p.Variants[0])}
	for _, v := range p.Variants[1:] {
		price := PerPiecePrice(v)
		r.Min = decimal.Min(r.Min, price)
		r.Max = decimal.Max(r.Max, price)
	}
	return r
}

// OrderTotal adds the delivery fee to a cart subtotal. An empty cart costs nothing.
func OrderTotal(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return subtotal.Add(DeliveryFee)
}

var printer = message.NewPrinter(language.English)

// FormatNumber rounds to the nearest integer and groups digits: 1234.6 -> "1,235".
// It is meant for display only.
func FormatNumber(n decimal.Decimal) string {
	return printer.Sprintf("%d", n.Round(0).IntPart())
}

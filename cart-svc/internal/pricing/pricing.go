// Package pricing derives line totals and cart summaries from cart lines.
// Line-level values are never rounded; rounding to cents happens only when a
// summary is built.
package pricing

import (
	"liefrik/cart-svc/internal/domain"

	"github.com/shopspring/decimal"
)

// Config is the single source of the VAT rate and the delivery fee.
type Config struct {
	VATRate     float64 `json:"vatRate"`
	DeliveryFee float64 `json:"deliveryFee"`
}

var DefaultConfig = Config{VATRate: 0.05, DeliveryFee: 8.57}

type Group struct {
	Restaurant string            `json:"restaurant"`
	Lines      []domain.CartLine `json:"lines"`
	Subtotal   float64           `json:"subtotal"`
}

type Summary struct {
	Groups          []Group `json:"groups"`
	ItemCount       int     `json:"itemCount"`
	Subtotal        float64 `json:"subtotal"`
	VAT             float64 `json:"vat"`
	DeliveryFee     float64 `json:"deliveryFee"`
	GrandTotal      float64 `json:"grandTotal"`
	MultiRestaurant bool    `json:"multiRestaurant"`
}

func LineExtrasSum(addOns []domain.AddOn) float64 {
	var sum float64
	for _, a := range addOns {
		sum += float64(a.Price)
	}
	return sum
}

func LineTotal(line domain.CartLine) float64 {
	return (float64(line.UnitPrice) + LineExtrasSum(line.SelectedAddOnsDetailed)) * float64(EffectiveQty(line.Qty))
}

// EffectiveQty is the quantity used for pricing; anything below 1 counts as 1.
func EffectiveQty(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// MultiRestaurant reports whether the lines come from more than one
// restaurant. It is advisory only.
func MultiRestaurant(lines []domain.CartLine) bool {
	seen := make(map[string]struct{}, 2)
	for _, l := range lines {
		seen[l.RestaurantID] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}

func Aggregate(lines []domain.CartLine, cfg Config) Summary {
	summary := Summary{Groups: []Group{}}

	index := make(map[string]int)
	raw := decimal.Zero
	groupRaw := []decimal.Decimal{}

	for _, line := range lines {
		name := line.RestaurantName
		if name == "" {
			name = domain.DefaultRestaurantName
		}
		i, ok := index[name]
		if !ok {
			i = len(summary.Groups)
			index[name] = i
			summary.Groups = append(summary.Groups, Group{Restaurant: name})
			groupRaw = append(groupRaw, decimal.Zero)
		}

		total := decimal.NewFromFloat(LineTotal(line))
		summary.Groups[i].Lines = append(summary.Groups[i].Lines, line)
		groupRaw[i] = groupRaw[i].Add(total)
		raw = raw.Add(total)
		summary.ItemCount += EffectiveQty(line.Qty)
	}

	for i := range summary.Groups {
		summary.Groups[i].Subtotal = groupRaw[i].Round(2).InexactFloat64()
	}

	subtotal := raw.Round(2)
	vat := subtotal.Mul(decimal.NewFromFloat(cfg.VATRate)).Round(2)
	fee := decimal.NewFromFloat(cfg.DeliveryFee)

	summary.Subtotal = subtotal.InexactFloat64()
	summary.VAT = vat.InexactFloat64()
	summary.DeliveryFee = cfg.DeliveryFee
	summary.GrandTotal = subtotal.Add(fee).Add(vat).Round(2).InexactFloat64()
	summary.MultiRestaurant = MultiRestaurant(lines)
	return summary
}

package model

import (
	"strconv"
	"strings"
)

// Product is a catalog item. Price is the raw compound string the user
// entered: a numeric amount with an optional unit suffix, e.g. "250/kg".
// Quantity is never persisted at zero or below - a sale that empties the
// stock removes the product instead.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	Barcode    string `json:"barcode"`
	Image      string `json:"image"`
}

// PriceAmount extracts the numeric amount from the compound price string.
// Anything after the first "/" is treated as a unit suffix and ignored;
// stray non-numeric characters are stripped. Unparseable input yields 0.
func (p Product) PriceAmount() float64 {
	amount := p.Price
	if i := strings.Index(amount, "/"); i >= 0 {
		amount = amount[:i]
	}

	var b strings.Builder
	for _, r := range amount {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// PriceUnit returns the unit suffix of the compound price string, or ""
// when the price has no unit part.
func (p Product) PriceUnit() string {
	if i := strings.Index(p.Price, "/"); i >= 0 {
		return p.Price[i+1:]
	}
	return ""
}

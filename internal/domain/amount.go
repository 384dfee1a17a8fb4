package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount turns an OCR-reported amount string into whole NT$. OCR
// output is messy: "1,234", "NT$150", "150.00" and plain integers all
// appear. Decimal parsing avoids float drift before truncation; fractional
// cents are rejected rather than rounded because NT$ receipts carry none.
func ParseAmount(s string) (int64, error) {
	cleaned := strings.NewReplacer(",", "", "NT$", "", "$", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has a fractional part", s)
	}
	return d.IntPart(), nil
}

// SumItems returns the total of the given line items.
func SumItems(items []LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Amount
	}
	return sum
}

package domain

import (
	"fmt"
	"strings"
)

// MaxLineItemRows is the hard row limit of the remote line-item grid.
const MaxLineItemRows = 15

// taxRow reports whether a line item carries the tax itself rather than
// goods, going by the labels OCR produces for Taiwanese receipts.
func taxRow(name string) bool {
	n := strings.TrimSpace(name)
	if n == "" {
		return false
	}
	lower := strings.ToLower(n)
	return strings.Contains(n, "稅") ||
		strings.Contains(lower, "vat") ||
		strings.Contains(lower, "tax")
}

// NormalizeTax reconciles OCR item detail against the receipt total. The
// grid has no tax column, so tax-labeled rows and separately reported tax
// must be folded into the rows such that they sum exactly to the total:
//
//   - tax-labeled rows are merged into the sole regular item when there is
//     exactly one, otherwise collapsed into an extra "其他差額" row,
//   - a remaining positive residual becomes a "其他差額" row (or is
//     absorbed by a single item),
//   - any other residual becomes a "四捨五入差額" row.
//
// Items already summing to the total with no tax rows pass through
// untouched. The input slice is never mutated.
func NormalizeTax(items []LineItem, total int64) []LineItem {
	if total <= 0 {
		return items
	}

	out := make([]LineItem, 0, len(items)+1)
	var taxSum int64
	taxSeen := false
	for _, it := range items {
		if taxRow(it.Name) {
			taxSum += it.Amount
			taxSeen = true
			continue
		}
		out = append(out, it)
	}
	switch {
	case !taxSeen || len(out) == 0:
		// Nothing labeled, or nothing but tax rows: keep the list as-is.
		out = append(out[:0], items...)
	case len(out) == 1:
		out[0].Amount += taxSum
	case taxSum != 0:
		out = append(out, LineItem{Name: "其他差額", Quantity: 1, Amount: taxSum})
	}

	sum := SumItems(out)
	if sum == total {
		return out
	}
	diff := total - sum
	if len(out) == 1 {
		out[0].Amount += diff
		return out
	}
	name := "四捨五入差額"
	if diff > 0 {
		name = "其他差額"
	}
	return append(out, LineItem{Name: name, Quantity: 1, Amount: diff})
}

// FitRows truncates items to the grid's row limit. The first limit-1 rows
// survive verbatim and the remainder collapses into one summary row that
// keeps the section total intact and states how many rows it absorbed.
func FitRows(items []LineItem) []LineItem {
	if len(items) <= MaxLineItemRows {
		return items
	}
	keep := MaxLineItemRows - 1
	var rest int64
	for _, it := range items[keep:] {
		rest += it.Amount
	}
	out := make([]LineItem, keep, MaxLineItemRows)
	copy(out, items[:keep])
	return append(out, LineItem{
		Name:     fmt.Sprintf("其他明細(%d項)", len(items)-keep),
		Quantity: 1,
		Amount:   rest,
	})
}

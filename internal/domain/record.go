package domain

import (
	"fmt"
	"time"
)

// Receipt is one receipt as extracted by the OCR collaborator. A single
// photo may yield several of these.
type Receipt struct {
	Date        string     `json:"date"` // ISO yyyy-mm-dd, may be empty
	Vendor      string     `json:"vendor"`
	Amount      int64      `json:"amount"` // NT$, whole dollars
	TaxID       string     `json:"tax_id"`
	InvoiceNo   string     `json:"invoice_no"`
	Items       []LineItem `json:"items"`
	SourceImage string     `json:"source_image,omitempty"`
}

// LineItem is one ordered row of a receipt. Amount is the line total
// (quantity already applied).
type LineItem struct {
	Name     string `json:"name"`
	Spec     string `json:"spec,omitempty"`
	Quantity int    `json:"quantity"`
	Amount   int64  `json:"amount"`
}

// TransactionRecord is the single normalized record one orchestration run
// submits. It is assembled by MergeReceipts and treated as read-only by the
// orchestrator.
type TransactionRecord struct {
	Date        string     `json:"date"` // ISO yyyy-mm-dd
	Payee       string     `json:"payee"`
	Total       int64      `json:"total"`
	Items       []LineItem `json:"items"`
	TaxID       string     `json:"tax_id,omitempty"`
	InvoiceNo   string     `json:"invoice_no,omitempty"` // kept only for a single receipt that carried one
	SourceCount int        `json:"source_count"`
	Receipts    []Receipt  `json:"receipts,omitempty"` // originals, for multi-row payee fill
}

// Validate reports whether the record is fit to submit at all.
func (r *TransactionRecord) Validate() error {
	if r.Date == "" {
		return fmt.Errorf("record has no date")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("record date %q: %w", r.Date, err)
	}
	if r.Total <= 0 {
		return fmt.Errorf("record total must be positive, got %d", r.Total)
	}
	for i, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d (%s): quantity must be positive", i+1, it.Name)
		}
	}
	return nil
}

// MergeReceipts folds one or more receipts into a single TransactionRecord.
// Items are concatenated in order, amounts summed, the earliest date wins,
// and a lone vendor name is kept as-is while several vendors collapse to
// "first 等N家". Receipts without item detail contribute a single synthetic
// item carrying the receipt total. The invoice number survives only when
// exactly one receipt supplied one.
func MergeReceipts(receipts []Receipt) TransactionRecord {
	rec := TransactionRecord{SourceCount: len(receipts), Receipts: receipts}
	if len(receipts) == 0 {
		return rec
	}

	var vendors []string
	seen := map[string]bool{}
	for _, rc := range receipts {
		items := rc.Items
		if len(items) == 0 {
			name := rc.Vendor
			if name == "" {
				name = "核銷明細"
			}
			items = []LineItem{{Name: name, Quantity: 1, Amount: rc.Amount}}
		}
		rec.Items = append(rec.Items, items...)
		rec.Total += rc.Amount

		if rc.Date != "" && (rec.Date == "" || rc.Date < rec.Date) {
			rec.Date = rc.Date
		}
		if rc.Vendor != "" && !seen[rc.Vendor] {
			seen[rc.Vendor] = true
			vendors = append(vendors, rc.Vendor)
		}
	}

	switch len(vendors) {
	case 0:
		rec.Payee = "多家廠商"
	case 1:
		rec.Payee = vendors[0]
	default:
		rec.Payee = fmt.Sprintf("%s 等%d家", vendors[0], len(vendors))
	}

	if rec.Date == "" {
		rec.Date = time.Now().Format("2006-01-02")
	}
	if len(receipts) == 1 {
		rec.InvoiceNo = receipts[0].InvoiceNo
		rec.TaxID = receipts[0].TaxID
	} else {
		rec.TaxID = receipts[0].TaxID
	}
	return rec
}

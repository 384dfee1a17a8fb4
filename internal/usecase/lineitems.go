package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

// ItemsResult reports what the line-item section ended up holding.
type ItemsResult struct {
	Written   int
	Truncated int // source rows absorbed into the summary row
	Checks    []domain.FieldCheck
}

// LineItemsFiller populates the purpose text, voucher date and the
// numbered item rows.
type LineItemsFiller struct {
	transport Transport
	log       *zap.Logger
}

func NewLineItemsFiller(transport Transport, log *zap.Logger) *LineItemsFiller {
	return &LineItemsFiller{transport: transport, log: log}
}

// Fill normalizes the record's items against its total, fits them to the
// grid and writes each row. Every write goes through the change-event
// path so the page's running total stays synchronized.
func (f *LineItemsFiller) Fill(ctx context.Context, region Region, record domain.TransactionRecord) (ItemsResult, error) {
	var res ItemsResult

	items := domain.NormalizeTax(record.Items, record.Total)
	fitted := domain.FitRows(items)
	if len(fitted) < len(items) {
		res.Truncated = len(items) - len(fitted) + 1
		f.log.Warn("item rows truncated",
			zap.Int("source", len(items)), zap.Int("written", len(fitted)))
	}

	if err := f.transport.SetField(ctx, region, "CONTENT", Sanitize(purposeText(record))); err != nil {
		return res, fmt.Errorf("write purpose: %w", err)
	}

	if err := f.writeVoucherDate(ctx, region, record.Date); err != nil {
		return res, err
	}

	for i, item := range fitted {
		if err := f.writeRow(ctx, region, i+1, item); err != nil {
			return res, err
		}
		res.Written++
	}

	var err error
	res.Checks, err = f.verify(ctx, region)
	return res, err
}

// purposeText composes the purpose line shown on the printed voucher.
func purposeText(record domain.TransactionRecord) string {
	var names []string
	for _, it := range record.Items {
		if it.Name != "" {
			names = append(names, it.Name)
		}
	}
	if len(names) == 0 {
		return record.Payee
	}
	return fmt.Sprintf("%s - %s", record.Payee, strings.Join(names, ", "))
}

func (f *LineItemsFiller) writeVoucherDate(ctx context.Context, region Region, iso string) error {
	d, err := domain.ToROCDate(iso)
	if err != nil {
		return fmt.Errorf("voucher date: %w", err)
	}
	// The date selects stay disabled until the enabling checkbox is on.
	if err := f.transport.SetChecked(ctx, region, "RCDAT_1", true); err != nil {
		return fmt.Errorf("enable voucher date: %w", err)
	}
	if err := settle(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	for _, p := range []struct{ field, value string }{
		{"RCDAT_Y", d.Year},
		{"RCDAT_M", d.Month},
		{"RCDAT_D", d.Day},
	} {
		if err := f.transport.SelectOption(ctx, region, p.field, p.value); err != nil {
			return fmt.Errorf("set %s: %w", p.field, err)
		}
	}
	return nil
}

func (f *LineItemsFiller) writeRow(ctx context.Context, region Region, row int, item domain.LineItem) error {
	for _, p := range []struct{ field, value string }{
		{fmt.Sprintf("PRODUCT_%d", row), Sanitize(item.Name)},
		{fmt.Sprintf("PRODUCT1_%d", row), Sanitize(item.Spec)},
		{fmt.Sprintf("SERUNIT_%d", row), "式"},
		{fmt.Sprintf("QUANTITY_%d", row), strconv.Itoa(item.Quantity)},
		{fmt.Sprintf("AMOUNT_%d", row), strconv.FormatInt(item.Amount, 10)},
	} {
		if err := f.transport.SetField(ctx, region, p.field, p.value); err != nil {
			return fmt.Errorf("row %d %s: %w", row, p.field, err)
		}
	}
	return nil
}

func (f *LineItemsFiller) verify(ctx context.Context, region Region) ([]domain.FieldCheck, error) {
	var checks []domain.FieldCheck
	ok := true
	for _, field := range []string{"PRODUCT_1", "AMOUNT_1"} {
		v, err := f.transport.ReadField(ctx, region, field)
		if err != nil {
			return checks, fmt.Errorf("re-read %s: %w", field, err)
		}
		c := domain.FieldCheck{Field: field, Value: v, OK: v != ""}
		ok = ok && c.OK
		checks = append(checks, c)
	}
	if !ok {
		return checks, fmt.Errorf("line items: %w", ErrFieldIntegrity)
	}
	return checks, nil
}

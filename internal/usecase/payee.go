package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"expense-autofill/internal/domain"
)

// BankAccount is the payee's resolved account, either filled in directly
// by the remote verification or extracted from the selection pop-up.
type BankAccount struct {
	VendorName  string
	BankNo      string
	Account     string
	AccountName string
}

// PayeeResult reports what the payee section ended up holding.
type PayeeResult struct {
	ReceiptNo string
	PopupSeen bool
	Account   BankAccount
	Checks    []domain.FieldCheck
}

// PayeeFiller populates the payee section: advance-payment mode, receipt
// numbers, dates, the payee code and the bank account, resolving the
// account-selection pop-up when the payee has several on file.
type PayeeFiller struct {
	transport   Transport
	payeeCode   string
	bankKeyword string
	log         *zap.Logger
}

func NewPayeeFiller(transport Transport, payeeCode, bankKeyword string, log *zap.Logger) *PayeeFiller {
	return &PayeeFiller{transport: transport, payeeCode: payeeCode, bankKeyword: bankKeyword, log: log}
}

// Fill writes the payee rows. Verification (CHK_P_1) runs only for the
// first row: re-triggering it clears the just-resolved account fields, so
// further rows reuse the resolved account verbatim.
func (p *PayeeFiller) Fill(ctx context.Context, region Region, record domain.TransactionRecord, seq int) (PayeeResult, error) {
	var res PayeeResult

	if err := p.transport.SetChecked(ctx, region, "PROX_1", true); err != nil {
		return res, fmt.Errorf("mark advance payment: %w", err)
	}
	if err := p.transport.SetField(ctx, region, "PAYKIND_1", "2"); err != nil {
		return res, fmt.Errorf("set pay kind: %w", err)
	}

	no, err := p.receiptNo(record, seq)
	if err != nil {
		return res, err
	}
	res.ReceiptNo = no

	rows := p.rows(record)
	if err := p.writeRow(ctx, region, 1, no, rows[0].date, rows[0].amount); err != nil {
		return res, err
	}

	if err := p.transport.InvokeAction(ctx, region, "STAR_ID_1"); err != nil {
		p.log.Warn("payee code mirror failed", zap.Error(err))
	}

	account, popupSeen, err := p.verifyPayee(ctx, region)
	if err != nil {
		return res, err
	}
	res.Account = account
	res.PopupSeen = popupSeen

	for i, row := range rows[1:] {
		n := i + 2
		rowNo := no
		if gen, err := domain.GenerateReceiptNo(row.date, seq+n-1); err == nil {
			rowNo = gen
		}
		if err := p.writeRow(ctx, region, n, rowNo, row.date, row.amount); err != nil {
			return res, err
		}
		if err := p.writeAccount(ctx, region, n, account); err != nil {
			return res, err
		}
	}

	res.Checks, err = p.verify(ctx, region)
	return res, err
}

type payeeRow struct {
	date   string
	amount int64
}

// rows lays out one payee row per source receipt, or a single row for the
// whole record. Row amounts must sum to the record total because the
// remote payee total is computed over them.
func (p *PayeeFiller) rows(record domain.TransactionRecord) []payeeRow {
	if record.SourceCount <= 1 || len(record.Receipts) <= 1 {
		return []payeeRow{{date: record.Date, amount: record.Total}}
	}
	rows := make([]payeeRow, 0, len(record.Receipts))
	for _, rc := range record.Receipts {
		date := rc.Date
		if date == "" {
			date = record.Date
		}
		rows = append(rows, payeeRow{date: date, amount: rc.Amount})
	}
	return rows
}

// receiptNo keeps the record's own document number when it fits the
// remote shape (dashes and spaces stripped), otherwise generates one.
func (p *PayeeFiller) receiptNo(record domain.TransactionRecord, seq int) (string, error) {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(record.InvoiceNo)
	if domain.ValidReceiptNo(cleaned) {
		return cleaned, nil
	}
	no, err := domain.GenerateReceiptNo(record.Date, seq)
	if err != nil {
		return "", fmt.Errorf("generate receipt number: %w", err)
	}
	return no, nil
}

func (p *PayeeFiller) writeRow(ctx context.Context, region Region, row int, no, date string, amount int64) error {
	d, err := domain.ToROCDate(date)
	if err != nil {
		return fmt.Errorf("payee row %d date: %w", row, err)
	}
	for _, f := range []struct{ field, value string }{
		{fmt.Sprintf("INVOICENO_%d", row), no},
		{fmt.Sprintf("IDATE_%d", row), d.Compact()},
		{fmt.Sprintf("AMOUNT_%d", row), strconv.FormatInt(amount, 10)},
		{fmt.Sprintf("VENDORID_S_%d", row), p.payeeCode},
	} {
		if err := p.transport.SetField(ctx, region, f.field, f.value); err != nil {
			return fmt.Errorf("payee row %d %s: %w", row, f.field, err)
		}
	}
	return nil
}

func (p *PayeeFiller) writeAccount(ctx context.Context, region Region, row int, a BankAccount) error {
	for _, f := range []struct{ field, value string }{
		{fmt.Sprintf("VENNAME_%d", row), a.VendorName},
		{fmt.Sprintf("BANKNO_%d", row), a.BankNo},
		{fmt.Sprintf("ACCOUNT_%d", row), a.Account},
		{fmt.Sprintf("ACCOUNTNAM_%d", row), a.AccountName},
	} {
		if err := p.transport.SetField(ctx, region, f.field, f.value); err != nil {
			return fmt.Errorf("payee row %d %s: %w", row, f.field, err)
		}
	}
	return nil
}

// verifyPayee triggers CHK_P_1. Two outcomes: the remote resolves the
// single account in place, or a selection pop-up opens because several
// accounts are on file.
func (p *PayeeFiller) verifyPayee(ctx context.Context, region Region) (BankAccount, bool, error) {
	if err := p.transport.InvokeAction(ctx, region, "CHK_P_1"); err != nil {
		return BankAccount{}, false, fmt.Errorf("payee verification: %w", err)
	}

	popup, err := p.transport.AwaitPopup(ctx, 8*time.Second)
	if err != nil {
		// No pop-up: single account, resolved in place.
		if err := settle(ctx, 2*time.Second); err != nil {
			return BankAccount{}, false, err
		}
		account, err := p.readAccount(ctx, region)
		return account, false, err
	}

	account, err := p.pickAccount(ctx, popup)
	if err != nil {
		_ = p.closePopup(ctx, popup)
		return BankAccount{}, true, err
	}
	if err := p.writeAccount(ctx, region, 1, account); err != nil {
		_ = p.closePopup(ctx, popup)
		return BankAccount{}, true, err
	}
	if err := p.closePopup(ctx, popup); err != nil {
		return BankAccount{}, true, err
	}
	return account, true, nil
}

func (p *PayeeFiller) readAccount(ctx context.Context, region Region) (BankAccount, error) {
	var a BankAccount
	for _, f := range []struct {
		field string
		dest  *string
	}{
		{"VENNAME_1", &a.VendorName},
		{"BANKNO_1", &a.BankNo},
		{"ACCOUNT_1", &a.Account},
		{"ACCOUNTNAM_1", &a.AccountName},
	} {
		v, err := p.transport.ReadField(ctx, region, f.field)
		if err != nil {
			return a, fmt.Errorf("read %s: %w", f.field, err)
		}
		*f.dest = v
	}
	return a, nil
}

// popupRow is one candidate account row of the selection pop-up.
type popupRow struct {
	Text    string `json:"text"`
	OnClick string `json:"onclick"`
}

const popupRowsJS = `(() => {
	const rows = [];
	document.querySelectorAll('a[onclick], td[onclick], input[type=button]').forEach(el => {
		rows.push({
			text: (el.innerText || el.value || '').trim(),
			onclick: el.getAttribute('onclick') || '',
		});
	});
	return rows;
})()`

var quotedArgs = regexp.MustCompile(`'([^']*)'`)

// pickAccount scans the pop-up rows for the configured bank keyword and
// extracts the four account fields from the row's embedded action
// handler. The handler is parsed rather than clicked: in this automation
// context the pop-up has no back-reference to the originating page, so
// clicking would write into nothing.
func (p *PayeeFiller) pickAccount(ctx context.Context, popup Window) (BankAccount, error) {
	var rows []popupRow
	if err := popup.Evaluate(ctx, popupRowsJS, &rows); err != nil {
		return BankAccount{}, fmt.Errorf("read pop-up rows: %w", err)
	}

	var chosen *popupRow
	for i := range rows {
		if rows[i].OnClick == "" {
			continue
		}
		if strings.Contains(rows[i].Text, p.bankKeyword) {
			chosen = &rows[i]
			break
		}
		if chosen == nil {
			chosen = &rows[i]
		}
	}
	if chosen == nil {
		return BankAccount{}, fmt.Errorf("pop-up has no selectable account rows")
	}
	if !strings.Contains(chosen.Text, p.bankKeyword) {
		p.log.Warn("no pop-up row matched bank keyword, using first",
			zap.String("keyword", p.bankKeyword), zap.String("row", chosen.Text))
	}

	args := quotedArgs.FindAllStringSubmatch(chosen.OnClick, -1)
	if len(args) < 4 {
		return BankAccount{}, fmt.Errorf("pop-up row handler has %d arguments, need 4: %q", len(args), chosen.OnClick)
	}
	return BankAccount{
		VendorName:  args[0][1],
		BankNo:      args[1][1],
		Account:     args[2][1],
		AccountName: args[3][1],
	}, nil
}

// closePopup closes the pop-up with a forced-close fallback and verifies
// it is gone. A surviving pop-up corrupts every later step.
func (p *PayeeFiller) closePopup(ctx context.Context, popup Window) error {
	if err := popup.Close(ctx); err != nil {
		p.log.Warn("pop-up close failed, forcing", zap.Error(err))
		_ = popup.Evaluate(ctx, "window.close()", nil)
	}
	if err := settle(ctx, time.Second); err != nil {
		return err
	}
	if popup.Exists(ctx) {
		return fmt.Errorf("account pop-up still open after close")
	}
	return nil
}

func (p *PayeeFiller) verify(ctx context.Context, region Region) ([]domain.FieldCheck, error) {
	v, err := p.transport.ReadField(ctx, region, "VENNAME_1")
	if err != nil {
		return nil, fmt.Errorf("re-read payee name: %w", err)
	}
	checks := []domain.FieldCheck{{Field: "VENNAME_1", Value: v, OK: v != ""}}
	if v == "" {
		// The remote save silently skips the whole section on an empty
		// payee name.
		return checks, fmt.Errorf("payee: %w", ErrFieldIntegrity)
	}
	return checks, nil
}

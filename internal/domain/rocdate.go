package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The remote system runs on the ROC (Minguo) calendar: year 2025 is ROC
// year 114. Dates travel in two shapes: separate year/month/day select
// values ("114","03","15") and a compact 7-digit field value ("1140315").

// ROCDate is an ISO date split into the remote system's calendar parts.
type ROCDate struct {
	Year  string // ROC year, no padding ("114")
	Month string // zero-padded ("03")
	Day   string // zero-padded ("15")
}

// ToROCDate converts an ISO yyyy-mm-dd date.
func ToROCDate(iso string) (ROCDate, error) {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return ROCDate{}, fmt.Errorf("bad ISO date %q", iso)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 1911 {
		return ROCDate{}, fmt.Errorf("bad ISO year in %q", iso)
	}
	return ROCDate{
		Year:  strconv.Itoa(year - 1911),
		Month: parts[1],
		Day:   parts[2],
	}, nil
}

// ISO converts back to yyyy-mm-dd.
func (d ROCDate) ISO() (string, error) {
	year, err := strconv.Atoi(d.Year)
	if err != nil {
		return "", fmt.Errorf("bad ROC year %q", d.Year)
	}
	return fmt.Sprintf("%04d-%s-%s", year+1911, d.Month, d.Day), nil
}

// Compact renders the 7-digit form used by the payee date field ("1140315").
func (d ROCDate) Compact() string {
	return fmt.Sprintf("%03s%s%s", d.Year, d.Month, d.Day)
}

// receiptNoShape is what the remote save logic accepts as a voucher
// number: two non-digit characters followed by 8-10 digits.
var receiptNoShape = regexp.MustCompile(`^[^0-9]{2}[0-9]{8,10}$`)

// ValidReceiptNo reports whether s already satisfies the remote shape.
func ValidReceiptNo(s string) bool { return receiptNoShape.MatchString(s) }

// GenerateReceiptNo builds a deterministic voucher number from the record
// date and the per-day sequence: "NO" + compact ROC date + 2-digit
// sequence. The result always satisfies receiptNoShape.
func GenerateReceiptNo(iso string, seq int) (string, error) {
	d, err := ToROCDate(iso)
	if err != nil {
		return "", err
	}
	if seq < 1 || seq > 99 {
		return "", fmt.Errorf("receipt sequence %d out of range", seq)
	}
	return fmt.Sprintf("NO%s%02d", d.Compact(), seq), nil
}

// ParseReceiptNo inverts GenerateReceiptNo, recovering the ISO date and
// sequence from a generated number. Foreign numbers return an error.
func ParseReceiptNo(no string) (iso string, seq int, err error) {
	if len(no) != 11 || !strings.HasPrefix(no, "NO") {
		return "", 0, fmt.Errorf("not a generated receipt number: %q", no)
	}
	d := ROCDate{Year: strings.TrimLeft(no[2:5], "0"), Month: no[5:7], Day: no[7:9]}
	iso, err = d.ISO()
	if err != nil {
		return "", 0, err
	}
	seq, err = strconv.Atoi(no[9:11])
	if err != nil {
		return "", 0, fmt.Errorf("bad sequence in %q", no)
	}
	return iso, seq, nil
}

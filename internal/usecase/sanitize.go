package usecase

import (
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// asciiFallback maps characters the remote system's Big5-era encoding
// cannot carry onto ASCII stand-ins. OCR output of technical receipts is
// full of these.
var asciiFallback = map[rune]string{
	'Ω': "ohm", // greek capital omega
	'Ω': "ohm", // ohm sign
	'°': "deg", // degree sign
	'µ': "u",   // micro sign
	'μ': "u",   // greek small mu
	'“': `"`,   // left double quote
	'”': `"`,   // right double quote
	'‘': "'",   // left single quote
	'’': "'",   // right single quote
	'–': "-",   // en dash
	'—': "-",   // em dash
	'…': "...", // ellipsis
	'×': "x",   // multiplication sign
	'÷': "/",   // division sign
	'±': "+/-", // plus-minus
	'℃': "degC",
	'№': "No.",
	' ': " ", // no-break space
}

// Sanitize rewrites s so every character survives the remote system's
// legacy encoding. Unrepresentable characters go through asciiFallback
// first and are dropped as a last resort: one bad byte corrupts the
// remote request parsing for the whole row, not just the field.
func Sanitize(s string) string {
	enc := traditionalchinese.Big5.NewEncoder()
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := asciiFallback[r]; ok {
			b.WriteString(rep)
			continue
		}
		if _, _, err := transform.String(enc, string(r)); err == nil {
			b.WriteRune(r)
		}
	}
	return b.String()
}

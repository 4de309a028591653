package state

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that carry no combining mark under NFD.
var foldOverrides = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
)

// Slugify folds a display name into lower snake_case ASCII, so that
// "Więzień Torres" becomes "wiezien_torres".
func Slugify(s string) string {
	s = foldOverrides.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var out strings.Builder
	pendingUnderscore := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingUnderscore && out.Len() > 0 {
				out.WriteByte('_')
			}
			pendingUnderscore = false
			out.WriteRune(r)
			continue
		}
		pendingUnderscore = true
	}
	return out.String()
}

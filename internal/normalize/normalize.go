// Package normalize canonicalizes player names and team codes. Every
// component that compares names or team abbreviations routes through this
// package; there is no secondary normalization path.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, recomposes.
// Turns "Dončić" into "Doncic".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// teamAliases maps provider-specific team codes to the canonical 3-letter
// abbreviation. Product-observed variants; unknown codes pass through.
var teamAliases = map[string]string{
	"GS":   "GSW",
	"GOL":  "GSW",
	"SA":   "SAS",
	"SAN":  "SAS",
	"UTAH": "UTA",
	"NY":   "NYK",
	"NO":   "NOP",
	"NOR":  "NOP",
	"PHO":  "PHX",
	"BRK":  "BKN",
	"BKLN": "BKN",
	"CHO":  "CHA",
	"WSH":  "WAS",
}

// Name canonicalizes a player name for comparison: strips diacritics,
// lowercases, removes everything outside [a-z0-9 ], collapses whitespace,
// trims. Pure and total: never errors, and idempotent.
func Name(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the input
		// so the function stays total.
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '-', r == '.', r == '\'':
			// Separator-ish punctuation becomes a space so "O'Neal" and
			// "Smith-Jones" keep their token boundaries.
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized name split into tokens.
func Tokens(s string) []string {
	return strings.Fields(Name(s))
}

// TeamAlias maps a provider team code to the canonical 3-letter code.
// Unknown codes pass through uppercased.
func TeamAlias(code string) string {
	up := strings.ToUpper(strings.TrimSpace(code))
	if canonical, ok := teamAliases[up]; ok {
		return canonical
	}
	return up
}

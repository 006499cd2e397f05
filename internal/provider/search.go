package provider

import (
	"strings"

	"github.com/courtside/propcore/internal/normalize"
)

// Match tiers, strongest first. Ties within a tier keep source order.
const (
	matchNone = iota
	matchTokens
	matchPrefix
	matchExact
)

// rankMatch scores candidate against an already-normalized query:
// exact normalized match beats prefix match beats all-query-tokens-present.
func rankMatch(normQuery string, candidate string) int {
	normCand := normalize.Name(candidate)
	if normCand == "" || normQuery == "" {
		return matchNone
	}
	if normCand == normQuery {
		return matchExact
	}
	if strings.HasPrefix(normCand, normQuery) {
		return matchPrefix
	}
	for _, tok := range strings.Fields(normQuery) {
		if !strings.Contains(normCand, tok) {
			return matchNone
		}
	}
	return matchTokens
}

// BestMatch picks the best candidate index for a free-form player query.
// Returns (-1, false) when no candidate passes any tier.
func BestMatch(query string, candidates []string) (int, bool) {
	normQuery := normalize.Name(query)
	best, bestRank := -1, matchNone
	for i, cand := range candidates {
		if r := rankMatch(normQuery, cand); r > bestRank {
			best, bestRank = i, r
		}
	}
	return best, best >= 0
}

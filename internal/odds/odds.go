// Package odds extracts per-prop betting lines from a raw odds-API payload
// and selects a single authoritative line per (player, prop) among the
// quotes available. Selection is best-effort: the package validates
// plausibility and consistency but does not guarantee upstream odds are
// right.
package odds

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/provider"
)

// Payload is the odds-API event shape the caller feeds in. The core
// consumes this wire format, it never fetches it.
type Payload struct {
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	Bookmakers []Bookmaker `json:"bookmakers"`
}

type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

type Outcome struct {
	Name        string  `json:"name"`        // "Over" / "Under"
	Description string  `json:"description"` // player name
	Point       float64 `json:"point"`
	Price       float64 `json:"price"`
}

// PropLine is one bookmaker's over/under quote for a (player, prop) pair.
type PropLine struct {
	PropType     provider.PropType `json:"prop_type"`
	Line         float64           `json:"line"`
	OverOdds     float64           `json:"over_odds"`
	UnderOdds    float64           `json:"under_odds"`
	Bookmaker    string            `json:"bookmaker"`
	PriorityRank int               `json:"priority_rank"`
	// Substituted marks a line swapped in by the suspicious-low-line rule.
	Substituted bool `json:"substituted,omitempty"`
}

// ParsePayload decodes a raw odds payload, classifying malformed input.
func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, errs.Wrap(errs.KindInvalidInput, err, "malformed odds payload")
	}
	return p, nil
}

// BestLine selects the authoritative line for (playerName, prop) from the
// payload. Returns (nil, false) when no outcome passes every check: line
// unavailable, not an error.
func BestLine(payload Payload, playerName string, prop provider.PropType, cfg Config) (*PropLine, bool) {
	candidates := collectLines(payload, playerName, prop, cfg)

	// Cross-validate single props against combined quotes: a component
	// line at or above its combined line is implausible and dropped.
	if !prop.IsCombined() {
		combinedMins := combinedLineFloor(payload, playerName, prop, cfg)
		kept := candidates[:0]
		for _, c := range candidates {
			if floor, ok := combinedMins[c.Bookmaker]; ok && c.Line >= floor {
				continue
			}
			kept = append(kept, c)
		}
		candidates = kept
	}

	candidates = dedupe(candidates)
	if len(candidates) == 0 {
		return nil, false
	}

	// Stable sort keeps payload order as the tiebreak inside a rank.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PriorityRank < candidates[j].PriorityRank
	})
	best := candidates[0]

	// A points line this low usually means a stale or mistagged market.
	// Prefer a plausible alternative when one exists; otherwise keep the
	// original unflagged.
	if prop == provider.PropPoints && best.Line < cfg.LowPointsLine {
		for _, alt := range candidates[1:] {
			if alt.Line >= cfg.LowPointsLine && alt.Line <= cfg.rangeFor(prop).Max {
				alt.Substituted = true
				return &alt, true
			}
		}
	}

	return &best, true
}

// collectLines walks every bookmaker/market matching prop and gathers the
// player's over/under quotes that pass range validation.
func collectLines(payload Payload, playerName string, prop provider.PropType, cfg Config) []PropLine {
	bounds := cfg.rangeFor(prop)
	var lines []PropLine

	for _, bm := range payload.Bookmakers {
		for _, market := range bm.Markets {
			if !marketMatches(market.Key, prop) {
				continue
			}

			// Group the player's outcomes by line so Over and Under pair up.
			type quote struct {
				over, under float64
			}
			byLine := make(map[float64]*quote)
			var order []float64
			for _, o := range market.Outcomes {
				if !nameMatches(o.Description, playerName) {
					continue
				}
				if o.Point <= bounds.Min || o.Point > bounds.Max {
					continue
				}
				q, ok := byLine[o.Point]
				if !ok {
					q = &quote{}
					byLine[o.Point] = q
					order = append(order, o.Point)
				}
				if strings.EqualFold(o.Name, "over") {
					q.over = o.Price
				} else {
					q.under = o.Price
				}
			}
			for _, point := range order {
				q := byLine[point]
				lines = append(lines, PropLine{
					PropType:     prop,
					Line:         point,
					OverOdds:     q.over,
					UnderOdds:    q.under,
					Bookmaker:    bm.Key,
					PriorityRank: cfg.rank(bm.Key),
				})
			}
		}
	}
	return lines
}

// combinedLineFloor finds, per bookmaker, the lowest combined-prop line
// that includes the requested single prop for the same player.
func combinedLineFloor(payload Payload, playerName string, single provider.PropType, cfg Config) map[string]float64 {
	combined := []provider.PropType{
		provider.PropPointsRebounds,
		provider.PropPointsAssists,
		provider.PropReboundsAssists,
		provider.PropPRA,
	}
	floors := make(map[string]float64)
	for _, c := range combined {
		if !contains(c.Components(), single) {
			continue
		}
		for _, line := range collectLines(payload, playerName, c, cfg) {
			if cur, ok := floors[line.Bookmaker]; !ok || line.Line < cur {
				floors[line.Bookmaker] = line.Line
			}
		}
	}
	return floors
}

// statTokens maps market-key tokens to the prop component they denote.
var statTokens = map[string]provider.PropType{
	"points":    provider.PropPoints,
	"pts":       provider.PropPoints,
	"rebounds":  provider.PropRebounds,
	"reb":       provider.PropRebounds,
	"assists":   provider.PropAssists,
	"ast":       provider.PropAssists,
	"steals":    provider.PropSteals,
	"blocks":    provider.PropBlocks,
	"threes":    provider.PropThrees,
	"turnovers": provider.PropTurnovers,
}

// marketMatches reports whether a market key serves the requested prop.
// Single props demand exactly their own stat token; combined props demand
// every component token and nothing extra, so "player_points" never feeds
// a points+rebounds request and vice versa.
func marketMatches(marketKey string, prop provider.PropType) bool {
	key := strings.TrimPrefix(strings.ToLower(marketKey), "player_")

	found := make(map[provider.PropType]bool)
	for _, tok := range strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '+' }) {
		if p, ok := statTokens[tok]; ok {
			found[p] = true
		}
	}

	want := prop.Components()
	if len(found) != len(want) {
		return false
	}
	for _, c := range want {
		if !found[c] {
			return false
		}
	}
	return true
}

// nameMatches applies the outcome-to-player matching ladder: normalized
// equality, then prefix, then first-and-last token containment. A name
// with two or more tokens never matches on a single token alone.
func nameMatches(outcomeName, playerName string) bool {
	cand := normalize.Name(outcomeName)
	query := normalize.Name(playerName)
	if cand == "" || query == "" {
		return false
	}
	if cand == query {
		return true
	}
	if strings.HasPrefix(cand, query) || strings.HasPrefix(query, cand) {
		return true
	}
	tokens := strings.Fields(query)
	if len(tokens) < 2 {
		return false
	}
	first, last := tokens[0], tokens[len(tokens)-1]
	return strings.Contains(cand, first) && strings.Contains(cand, last)
}

// dedupe drops repeated (bookmaker, line) pairs, keeping first occurrence.
func dedupe(lines []PropLine) []PropLine {
	type key struct {
		bookmaker string
		line      float64
	}
	seen := make(map[key]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		k := key{l.Bookmaker, l.Line}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}

func contains(props []provider.PropType, p provider.PropType) bool {
	for _, c := range props {
		if c == p {
			return true
		}
	}
	return false
}

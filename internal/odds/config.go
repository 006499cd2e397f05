package odds

import "github.com/courtside/propcore/internal/provider"

// Range bounds a plausible line for one prop type. Lines at or below Min
// or above Max are discarded as data errors.
type Range struct {
	Min float64
	Max float64
}

// Config carries the product-tuned matching constants. The bookmaker
// priority list and the low-points-line threshold have no derivation
// beyond operational history, so they stay named and overridable rather
// than hard-coded at call sites.
type Config struct {
	// BookmakerPriority is an ordered allow-list of bookmaker keys.
	// Unranked bookmakers sort after every ranked one.
	BookmakerPriority []string
	// LowPointsLine flags a points line below this value as suspicious
	// and triggers the substitution search.
	LowPointsLine float64
	// Ranges holds per-prop plausible line ranges.
	Ranges map[provider.PropType]Range
}

// DefaultConfig returns the production matching constants.
func DefaultConfig() Config {
	return Config{
		BookmakerPriority: []string{
			"pinnacle",
			"fanduel",
			"draftkings",
			"betmgm",
			"caesars",
			"bovada",
		},
		LowPointsLine: 8,
		Ranges: map[provider.PropType]Range{
			provider.PropPoints:          {0, 60},
			provider.PropRebounds:        {0, 25},
			provider.PropAssists:         {0, 20},
			provider.PropSteals:          {0, 8},
			provider.PropBlocks:          {0, 8},
			provider.PropThrees:          {0, 12},
			provider.PropTurnovers:       {0, 10},
			provider.PropPointsRebounds:  {0, 50},
			provider.PropPointsAssists:   {0, 50},
			provider.PropReboundsAssists: {0, 35},
			provider.PropPRA:             {0, 70},
		},
	}
}

// rank returns the preference index for a bookmaker key, or a sentinel
// past the end of the allow-list for unranked books.
func (c Config) rank(bookmaker string) int {
	for i, key := range c.BookmakerPriority {
		if key == bookmaker {
			return i
		}
	}
	return len(c.BookmakerPriority)
}

// rangeFor returns the plausible range for a prop, with a permissive
// fallback for props missing from the table.
func (c Config) rangeFor(prop provider.PropType) Range {
	if r, ok := c.Ranges[prop]; ok {
		return r
	}
	return Range{0, 100}
}

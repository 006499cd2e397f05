// Package provider defines the canonical data types every upstream adapter
// normalizes into, plus the shared retry policy for flaky upstreams. These
// structs are the contract between adapters and the resolver: adapters
// output these, downstream code reads only canonical fields.
//
// Adding a new provider means implementing Client against these types.
// The resolver and forecast engine never change.
package provider

import (
	"context"
	"sort"
	"time"
)

// Identity is a resolved mapping from a player name to one provider's
// internal id and team. Identities are recomputed per request and cached by
// normalized name, never persisted.
type Identity struct {
	Provider      string `json:"provider"`
	ProviderID    string `json:"provider_id"`
	CanonicalName string `json:"canonical_name"`
	TeamAbbrev    string `json:"team_abbrev"`
}

// Game is one canonical box-score row. Stat fields default to 0, never
// negative. Sequence is dense and 1-based, assigned after final ordering
// (most recent = 1).
type Game struct {
	Sequence       int       `json:"sequence"`
	Date           time.Time `json:"date"`
	OpponentAbbrev string    `json:"opponent_abbrev"`
	IsHome         bool      `json:"is_home"`
	Minutes        float64   `json:"minutes"`
	Points         float64   `json:"points"`
	Rebounds       float64   `json:"rebounds"`
	Assists        float64   `json:"assists"`
	Steals         float64   `json:"steals"`
	Blocks         float64   `json:"blocks"`
	ThreesMade     float64   `json:"threes_made"`
	FGMade         float64   `json:"fg_made"`
	FGAttempted    float64   `json:"fg_attempted"`
	FTMade         float64   `json:"ft_made"`
	FTAttempted    float64   `json:"ft_attempted"`
	Turnovers      float64   `json:"turnovers"`
	Season         string    `json:"season"`
}

// GameLog is an ordered collection of games for one player, tagged with the
// identity used to fetch it. Logs are never mutated after construction;
// every filter or sort step returns a new collection.
type GameLog struct {
	Identity Identity `json:"identity"`
	Games    []Game   `json:"games"`
}

// NextGame is the first upcoming fixture featuring a team.
type NextGame struct {
	OpponentAbbrev string    `json:"opponent_abbrev"`
	Date           time.Time `json:"date"`
	IsHome         bool      `json:"is_home"`
	EventID        string    `json:"event_id,omitempty"`
}

// GameLogOptions controls how much history an adapter fetches.
type GameLogOptions struct {
	IncludePreviousSeason bool
	CurrentSeasonGames    int
	PreviousSeasonGames   int
}

// Client is the contract every upstream adapter implements.
type Client interface {
	// Name identifies the adapter in logs and errors.
	Name() string
	// SearchPlayer resolves a free-form player name to an identity.
	// Returns errs.KindNotFound when no candidate passes ranking.
	SearchPlayer(ctx context.Context, name string) (Identity, error)
	// GameLog fetches and canonicalizes box-score rows for a player id.
	GameLog(ctx context.Context, playerID string, opts GameLogOptions) ([]Game, error)
	// NextGame scans a bounded window of upcoming fixtures for the first
	// one featuring the team. Returns errs.KindNotFound past the window.
	NextGame(ctx context.Context, teamAbbrev string) (NextGame, error)
}

// SortMostRecentFirst returns a copy ordered newest game first.
func SortMostRecentFirst(games []Game) []Game {
	out := make([]Game, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// SortChronological returns a copy ordered oldest game first.
func SortChronological(games []Game) []Game {
	out := make([]Game, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Renumber assigns dense 1-based sequence numbers in display order
// (most recent = 1) and returns the renumbered copy.
func Renumber(games []Game) []Game {
	out := SortMostRecentFirst(games)
	for i := range out {
		out[i].Sequence = i + 1
	}
	return out
}

// Package resolver orchestrates the provider adapters: identity resolution
// with a fixed fallback order, multi-season game-log merging, recency
// filtering, and the cache discipline that keeps repeated lookups off the
// flaky upstreams.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtside/propcore/internal/cache"
	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/provider"
)

// MinUsableGames is the hard floor below which forecasting is not allowed.
const MinUsableGames = 3

// maxGameAge drops games older than this from forecasting input, so a long
// injury or off-season gap does not contaminate a forecast with stale data.
const maxGameAge = 2 * 365 * 24 * time.Hour

// DefaultGameLogOptions is what Resolve asks each provider for.
var DefaultGameLogOptions = provider.GameLogOptions{
	IncludePreviousSeason: true,
	CurrentSeasonGames:    0, // full season
	PreviousSeasonGames:   25,
}

// Resolver resolves player names to identities and merged game logs.
type Resolver struct {
	providers []provider.Client
	store     cache.Store
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a resolver over providers in priority order: the
// authoritative official stats provider first, the roster/schedule feed
// second, the legacy provider last.
func New(store cache.Store, logger *slog.Logger, providers ...provider.Client) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = cache.NewMemory(false)
	}
	return &Resolver{
		providers: providers,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock injects the time source used for recency filtering.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// resolved is the cacheable result of a successful resolution.
type resolved struct {
	Identity provider.Identity `json:"identity"`
	Games    []provider.Game   `json:"games"`
}

// Resolve maps a free-form player name to an identity and a usable merged
// game log. The first provider returning both a matched identity and a
// non-empty log wins; an identity with an empty log is a partial failure
// and the next provider is tried. Fewer than MinUsableGames recent games
// fails with errs.KindInsufficientData.
func (r *Resolver) Resolve(ctx context.Context, playerName string) (provider.Identity, provider.GameLog, error) {
	key := "resolve:" + normalize.Name(playerName)
	var hit resolved
	if cache.GetJSON(r.store, key, &hit) {
		return r.finish(hit)
	}

	var lastErr error
	sawNotFound := false
	for _, p := range r.providers {
		identity, err := p.SearchPlayer(ctx, playerName)
		if err != nil {
			if errs.Is(err, errs.KindNotFound) {
				sawNotFound = true
			}
			r.logger.Debug("provider search failed, falling back", "provider", p.Name(), "player", playerName, "error", err)
			lastErr = err
			continue
		}

		games, err := p.GameLog(ctx, identity.ProviderID, DefaultGameLogOptions)
		if err != nil || len(games) == 0 {
			// Identity without a log is a partial failure, not a win.
			r.logger.Debug("provider returned identity but no usable log, falling back",
				"provider", p.Name(), "player", playerName, "error", err)
			if err != nil {
				lastErr = err
			}
			continue
		}

		res := resolved{Identity: identity, Games: games}
		cache.SetJSON(r.store, key, res, cache.TTLPlayerStats)
		return r.finish(res)
	}

	if lastErr == nil || sawNotFound {
		return provider.Identity{}, provider.GameLog{}, errs.New(errs.KindNotFound, "no provider matched player %q", playerName)
	}
	return provider.Identity{}, provider.GameLog{}, errs.Wrap(errs.KindProviderUnavailable, lastErr, "all providers failed for %q", playerName)
}

// finish applies the recency filter and the minimum-games precondition.
func (r *Resolver) finish(res resolved) (provider.Identity, provider.GameLog, error) {
	usable := FilterRecent(res.Games, r.now())
	if len(usable) < MinUsableGames {
		return provider.Identity{}, provider.GameLog{}, errs.New(errs.KindInsufficientData,
			"player %s has %d usable games, need %d", res.Identity.CanonicalName, len(usable), MinUsableGames)
	}
	return res.Identity, provider.GameLog{Identity: res.Identity, Games: usable}, nil
}

// GameLog fetches a log for an already-resolved identity, honoring opts.
// The merged multi-season log is renumbered once after concatenation so
// numbering is continuous and most-recent-first.
func (r *Resolver) GameLog(ctx context.Context, identity provider.Identity, opts provider.GameLogOptions) (provider.GameLog, error) {
	p, err := r.clientFor(identity.Provider)
	if err != nil {
		return provider.GameLog{}, err
	}

	key := fmt.Sprintf("gamelog:%s:%s:%v:%d:%d",
		identity.Provider, identity.ProviderID,
		opts.IncludePreviousSeason, opts.CurrentSeasonGames, opts.PreviousSeasonGames)
	var cached []provider.Game
	if cache.GetJSON(r.store, key, &cached) {
		return provider.GameLog{Identity: identity, Games: cached}, nil
	}

	games, err := p.GameLog(ctx, identity.ProviderID, opts)
	if err != nil {
		return provider.GameLog{}, err
	}
	if len(games) == 0 {
		return provider.GameLog{}, errs.New(errs.KindNotFound, "no games for %s via %s", identity.CanonicalName, identity.Provider)
	}
	cache.SetJSON(r.store, key, games, cache.TTLPlayerStats)
	return provider.GameLog{Identity: identity, Games: games}, nil
}

// NextGame finds the team's next fixture, walking the same provider
// fallback order.
func (r *Resolver) NextGame(ctx context.Context, teamAbbrev string) (provider.NextGame, error) {
	team := normalize.TeamAlias(teamAbbrev)
	key := "nextgame:" + team
	var hit provider.NextGame
	if cache.GetJSON(r.store, key, &hit) {
		return hit, nil
	}

	var lastErr error
	for _, p := range r.providers {
		ng, err := p.NextGame(ctx, team)
		if err != nil {
			lastErr = err
			continue
		}
		cache.SetJSON(r.store, key, ng, cache.TTLNextGame)
		return ng, nil
	}
	if lastErr == nil {
		lastErr = errs.New(errs.KindNotFound, "no upcoming game for %s", team)
	}
	return provider.NextGame{}, lastErr
}

func (r *Resolver) clientFor(name string) (provider.Client, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, errs.New(errs.KindInvalidInput, "unknown provider %q in identity", name)
}

// FilterRecent returns a copy of games excluding anything older than two
// years from now, preserving order. Sequences are reassigned so the result
// stays dense.
func FilterRecent(games []provider.Game, now time.Time) []provider.Game {
	cutoff := now.Add(-maxGameAge)
	kept := make([]provider.Game, 0, len(games))
	for _, g := range games {
		if g.Date.After(cutoff) {
			kept = append(kept, g)
		}
	}
	return provider.Renumber(kept)
}

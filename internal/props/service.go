// Package props is the call surface of the pipeline. A Service wires the
// resolver, forecast engine, odds resolver, cache and ledger together and
// exposes the operations callers use.
package props

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtside/propcore/internal/cache"
	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/forecast"
	"github.com/courtside/propcore/internal/ledger"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/odds"
	"github.com/courtside/propcore/internal/provider"
	"github.com/courtside/propcore/internal/resolver"
)

// defaultBranchWait bounds how long Compare waits for its parallel
// branches before returning whatever finished.
const defaultBranchWait = 8 * time.Second

// Service is the dependency-injected entry point. Construct it once and
// share it; all methods are safe for concurrent use.
type Service struct {
	resolver   *resolver.Resolver
	store      cache.Store
	ledger     *ledger.Ledger
	oddsCfg    odds.Config
	logger     *slog.Logger
	branchWait time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithBranchWait overrides the bounded wait used by Compare.
func WithBranchWait(d time.Duration) Option {
	return func(s *Service) { s.branchWait = d }
}

// WithOddsConfig overrides the odds resolution config.
func WithOddsConfig(cfg odds.Config) Option {
	return func(s *Service) { s.oddsCfg = cfg }
}

// New builds a Service around an already-wired resolver. The ledger may be
// nil, in which case forecasts are not recorded.
func New(res *resolver.Resolver, store cache.Store, led *ledger.Ledger, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = cache.NewMemory(false)
	}
	s := &Service{
		resolver:   res,
		store:      store,
		ledger:     led,
		oddsCfg:    odds.DefaultConfig(),
		logger:     logger,
		branchWait: defaultBranchWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolvePlayer resolves a display name to a provider identity and its
// filtered game log.
func (s *Service) ResolvePlayer(ctx context.Context, playerName string) (provider.Identity, provider.GameLog, error) {
	return s.resolver.Resolve(ctx, playerName)
}

// GetGameLog fetches a game log for an already-resolved identity.
func (s *Service) GetGameLog(ctx context.Context, identity provider.Identity, opts provider.GameLogOptions) (provider.GameLog, error) {
	return s.resolver.GameLog(ctx, identity, opts)
}

// Forecast resolves the player and produces a weighted forecast for the
// prop. Results are cached for a day, keyed by the game-log fingerprint so
// a changed log invalidates the cached value.
func (s *Service) Forecast(ctx context.Context, playerName string, prop provider.PropType) (forecast.Forecast, error) {
	_, log, err := s.resolver.Resolve(ctx, playerName)
	if err != nil {
		return forecast.Forecast{}, err
	}
	return s.forecastFromLog(playerName, log, prop)
}

func (s *Service) forecastFromLog(playerName string, log provider.GameLog, prop provider.PropType) (forecast.Forecast, error) {
	key := fmt.Sprintf("forecast:%s:%s:%s",
		normalize.Name(playerName), prop, ledger.Fingerprint(log, prop))
	var cached forecast.Forecast
	if cache.GetJSON(s.store, key, &cached) {
		return cached, nil
	}

	fc, err := forecast.Weighted(log, prop)
	if err != nil {
		return forecast.Forecast{}, err
	}
	cache.SetJSON(s.store, key, fc, cache.TTLForecast)
	return fc, nil
}

// BestPropLine parses a raw odds payload and picks the best available line
// for the player and prop. The boolean is false when no line qualifies.
func (s *Service) BestPropLine(rawPayload []byte, playerName string, prop provider.PropType) (*odds.PropLine, bool, error) {
	payload, err := odds.ParsePayload(rawPayload)
	if err != nil {
		return nil, false, err
	}
	line, ok := odds.BestLine(payload, playerName, prop, s.oddsCfg)
	return line, ok, nil
}

// Comparison is the combined result of a forecast and the matching market
// line. Fields are nil when their branch failed or was too slow; Err
// fields carry the branch failure when one happened.
type Comparison struct {
	Identity provider.Identity  `json:"identity"`
	Forecast *forecast.Forecast `json:"forecast,omitempty"`
	Line     *odds.PropLine     `json:"line,omitempty"`
	NextGame *provider.NextGame `json:"next_game,omitempty"`
	LedgerID string             `json:"ledger_id,omitempty"`

	ForecastErr error `json:"-"`
	MarketErr   error `json:"-"`
}

// Edge is the forecast minus the line, positive when the model likes the
// over. Zero when either side is missing.
func (c *Comparison) Edge() float64 {
	if c.Forecast == nil || c.Line == nil {
		return 0
	}
	return c.Forecast.PredictedValue - c.Line.Line
}

// Compare resolves the player once, then runs the forecast branch and the
// market branch (best line plus next game) in parallel. It waits a bounded
// time for both; a branch that misses the window is discarded and its field
// left nil. When the forecast branch succeeds the result is recorded in
// the ledger.
func (s *Service) Compare(ctx context.Context, playerName string, prop provider.PropType, rawPayload []byte) (Comparison, error) {
	identity, log, err := s.resolver.Resolve(ctx, playerName)
	if err != nil {
		return Comparison{}, err
	}
	cmp := Comparison{Identity: identity}

	type forecastOut struct {
		fc  forecast.Forecast
		err error
	}
	type marketOut struct {
		line     *odds.PropLine
		nextGame *provider.NextGame
		err      error
	}

	forecastCh := make(chan forecastOut, 1)
	marketCh := make(chan marketOut, 1)

	go func() {
		fc, err := s.forecastFromLog(playerName, log, prop)
		forecastCh <- forecastOut{fc: fc, err: err}
	}()

	go func() {
		var out marketOut
		if len(rawPayload) > 0 {
			payload, err := odds.ParsePayload(rawPayload)
			if err != nil {
				out.err = err
			} else if line, ok := odds.BestLine(payload, playerName, prop, s.oddsCfg); ok {
				out.line = line
			}
		}
		if identity.TeamAbbrev != "" {
			if ng, err := s.resolver.NextGame(ctx, identity.TeamAbbrev); err == nil {
				out.nextGame = &ng
			} else if errs.KindOf(err) != errs.KindNotFound {
				s.logger.Warn("next game lookup failed",
					"team", identity.TeamAbbrev, "error", err)
			}
		}
		marketCh <- out
	}()

	deadline := time.NewTimer(s.branchWait)
	defer deadline.Stop()

	for done := 0; done < 2; {
		select {
		case out := <-forecastCh:
			if out.err != nil {
				cmp.ForecastErr = out.err
			} else {
				fc := out.fc
				cmp.Forecast = &fc
			}
			done++
		case out := <-marketCh:
			cmp.Line = out.line
			cmp.NextGame = out.nextGame
			cmp.MarketErr = out.err
			done++
		case <-deadline.C:
			s.logger.Warn("comparison branch missed the wait window",
				"player", playerName, "prop", prop)
			done = 2
		case <-ctx.Done():
			return cmp, ctx.Err()
		}
	}

	if cmp.Forecast != nil && s.ledger != nil {
		entry, err := s.ledger.Record(playerName, *cmp.Forecast, log, cmp.NextGame)
		if err != nil {
			s.logger.Error("ledger record failed", "player", playerName, "error", err)
		} else {
			cmp.LedgerID = entry.ID
		}
	}
	return cmp, nil
}

// Evaluate walks pending ledger entries and attaches outcomes from the
// results map, keyed by entry id. It returns how many were evaluated.
func (s *Service) Evaluate(results map[string]float64) (int, error) {
	if s.ledger == nil {
		return 0, errs.New(errs.KindInvalidInput, "no ledger configured")
	}
	evaluated := 0
	for _, entry := range s.ledger.Pending() {
		actual, ok := results[entry.ID]
		if !ok {
			continue
		}
		if _, err := s.ledger.AttachOutcome(entry.ID, actual); err != nil {
			return evaluated, err
		}
		evaluated++
	}
	return evaluated, nil
}

// Package courtbasic adapts the legacy basic stats API. It is the lowest
// priority fallback: no auth, no pagination, a small flat-JSON surface, and
// data quality that lags the primary providers.
package courtbasic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/provider"
)

const defaultBaseURL = "https://basic.courtfeeds.example/api"

// Client handles legacy API requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retry      provider.RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the upstream base URL, primarily for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryPolicy overrides the shared retry policy.
func WithRetryPolicy(p provider.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a legacy API client.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "Mozilla/5.0 (compatible; propcore/1.0)",
		retry:      provider.DefaultRetryPolicy(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the adapter in logs and errors.
func (c *Client) Name() string { return "courtbasic" }

// fetch makes a retried HTTP GET and decodes into out.
func (c *Client) fetch(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.retry.Do(ctx, c.logger, "courtbasic "+path, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("making request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 200 {
				body = body[:200]
			}
			return &provider.StatusError{Status: resp.StatusCode, Body: string(body)}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

type rosterRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// SearchPlayer filters the full legacy roster dump locally.
func (c *Client) SearchPlayer(ctx context.Context, name string) (provider.Identity, error) {
	var roster struct {
		Players []rosterRow `json:"players"`
	}
	if err := c.fetch(ctx, "/roster", nil, &roster); err != nil {
		return provider.Identity{}, err
	}

	names := make([]string, len(roster.Players))
	for i, p := range roster.Players {
		names[i] = p.Name
	}
	idx, ok := provider.BestMatch(name, names)
	if !ok {
		return provider.Identity{}, errs.New(errs.KindNotFound, "courtbasic: no player matches %q", name)
	}

	p := roster.Players[idx]
	return provider.Identity{
		Provider:      c.Name(),
		ProviderID:    p.ID,
		CanonicalName: normalize.Name(p.Name),
		TeamAbbrev:    normalize.TeamAlias(p.Team),
	}, nil
}

type legacyGameRow struct {
	Date     string  `json:"date"`
	Opponent string  `json:"opponent"` // "vs BOS" or "@ BOS"
	Minutes  float64 `json:"minutes"`
	Points   float64 `json:"points"`
	Rebounds float64 `json:"rebounds"`
	Assists  float64 `json:"assists"`
	Steals   float64 `json:"steals"`
	Blocks   float64 `json:"blocks"`
	Threes   float64 `json:"threes_made"`
	FGM      float64 `json:"fg_made"`
	FGA      float64 `json:"fg_attempted"`
	FTM      float64 `json:"ft_made"`
	FTA      float64 `json:"ft_attempted"`
	TOV      float64 `json:"turnovers"`
	Season   string  `json:"season"`
}

// GameLog fetches the legacy per-game rows. The legacy feed returns the
// full current season in one response; the previous season is a separate
// query parameter.
func (c *Client) GameLog(ctx context.Context, playerID string, opts provider.GameLogOptions) ([]provider.Game, error) {
	games, err := c.fetchSeason(ctx, playerID, provider.SeasonLabel(c.now()), opts.CurrentSeasonGames)
	if err != nil {
		return nil, err
	}
	if opts.IncludePreviousSeason {
		prev, err := c.fetchSeason(ctx, playerID, provider.PreviousSeasonLabel(c.now()), opts.PreviousSeasonGames)
		if err != nil && !errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
		games = append(games, prev...)
	}
	return provider.Renumber(games), nil
}

func (c *Client) fetchSeason(ctx context.Context, playerID, season string, limit int) ([]provider.Game, error) {
	params := url.Values{
		"player": {playerID},
		"season": {season},
	}
	var payload struct {
		Games []legacyGameRow `json:"games"`
	}
	if err := c.fetch(ctx, "/gamelog", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Games) == 0 {
		return nil, errs.New(errs.KindNotFound, "courtbasic: no games for player %s season %s", playerID, season)
	}

	games := make([]provider.Game, 0, len(payload.Games))
	for _, r := range payload.Games {
		g, ok := canonicalizeLegacyRow(r, season)
		if !ok {
			continue
		}
		games = append(games, g)
	}
	games = provider.SortMostRecentFirst(games)
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func canonicalizeLegacyRow(r legacyGameRow, season string) (provider.Game, bool) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return provider.Game{}, false
	}
	opponent, isHome, ok := parseOpponent(r.Opponent)
	if !ok {
		return provider.Game{}, false
	}
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return provider.Game{
		Date:           date,
		OpponentAbbrev: opponent,
		IsHome:         isHome,
		Minutes:        clamp(r.Minutes),
		Points:         clamp(r.Points),
		Rebounds:       clamp(r.Rebounds),
		Assists:        clamp(r.Assists),
		Steals:         clamp(r.Steals),
		Blocks:         clamp(r.Blocks),
		ThreesMade:     clamp(r.Threes),
		FGMade:         clamp(r.FGM),
		FGAttempted:    clamp(r.FGA),
		FTMade:         clamp(r.FTM),
		FTAttempted:    clamp(r.FTA),
		Turnovers:      clamp(r.TOV),
		Season:         season,
	}, true
}

// parseOpponent decodes the legacy "vs BOS" / "@ BOS" shorthand.
func parseOpponent(s string) (opponent string, isHome, ok bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "vs "):
		return normalize.TeamAlias(s[3:]), true, true
	case strings.HasPrefix(s, "@ "):
		return normalize.TeamAlias(s[2:]), false, true
	case strings.HasPrefix(s, "@"):
		return normalize.TeamAlias(s[1:]), false, true
	}
	return "", false, false
}

type scheduleRow struct {
	EventID string `json:"event_id"`
	Date    string `json:"date"`
	Home    string `json:"home"`
	Away    string `json:"away"`
}

// NextGame scans the legacy 7-day schedule feed for the first fixture
// featuring the team.
func (c *Client) NextGame(ctx context.Context, teamAbbrev string) (provider.NextGame, error) {
	team := normalize.TeamAlias(teamAbbrev)
	var payload struct {
		Schedule []scheduleRow `json:"schedule"`
	}
	params := url.Values{
		"from": {c.now().Format("2006-01-02")},
		"days": {"7"},
	}
	if err := c.fetch(ctx, "/schedule", params, &payload); err != nil {
		return provider.NextGame{}, err
	}

	var best *provider.NextGame
	for _, row := range payload.Schedule {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		home := normalize.TeamAlias(row.Home)
		away := normalize.TeamAlias(row.Away)

		var ng provider.NextGame
		switch team {
		case home:
			ng = provider.NextGame{OpponentAbbrev: away, Date: date, IsHome: true, EventID: row.EventID}
		case away:
			ng = provider.NextGame{OpponentAbbrev: home, Date: date, IsHome: false, EventID: row.EventID}
		default:
			continue
		}
		if best == nil || ng.Date.Before(best.Date) {
			best = &ng
		}
	}
	if best == nil {
		return provider.NextGame{}, errs.New(errs.KindNotFound, "courtbasic: no upcoming game for %s within window", team)
	}
	return *best, nil
}

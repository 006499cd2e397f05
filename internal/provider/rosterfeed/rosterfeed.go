package rosterfeed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/provider"
)

type teamRaw struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
}

type playerRaw struct {
	ID        int      `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Team      *teamRaw `json:"team"`
}

// SearchPlayer resolves a name via the feed's search endpoint, re-ranking
// results locally so all providers share one matching discipline.
func (c *Client) SearchPlayer(ctx context.Context, name string) (provider.Identity, error) {
	params := url.Values{
		"search":   {name},
		"per_page": {"100"},
	}
	players, err := getAll[playerRaw](ctx, c, "/players", params)
	if err != nil {
		return provider.Identity{}, err
	}
	if len(players) == 0 {
		return provider.Identity{}, errs.New(errs.KindNotFound, "rosterfeed: no players match %q", name)
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.FirstName + " " + p.LastName
	}
	idx, ok := provider.BestMatch(name, names)
	if !ok {
		return provider.Identity{}, errs.New(errs.KindNotFound, "rosterfeed: no players match %q", name)
	}

	p := players[idx]
	team := ""
	if p.Team != nil {
		team = normalize.TeamAlias(p.Team.Abbreviation)
	}
	return provider.Identity{
		Provider:      c.Name(),
		ProviderID:    strconv.Itoa(p.ID),
		CanonicalName: normalize.Name(names[idx]),
		TeamAbbrev:    team,
	}, nil
}

type statRaw struct {
	Minutes    string  `json:"min"`
	Points     float64 `json:"pts"`
	Rebounds   float64 `json:"reb"`
	Assists    float64 `json:"ast"`
	Steals     float64 `json:"stl"`
	Blocks     float64 `json:"blk"`
	ThreesMade float64 `json:"fg3m"`
	FGMade     float64 `json:"fgm"`
	FGAttempt  float64 `json:"fga"`
	FTMade     float64 `json:"ftm"`
	FTAttempt  float64 `json:"fta"`
	Turnovers  float64 `json:"turnover"`
	Team       teamRaw `json:"team"`
	Game       struct {
		ID          int    `json:"id"`
		Date        string `json:"date"`
		Season      int    `json:"season"`
		HomeTeam    string `json:"home_team_abbreviation"`
		VisitorTeam string `json:"visitor_team_abbreviation"`
	} `json:"game"`
}

// GameLog fetches per-game stat rows for a player id, newest first, with
// dense 1-based sequences after any previous-season append.
func (c *Client) GameLog(ctx context.Context, playerID string, opts provider.GameLogOptions) ([]provider.Game, error) {
	now := c.now()

	games, err := c.fetchSeason(ctx, playerID, provider.SeasonStartYear(now), opts.CurrentSeasonGames)
	if err != nil {
		return nil, err
	}
	if opts.IncludePreviousSeason {
		prev, err := c.fetchSeason(ctx, playerID, provider.SeasonStartYear(now)-1, opts.PreviousSeasonGames)
		if err != nil && !errs.Is(err, errs.KindNotFound) {
			return nil, err
		}
		games = append(games, prev...)
	}
	return provider.Renumber(games), nil
}

func (c *Client) fetchSeason(ctx context.Context, playerID string, seasonYear, limit int) ([]provider.Game, error) {
	params := url.Values{
		"player_ids[]": {playerID},
		"seasons[]":    {strconv.Itoa(seasonYear)},
		"per_page":     {"100"},
	}
	rows, err := getAll[statRaw](ctx, c, "/stats", params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.KindNotFound, "rosterfeed: no games for player %s season %d", playerID, seasonYear)
	}

	season := fmt.Sprintf("%d-%02d", seasonYear, (seasonYear+1)%100)
	games := make([]provider.Game, 0, len(rows))
	for _, r := range rows {
		g, ok := canonicalizeStatRow(r, season)
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

// canonicalizeStatRow maps one feed row onto the canonical Game. The feed
// reports the game's two sides by abbreviation; the player's own team
// decides opponent and home flag.
func canonicalizeStatRow(r statRaw, season string) (provider.Game, bool) {
	date, err := time.Parse("2006-01-02", firstN(r.Game.Date, 10))
	if err != nil {
		return provider.Game{}, false
	}
	own := normalize.TeamAlias(r.Team.Abbreviation)
	home := normalize.TeamAlias(r.Game.HomeTeam)
	away := normalize.TeamAlias(r.Game.VisitorTeam)

	var opponent string
	var isHome bool
	switch own {
	case home:
		opponent, isHome = away, true
	case away:
		opponent, isHome = home, false
	default:
		return provider.Game{}, false
	}

	return provider.Game{
		Date:           date,
		OpponentAbbrev: opponent,
		IsHome:         isHome,
		Minutes:        parseMinutes(r.Minutes),
		Points:         nonNegative(r.Points),
		Rebounds:       nonNegative(r.Rebounds),
		Assists:        nonNegative(r.Assists),
		Steals:         nonNegative(r.Steals),
		Blocks:         nonNegative(r.Blocks),
		ThreesMade:     nonNegative(r.ThreesMade),
		FGMade:         nonNegative(r.FGMade),
		FGAttempted:    nonNegative(r.FGAttempt),
		FTMade:         nonNegative(r.FTMade),
		FTAttempted:    nonNegative(r.FTAttempt),
		Turnovers:      nonNegative(r.Turnovers),
		Season:         season,
	}, true
}

type gameRaw struct {
	ID          int     `json:"id"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
	HomeTeam    teamRaw `json:"home_team"`
	VisitorTeam teamRaw `json:"visitor_team"`
}

// NextGame scans a 14-day fixture window for the first game featuring the
// team. The window is a hard bound, never an unbounded scan.
func (c *Client) NextGame(ctx context.Context, teamAbbrev string) (provider.NextGame, error) {
	team := normalize.TeamAlias(teamAbbrev)
	now := c.now()
	params := url.Values{
		"start_date": {now.Format("2006-01-02")},
		"end_date":   {now.AddDate(0, 0, 14).Format("2006-01-02")},
		"per_page":   {"100"},
	}
	rows, err := getAll[gameRaw](ctx, c, "/games", params)
	if err != nil {
		return provider.NextGame{}, err
	}

	var best *provider.NextGame
	for _, r := range rows {
		date, err := time.Parse("2006-01-02", firstN(r.Date, 10))
		if err != nil {
			continue
		}
		home := normalize.TeamAlias(r.HomeTeam.Abbreviation)
		away := normalize.TeamAlias(r.VisitorTeam.Abbreviation)

		var ng provider.NextGame
		switch team {
		case home:
			ng = provider.NextGame{OpponentAbbrev: away, Date: date, IsHome: true, EventID: strconv.Itoa(r.ID)}
		case away:
			ng = provider.NextGame{OpponentAbbrev: home, Date: date, IsHome: false, EventID: strconv.Itoa(r.ID)}
		default:
			continue
		}
		if best == nil || ng.Date.Before(best.Date) {
			best = &ng
		}
	}
	if best == nil {
		return provider.NextGame{}, errs.New(errs.KindNotFound, "rosterfeed: no upcoming game for %s within window", team)
	}
	return *best, nil
}

func parseMinutes(s string) float64 {
	if s == "" {
		return 0
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		mins, err1 := strconv.ParseFloat(s[:i], 64)
		secs, err2 := strconv.ParseFloat(s[i+1:], 64)
		if err1 == nil && err2 == nil {
			return mins + secs/60.0
		}
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 {
		return v
	}
	return 0
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

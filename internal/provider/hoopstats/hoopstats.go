package hoopstats

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/normalize"
	"github.com/courtside/propcore/internal/provider"
)

// SearchPlayer resolves a free-form name against the league player index.
func (c *Client) SearchPlayer(ctx context.Context, name string) (provider.Identity, error) {
	params := url.Values{"Season": {provider.SeasonLabel(c.now())}}
	resp, err := c.get(ctx, "/playerindex", params)
	if err != nil {
		return provider.Identity{}, err
	}

	rs, ok := resp.set("PlayerIndex")
	if !ok {
		return provider.Identity{}, errs.New(errs.KindInvalidInput, "hoopstats: player index result set missing")
	}
	idCol := rs.column("PERSON_ID")
	nameCol := rs.column("DISPLAY_FIRST_LAST")
	teamCol := rs.column("TEAM_ABBREVIATION")
	if idCol < 0 || nameCol < 0 {
		return provider.Identity{}, errs.New(errs.KindInvalidInput, "hoopstats: player index headers missing")
	}

	names := make([]string, len(rs.RowSet))
	for i, row := range rs.RowSet {
		names[i] = cellString(row, nameCol)
	}
	idx, ok := provider.BestMatch(name, names)
	if !ok {
		return provider.Identity{}, errs.New(errs.KindNotFound, "hoopstats: no player matches %q", name)
	}

	row := rs.RowSet[idx]
	return provider.Identity{
		Provider:      c.Name(),
		ProviderID:    cellString(row, idCol),
		CanonicalName: normalize.Name(names[idx]),
		TeamAbbrev:    normalize.TeamAlias(cellString(row, teamCol)),
	}, nil
}

// GameLog fetches the player's game log, optionally appending the previous
// season, and renumbers sequences densely (most recent = 1).
func (c *Client) GameLog(ctx context.Context, playerID string, opts provider.GameLogOptions) ([]provider.Game, error) {
	now := c.now()

	games, err := c.fetchSeason(ctx, playerID, provider.SeasonLabel(now), opts.CurrentSeasonGames)
	if err != nil {
		return nil, err
	}

	if opts.IncludePreviousSeason {
		prev, err := c.fetchSeason(ctx, playerID, provider.PreviousSeasonLabel(now), opts.PreviousSeasonGames)
		if err != nil {
			// The previous season is supplementary: a player who just
			// entered the league legitimately has none.
			if !errs.Is(err, errs.KindNotFound) {
				return nil, err
			}
		} else {
			games = append(games, prev...)
		}
	}

	return provider.Renumber(games), nil
}

func (c *Client) fetchSeason(ctx context.Context, playerID, season string, limit int) ([]provider.Game, error) {
	params := url.Values{
		"PlayerID": {playerID},
		"Season":   {season},
	}
	resp, err := c.get(ctx, "/playergamelog", params)
	if err != nil {
		return nil, err
	}

	rs, ok := resp.set("PlayerGameLog")
	if !ok || len(rs.RowSet) == 0 {
		return nil, errs.New(errs.KindNotFound, "hoopstats: no games for player %s season %s", playerID, season)
	}

	cols := gameLogColumns{
		date:     rs.column("GAME_DATE"),
		matchup:  rs.column("MATCHUP"),
		minutes:  rs.column("MIN"),
		points:   rs.column("PTS"),
		rebounds: rs.column("REB"),
		assists:  rs.column("AST"),
		steals:   rs.column("STL"),
		blocks:   rs.column("BLK"),
		threes:   rs.column("FG3M"),
		fgm:      rs.column("FGM"),
		fga:      rs.column("FGA"),
		ftm:      rs.column("FTM"),
		fta:      rs.column("FTA"),
		tov:      rs.column("TOV"),
	}

	games := make([]provider.Game, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		g, ok := parseGameRow(row, cols, season)
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

// NextGame scans the 14-day schedule window for the first fixture
// featuring the team.
func (c *Client) NextGame(ctx context.Context, teamAbbrev string) (provider.NextGame, error) {
	team := normalize.TeamAlias(teamAbbrev)
	now := c.now()
	params := url.Values{
		"DateFrom": {now.Format("01/02/2006")},
		"DateTo":   {now.AddDate(0, 0, 14).Format("01/02/2006")},
	}
	resp, err := c.get(ctx, "/schedule", params)
	if err != nil {
		return provider.NextGame{}, err
	}

	rs, ok := resp.set("Schedule")
	if !ok {
		return provider.NextGame{}, errs.New(errs.KindInvalidInput, "hoopstats: schedule result set missing")
	}
	dateCol := rs.column("GAME_DATE")
	homeCol := rs.column("HOME_TEAM_ABBREVIATION")
	awayCol := rs.column("VISITOR_TEAM_ABBREVIATION")
	idCol := rs.column("GAME_ID")

	type fixture struct {
		game provider.NextGame
	}
	var fixtures []fixture
	for _, row := range rs.RowSet {
		date, ok := parseGameDate(cellString(row, dateCol))
		if !ok {
			continue
		}
		home := normalize.TeamAlias(cellString(row, homeCol))
		away := normalize.TeamAlias(cellString(row, awayCol))
		switch team {
		case home:
			fixtures = append(fixtures, fixture{provider.NextGame{
				OpponentAbbrev: away, Date: date, IsHome: true, EventID: cellString(row, idCol),
			}})
		case away:
			fixtures = append(fixtures, fixture{provider.NextGame{
				OpponentAbbrev: home, Date: date, IsHome: false, EventID: cellString(row, idCol),
			}})
		}
	}
	if len(fixtures) == 0 {
		return provider.NextGame{}, errs.New(errs.KindNotFound, "hoopstats: no upcoming game for %s within window", team)
	}
	best := fixtures[0]
	for _, f := range fixtures[1:] {
		if f.game.Date.Before(best.game.Date) {
			best = f
		}
	}
	return best.game, nil
}

type gameLogColumns struct {
	date, matchup, minutes    int
	points, rebounds, assists int
	steals, blocks, threes    int
	fgm, fga, ftm, fta, tov   int
}

// parseGameRow canonicalizes one tabular row. Rows with unparseable dates
// or matchups are skipped rather than failing the whole log.
func parseGameRow(row []json.RawMessage, cols gameLogColumns, season string) (provider.Game, bool) {
	date, ok := parseGameDate(cellString(row, cols.date))
	if !ok {
		return provider.Game{}, false
	}
	opponent, isHome, ok := parseMatchup(cellString(row, cols.matchup))
	if !ok {
		return provider.Game{}, false
	}
	return provider.Game{
		Date:           date,
		OpponentAbbrev: opponent,
		IsHome:         isHome,
		Minutes:        parseMinutes(row, cols.minutes),
		Points:         cellFloat(row, cols.points),
		Rebounds:       cellFloat(row, cols.rebounds),
		Assists:        cellFloat(row, cols.assists),
		Steals:         cellFloat(row, cols.steals),
		Blocks:         cellFloat(row, cols.blocks),
		ThreesMade:     cellFloat(row, cols.threes),
		FGMade:         cellFloat(row, cols.fgm),
		FGAttempted:    cellFloat(row, cols.fga),
		FTMade:         cellFloat(row, cols.ftm),
		FTAttempted:    cellFloat(row, cols.fta),
		Turnovers:      cellFloat(row, cols.tov),
		Season:         season,
	}, true
}

// parseMatchup decodes "DAL vs. OKC" (home) or "DAL @ OKC" (away) into the
// opponent abbreviation and home flag.
func parseMatchup(matchup string) (opponent string, isHome, ok bool) {
	if i := strings.Index(matchup, " vs. "); i >= 0 {
		return normalize.TeamAlias(matchup[i+5:]), true, true
	}
	if i := strings.Index(matchup, " @ "); i >= 0 {
		return normalize.TeamAlias(matchup[i+3:]), false, true
	}
	return "", false, false
}

var gameDateLayouts = []string{
	"Jan 2, 2006",
	"JAN 2, 2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseGameDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range gameDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseMinutes accepts "34:12", bare numbers, and numeric strings.
func parseMinutes(row []json.RawMessage, idx int) float64 {
	s := cellString(row, idx)
	if i := strings.Index(s, ":"); i >= 0 {
		mins, err1 := strconv.ParseFloat(s[:i], 64)
		secs, err2 := strconv.ParseFloat(s[i+1:], 64)
		if err1 == nil && err2 == nil {
			return mins + secs/60.0
		}
		return 0
	}
	return cellFloat(row, idx)
}

// cellString decodes a raw tabular cell into a string, tolerating numbers.
func cellString(row []json.RawMessage, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	var s string
	if err := json.Unmarshal(row[idx], &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(row[idx], &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// cellFloat decodes a raw tabular cell into a float, tolerating numeric
// strings and nulls. Missing or malformed cells read as 0, never negative.
func cellFloat(row []json.RawMessage, idx int) float64 {
	if idx < 0 || idx >= len(row) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(row[idx], &f); err == nil {
		if f < 0 {
			return 0
		}
		return f
	}
	var s string
	if err := json.Unmarshal(row[idx], &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && v >= 0 {
			return v
		}
	}
	return 0
}

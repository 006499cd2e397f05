package odds

import (
	"testing"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/provider"
)

func overUnder(player string, line, overPrice, underPrice float64) []Outcome {
	return []Outcome{
		{Name: "Over", Description: player, Point: line, Price: overPrice},
		{Name: "Under", Description: player, Point: line, Price: underPrice},
	}
}

func singleBook(key string, markets ...Market) Payload {
	return Payload{
		HomeTeam:   "Dallas Mavericks",
		AwayTeam:   "Boston Celtics",
		Bookmakers: []Bookmaker{{Key: key, Title: key, Markets: markets}},
	}
}

func TestBestLineBasic(t *testing.T) {
	payload := singleBook("fanduel", Market{
		Key:      "player_points",
		Outcomes: overUnder("Luka Dončić", 28.5, -110, -110),
	})

	line, ok := BestLine(payload, "luka doncic", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected a line")
	}
	if line.Line != 28.5 || line.Bookmaker != "fanduel" {
		t.Errorf("line = %+v", line)
	}
	if line.OverOdds != -110 || line.UnderOdds != -110 {
		t.Errorf("odds = %v/%v", line.OverOdds, line.UnderOdds)
	}
}

func TestBestLinePrefersRankedBookmaker(t *testing.T) {
	// Unranked book appears first in the payload with a different line;
	// the rank-1 book must still win.
	payload := Payload{
		Bookmakers: []Bookmaker{
			{Key: "oddfellows", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Luka Doncic", 24.5, -105, -115)}}},
			{Key: "pinnacle", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Luka Doncic", 25.5, -110, -110)}}},
		},
	}

	line, ok := BestLine(payload, "Luka Doncic", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected a line")
	}
	if line.Bookmaker != "pinnacle" || line.Line != 25.5 {
		t.Errorf("best = %+v, want pinnacle 25.5", line)
	}
}

func TestBestLineUnrankedKeepPayloadOrder(t *testing.T) {
	payload := Payload{
		Bookmakers: []Bookmaker{
			{Key: "first_unranked", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Luka Doncic", 24.5, -110, -110)}}},
			{Key: "second_unranked", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Luka Doncic", 26.5, -110, -110)}}},
		},
	}
	line, _ := BestLine(payload, "Luka Doncic", provider.PropPoints, DefaultConfig())
	if line.Bookmaker != "first_unranked" {
		t.Errorf("ties among unranked books break by payload order, got %s", line.Bookmaker)
	}
}

func TestCombinedPropMarketMatching(t *testing.T) {
	payload := singleBook("fanduel",
		Market{Key: "player_points", Outcomes: overUnder("Luka Doncic", 28.5, -110, -110)},
		Market{Key: "player_points_rebounds", Outcomes: overUnder("Luka Doncic", 38.5, -115, -105)},
	)

	// Combined request must not match the single-prop market.
	line, ok := BestLine(payload, "Luka Doncic", provider.PropPointsRebounds, DefaultConfig())
	if !ok {
		t.Fatal("expected combined line")
	}
	if line.Line != 38.5 {
		t.Errorf("combined line = %v, want 38.5", line.Line)
	}

	// And the single request must not match the combined market.
	single, ok := BestLine(payload, "Luka Doncic", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected points line")
	}
	if single.Line != 28.5 {
		t.Errorf("points line = %v, want 28.5", single.Line)
	}
}

func TestComponentLineAboveCombinedRejected(t *testing.T) {
	// Rebounds 12.5 vs points+rebounds 11.5 for the same bookmaker:
	// the component quote is implausible and must drop.
	payload := singleBook("draftkings",
		Market{Key: "player_rebounds", Outcomes: overUnder("Anthony Davis", 12.5, -110, -110)},
		Market{Key: "player_points_rebounds", Outcomes: overUnder("Anthony Davis", 11.5, -110, -110)},
	)

	if _, ok := BestLine(payload, "Anthony Davis", provider.PropRebounds, DefaultConfig()); ok {
		t.Error("rebounds line >= combined line should be rejected")
	}

	// The combined line itself remains selectable.
	if _, ok := BestLine(payload, "Anthony Davis", provider.PropPointsRebounds, DefaultConfig()); !ok {
		t.Error("combined line should still resolve")
	}
}

func TestOutOfRangeLineDiscarded(t *testing.T) {
	payload := singleBook("fanduel", Market{
		Key:      "player_assists",
		Outcomes: overUnder("Chris Paul", 35.5, -110, -110), // outside 0-20
	})
	if _, ok := BestLine(payload, "Chris Paul", provider.PropAssists, DefaultConfig()); ok {
		t.Error("implausible assists line should be discarded")
	}
}

func TestNameMatchingLadder(t *testing.T) {
	cfg := DefaultConfig()
	payload := singleBook("fanduel", Market{
		Key:      "player_points",
		Outcomes: overUnder("Jaren Jackson Jr.", 20.5, -110, -110),
	})

	// First+last token containment.
	if _, ok := BestLine(payload, "Jaren Jackson", provider.PropPoints, cfg); !ok {
		t.Error("first+last token match should succeed")
	}
	// Single token alone must not match a multi-token name.
	if _, ok := BestLine(payload, "Jackson Smith", provider.PropPoints, cfg); ok {
		t.Error("partial single-token overlap must not match")
	}
}

func TestLowPointsLineSubstitution(t *testing.T) {
	payload := Payload{
		Bookmakers: []Bookmaker{
			{Key: "pinnacle", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Role Player", 3.5, -110, -110)}}},
			{Key: "fanduel", Markets: []Market{{Key: "player_points", Outcomes: overUnder("Role Player", 12.5, -110, -110)}}},
		},
	}

	line, ok := BestLine(payload, "Role Player", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected a line")
	}
	if line.Line != 12.5 || !line.Substituted {
		t.Errorf("line = %+v, want flagged substitution to 12.5", line)
	}
}

func TestLowPointsLineNoAlternativeKeptUnflagged(t *testing.T) {
	payload := singleBook("pinnacle", Market{
		Key:      "player_points",
		Outcomes: overUnder("Deep Bench", 3.5, -110, -110),
	})

	line, ok := BestLine(payload, "Deep Bench", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected a line")
	}
	if line.Line != 3.5 || line.Substituted {
		t.Errorf("line = %+v, want original unflagged", line)
	}
}

func TestDuplicateBookmakerLineDeduped(t *testing.T) {
	payload := singleBook("fanduel",
		Market{Key: "player_points", Outcomes: overUnder("Luka Doncic", 28.5, -110, -110)},
		Market{Key: "player_points", Outcomes: overUnder("Luka Doncic", 28.5, -112, -108)},
	)
	line, ok := BestLine(payload, "Luka Doncic", provider.PropPoints, DefaultConfig())
	if !ok {
		t.Fatal("expected a line")
	}
	// First occurrence wins.
	if line.OverOdds != -110 {
		t.Errorf("dedupe should keep the first (bookmaker, line) pair, got %+v", line)
	}
}

func TestBestLineNoMatchReturnsNone(t *testing.T) {
	payload := singleBook("fanduel", Market{
		Key:      "player_points",
		Outcomes: overUnder("Someone Else", 22.5, -110, -110),
	})
	if _, ok := BestLine(payload, "Luka Doncic", provider.PropPoints, DefaultConfig()); ok {
		t.Error("no outcome for the player should yield none, not an error")
	}
}

func TestParsePayload(t *testing.T) {
	raw := []byte(`{"home_team":"A","away_team":"B","bookmakers":[{"key":"fanduel","markets":[{"key":"player_points","outcomes":[{"name":"Over","description":"P","point":10.5,"price":-110}]}]}]}`)
	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Bookmakers) != 1 || p.Bookmakers[0].Markets[0].Outcomes[0].Point != 10.5 {
		t.Errorf("payload = %+v", p)
	}

	_, err = ParsePayload([]byte(`{nope`))
	if !errs.Is(err, errs.KindInvalidInput) {
		t.Errorf("kind = %v, want invalid_input", errs.KindOf(err))
	}
}

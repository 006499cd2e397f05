package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/forecast"
	"github.com/courtside/propcore/internal/provider"
)

func sampleForecast() forecast.Forecast {
	return forecast.Forecast{
		PredictedValue: 27.4,
		Confidence:     72,
		ErrorMargin:    4.1,
		PropType:       provider.PropPoints,
		Method:         forecast.MethodWeighted,
		GamesUsed:      12,
	}
}

func sampleLog() provider.GameLog {
	return provider.GameLog{Games: []provider.Game{
		{Date: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), Points: 31},
		{Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), Points: 24},
		{Date: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), Points: 27},
	}}
}

func openTemp(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l
}

func TestRecordAndGet(t *testing.T) {
	l := openTemp(t)

	game := &provider.NextGame{Date: time.Date(2026, 1, 14, 0, 30, 0, 0, time.UTC), OpponentAbbrev: "BOS"}
	entry, err := l.Record("Jayson Tatum", sampleForecast(), sampleLog(), game)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if entry.GameLogFingerprint == "" {
		t.Fatal("expected fingerprint")
	}
	if entry.Evaluated() {
		t.Fatal("new entry must not be evaluated")
	}

	got, err := l.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PlayerName != "Jayson Tatum" || got.Forecast.PredictedValue != 27.4 {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestAttachOutcomeOnce(t *testing.T) {
	l := openTemp(t)
	entry, err := l.Record("Luka Doncic", sampleForecast(), sampleLog(), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	updated, err := l.AttachOutcome(entry.ID, 33)
	if err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}
	if updated.ActualValue == nil || *updated.ActualValue != 33 {
		t.Fatalf("actual value not stored: %+v", updated)
	}
	if updated.EvaluatedAt == nil {
		t.Fatal("evaluated timestamp not stored")
	}

	if _, err := l.AttachOutcome(entry.ID, 35); errs.KindOf(err) != errs.KindAlreadyEvaluated {
		t.Fatalf("second AttachOutcome: want KindAlreadyEvaluated, got %v", err)
	}
	// First outcome is immutable.
	got, _ := l.Get(entry.ID)
	if *got.ActualValue != 33 {
		t.Fatalf("outcome mutated by rejected second call: %v", *got.ActualValue)
	}
}

func TestAttachOutcomeUnknownID(t *testing.T) {
	l := openTemp(t)
	if _, err := l.AttachOutcome("nope", 10); errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("want KindNotFound, got %v", err)
	}
}

func TestPendingEligibility(t *testing.T) {
	now := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	l := openTemp(t).WithClock(func() time.Time { return now })

	old := &provider.NextGame{Date: now.Add(-48 * time.Hour), OpponentAbbrev: "MIA"}
	recent := &provider.NextGame{Date: now.Add(-2 * time.Hour), OpponentAbbrev: "NYK"}

	eligible, err := l.Record("Old Game", sampleForecast(), sampleLog(), old)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := l.Record("Recent Game", sampleForecast(), sampleLog(), recent); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := l.Record("No Game", sampleForecast(), sampleLog(), nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	done, err := l.Record("Done", sampleForecast(), sampleLog(), old)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := l.AttachOutcome(done.ID, 21); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	pending := l.Pending()
	if len(pending) != 1 {
		t.Fatalf("want 1 pending entry, got %d", len(pending))
	}
	if pending[0].ID != eligible.ID {
		t.Fatalf("wrong pending entry: %s", pending[0].PlayerName)
	}
}

func TestReloadReplaysLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entry, err := l.Record("Nikola Jokic", sampleForecast(), sampleLog(), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := l.AttachOutcome(entry.ID, 29); err != nil {
		t.Fatalf("AttachOutcome: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reloaded.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.ActualValue == nil || *got.ActualValue != 29 {
		t.Fatalf("outcome lost across reload: %+v", got)
	}
	if len(reloaded.All()) != 1 {
		t.Fatalf("replay must dedupe snapshots, got %d entries", len(reloaded.All()))
	}
}

func TestReloadSkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := l.Record("Intact", sampleForecast(), sampleLog(), nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString(`{"id":"torn","player_na`); err != nil {
		t.Fatalf("write torn line: %v", err)
	}
	f.Close()

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen with torn line: %v", err)
	}
	if len(reloaded.All()) != 1 {
		t.Fatalf("want 1 entry after torn-line reload, got %d", len(reloaded.All()))
	}
}

func TestFingerprintTracksLogContents(t *testing.T) {
	log := sampleLog()
	a := Fingerprint(log, provider.PropPoints)
	b := Fingerprint(log, provider.PropPoints)
	if a != b {
		t.Fatal("fingerprint must be deterministic")
	}

	changed := sampleLog()
	changed.Games[1].Points = 25
	if Fingerprint(changed, provider.PropPoints) == a {
		t.Fatal("fingerprint must change when a game value changes")
	}

	reordered := sampleLog()
	reordered.Games[0], reordered.Games[1] = reordered.Games[1], reordered.Games[0]
	if Fingerprint(reordered, provider.PropPoints) == a {
		t.Fatal("fingerprint must be order sensitive")
	}

	if Fingerprint(log, provider.PropAssists) == a {
		t.Fatal("fingerprint must depend on the prop type")
	}
}

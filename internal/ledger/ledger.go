// Package ledger persists every forecast as an append-only record for
// later outcome evaluation. Storage is a flat JSON-lines log: each mutation
// appends a full entry snapshot and load replays the log, last write wins.
// Entries are never deleted.
package ledger

import (
	"bufio"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/forecast"
	"github.com/courtside/propcore/internal/provider"
)

// evaluationDelay is how long after tip-off an entry becomes eligible for
// outcome evaluation, leaving time for upstream box scores to settle.
const evaluationDelay = 24 * time.Hour

// Entry is one recorded forecast and, once evaluated, its actual outcome.
type Entry struct {
	ID                 string             `json:"id"`
	PlayerName         string             `json:"player_name"`
	Forecast           forecast.Forecast  `json:"forecast"`
	GameLogFingerprint string             `json:"game_log_fingerprint"`
	NextGame           *provider.NextGame `json:"next_game,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	ActualValue        *float64           `json:"actual_value,omitempty"`
	EvaluatedAt        *time.Time         `json:"evaluated_at,omitempty"`
}

// Evaluated reports whether the entry already has an outcome attached.
func (e *Entry) Evaluated() bool { return e.EvaluatedAt != nil }

// Ledger is a concurrency-safe append-only prediction store.
type Ledger struct {
	mu      sync.Mutex
	path    string
	entries map[string]*Entry
	order   []string // insertion order for stable listings
	now     func() time.Time
}

// Open loads (or creates) a ledger at path. A missing file starts empty;
// a corrupt trailing line is skipped rather than failing the load.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// WithClock injects the time source used for stamps and eligibility.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Record appends a new entry for a forecast and returns it.
func (l *Ledger) Record(playerName string, fc forecast.Forecast, log provider.GameLog, nextGame *provider.NextGame) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		ID:                 uuid.NewString(),
		PlayerName:         playerName,
		Forecast:           fc,
		GameLogFingerprint: Fingerprint(log, fc.PropType),
		NextGame:           nextGame,
		CreatedAt:          l.now().UTC(),
	}
	if err := l.append(entry); err != nil {
		return Entry{}, err
	}
	l.entries[entry.ID] = entry
	l.order = append(l.order, entry.ID)
	return *entry, nil
}

// AttachOutcome records the actual value for an entry, exactly once. A
// second call fails with errs.KindAlreadyEvaluated.
func (l *Ledger) AttachOutcome(id string, actualValue float64) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[id]
	if !ok {
		return Entry{}, errs.New(errs.KindNotFound, "ledger entry %s not found", id)
	}
	if entry.Evaluated() {
		return Entry{}, errs.New(errs.KindAlreadyEvaluated, "ledger entry %s already evaluated", id)
	}

	updated := *entry
	now := l.now().UTC()
	updated.ActualValue = &actualValue
	updated.EvaluatedAt = &now
	if err := l.append(&updated); err != nil {
		return Entry{}, err
	}
	*entry = updated
	return updated, nil
}

// Get returns an entry by id.
func (l *Ledger) Get(id string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		return Entry{}, errs.New(errs.KindNotFound, "ledger entry %s not found", id)
	}
	return *entry, nil
}

// Pending returns entries eligible for evaluation: the recorded next game
// tipped off more than 24 hours ago and no outcome is attached yet.
func (l *Ledger) Pending() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-evaluationDelay)
	var pending []Entry
	for _, id := range l.order {
		e := l.entries[id]
		if e.Evaluated() || e.NextGame == nil {
			continue
		}
		if e.NextGame.Date.Before(cutoff) {
			pending = append(pending, *e)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending
}

// All returns every entry in insertion order.
func (l *Ledger) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.entries[id])
	}
	return out
}

// Fingerprint is an order-preserving hash of the (date, value) pairs in a
// game log for the given prop. Two forecasts built from an identical log
// share a fingerprint, so cached forecasts invalidate when the log changes.
func Fingerprint(log provider.GameLog, prop provider.PropType) string {
	h := md5.New()
	for _, g := range log.Games {
		fmt.Fprintf(h, "%s:%g|", g.Date.Format("2006-01-02"), prop.Value(g))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (l *Ledger) append(entry *Entry) error {
	if l.path == "" {
		return nil // in-memory mode for tests
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (l *Ledger) load() error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// A torn final line from a crash mid-append is expected;
			// everything before it replays cleanly.
			continue
		}
		if _, seen := l.entries[entry.ID]; !seen {
			l.order = append(l.order, entry.ID)
		}
		e := entry
		l.entries[entry.ID] = &e
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	return nil
}

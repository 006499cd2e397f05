package provider

import (
	"fmt"
	"time"
)

// SeasonLabel returns the NBA season label for a point in time. The season
// spans October (inclusive) through September: any date before October 1 of
// year Y belongs to the season that started the previous fall.
func SeasonLabel(t time.Time) string {
	y := t.Year()
	if t.Month() < time.October {
		return fmt.Sprintf("%d-%02d", y-1, y%100)
	}
	return fmt.Sprintf("%d-%02d", y, (y+1)%100)
}

// PreviousSeasonLabel returns the label of the season before the one
// containing t.
func PreviousSeasonLabel(t time.Time) string {
	return SeasonLabel(t.AddDate(-1, 0, 0))
}

// SeasonStartYear returns the first calendar year of the season label for
// t, e.g. 2025 for "2025-26". Providers that key seasons by start year
// (rather than label) query with this.
func SeasonStartYear(t time.Time) int {
	if t.Month() < time.October {
		return t.Year() - 1
	}
	return t.Year()
}

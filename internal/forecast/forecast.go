// Package forecast derives statistical point estimates for player props
// from a normalized game log. Both methods are deterministic given
// identical inputs: no wall-clock reads, no randomness.
package forecast

import (
	"math"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/provider"
)

// Method names recorded on every forecast for auditability.
const (
	MethodWeighted  = "weighted_average"
	MethodNumeric   = "numeric_model"
	MethodInjuryOut = "injury_out"
)

// decay is the exponential recency constant: weight_i = exp(-decay*age_i).
const decay = 0.1

// MinGames is the precondition for any forecast.
const MinGames = 3

// Blend weights for the final point estimate.
const (
	weightedShare = 0.5
	recentShare   = 0.3
	overallShare  = 0.2
)

// Diagnostics carries the intermediate aggregates behind a forecast, for
// explanation downstream and for the ledger. The core emits numbers only;
// phrasing them is presentation work.
type Diagnostics struct {
	WeightedAvg float64 `json:"weighted_avg"`
	Recent3Avg  float64 `json:"recent3_avg"`
	Recent5Avg  float64 `json:"recent5_avg"`
	OverallAvg  float64 `json:"overall_avg"`
	StdDev      float64 `json:"std_dev"`
}

// Forecast is an immutable point estimate for one (player, prop) pair.
type Forecast struct {
	PredictedValue float64           `json:"predicted_value"`
	Confidence     float64           `json:"confidence"` // 0..100
	ErrorMargin    float64           `json:"error_margin"`
	PropType       provider.PropType `json:"prop_type"`
	Method         string            `json:"method"`
	GamesUsed      int               `json:"games_used"`
	Diagnostics    Diagnostics       `json:"diagnostics"`
}

// InjuryStatus values the numeric model understands.
const (
	StatusOut          = "out"
	StatusDoubtful     = "doubtful"
	StatusQuestionable = "questionable"
	StatusProbable     = "probable"
)

// Context is the richer input for the numeric-model method.
type Context struct {
	RecentAvg        float64 `json:"recent_avg"`
	SeasonAvg        float64 `json:"season_avg"`
	UsageRate        float64 `json:"usage_rate"`       // share of team possessions, 0..1
	ExpectedMinutes  float64 `json:"expected_minutes"` // projected for the next game
	InjuryStatus     string  `json:"injury_status"`
	OpponentOutCount int     `json:"opponent_out_count"` // notable opponent players ruled out
}

// Weighted computes the default exponential-recency forecast. Requires at
// least MinGames games or fails with errs.KindInsufficientData.
func Weighted(log provider.GameLog, prop provider.PropType) (Forecast, error) {
	values := chronologicalValues(log, prop)
	if len(values) < MinGames {
		return Forecast{}, errs.New(errs.KindInsufficientData,
			"forecast needs %d games, have %d", MinGames, len(values))
	}

	n := len(values)

	// Exponential recency weights, age 0 = most recent game.
	weights := make([]float64, n)
	var weightSum float64
	for i := range values {
		age := float64(n - 1 - i)
		weights[i] = math.Exp(-decay * age)
		weightSum += weights[i]
	}
	var weightedAvg float64
	for i, v := range values {
		weightedAvg += v * weights[i] / weightSum
	}

	recentAvg := mean(values[n-3:])
	recent5 := recentAvg
	if n >= 5 {
		recent5 = mean(values[n-5:])
	}
	overallAvg := mean(values)
	stdDev := stddev(values)

	predicted := weightedShare*weightedAvg + recentShare*recentAvg + overallShare*overallAvg
	if predicted < 0 {
		predicted = 0
	}

	consistency := 1 - math.Min(1, stddev(values[n-3:])/math.Max(recentAvg, 1))
	normalizedStdDev := math.Min(1, stdDev/math.Max(overallAvg, 1))
	confidence := clamp(40*math.Min(1, float64(n)/10)+40*consistency+20*(1-normalizedStdDev), 0, 100)

	return Forecast{
		PredictedValue: predicted,
		Confidence:     confidence,
		ErrorMargin:    stdDev,
		PropType:       prop,
		Method:         MethodWeighted,
		GamesUsed:      n,
		Diagnostics: Diagnostics{
			WeightedAvg: weightedAvg,
			Recent3Avg:  recentAvg,
			Recent5Avg:  recent5,
			OverallAvg:  overallAvg,
			StdDev:      stdDev,
		},
	}, nil
}

// WithContext computes the numeric-model forecast. A player ruled out
// short-circuits to exactly zero with no numeric computation; an explicit
// rule, not a heuristic. Otherwise the weighted baseline is adjusted by
// usage, projected minutes, and injury impact factors.
func WithContext(log provider.GameLog, prop provider.PropType, ctx Context) (Forecast, error) {
	if ctx.InjuryStatus == StatusOut {
		return Forecast{
			PredictedValue: 0,
			Confidence:     95,
			ErrorMargin:    0,
			PropType:       prop,
			Method:         MethodInjuryOut,
			GamesUsed:      len(log.Games),
		}, nil
	}

	base, err := Weighted(log, prop)
	if err != nil {
		return Forecast{}, err
	}

	factor := 1.0
	confidence := base.Confidence

	// Usage above or below the 20% league baseline shifts the estimate.
	if ctx.UsageRate > 0 {
		factor *= clamp(1+(ctx.UsageRate-0.20)*0.5, 0.85, 1.15)
	}

	// Projected minutes relative to the player's observed average.
	if ctx.ExpectedMinutes > 0 {
		if avgMin := averageMinutes(log); avgMin > 0 {
			factor *= clamp(ctx.ExpectedMinutes/avgMin, 0.7, 1.2)
		}
	}

	switch ctx.InjuryStatus {
	case StatusDoubtful:
		factor *= 0.75
		confidence -= 25
	case StatusQuestionable:
		factor *= 0.9
		confidence -= 15
	case StatusProbable:
		factor *= 0.97
		confidence -= 5
	}

	// Each notable opponent absence loosens the defense a little.
	if ctx.OpponentOutCount > 0 {
		boost := 1 + 0.02*float64(ctx.OpponentOutCount)
		factor *= math.Min(boost, 1.08)
	}

	predicted := base.PredictedValue * factor
	if predicted < 0 {
		predicted = 0
	}

	out := base
	out.PredictedValue = predicted
	out.Confidence = clamp(confidence, 0, 100)
	out.Method = MethodNumeric
	return out, nil
}

// chronologicalValues extracts the prop values oldest to newest.
func chronologicalValues(log provider.GameLog, prop provider.PropType) []float64 {
	games := provider.SortChronological(log.Games)
	values := make([]float64, len(games))
	for i, g := range games {
		values[i] = prop.Value(g)
	}
	return values
}

func averageMinutes(log provider.GameLog) float64 {
	if len(log.Games) == 0 {
		return 0
	}
	var sum float64
	for _, g := range log.Games {
		sum += g.Minutes
	}
	return sum / float64(len(log.Games))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

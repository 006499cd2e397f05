package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/courtside/propcore/internal/errs"
	"github.com/courtside/propcore/internal/provider"
)

// logFromPoints builds a log whose points are values oldest→newest.
func logFromPoints(values ...float64) provider.GameLog {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	games := make([]provider.Game, len(values))
	for i, v := range values {
		games[i] = provider.Game{
			Date:    start.AddDate(0, 0, i*2),
			Points:  v,
			Minutes: 34,
			Season:  "2025-26",
		}
	}
	return provider.GameLog{Games: games}
}

// referenceWeighted recomputes the documented formula independently.
func referenceWeighted(values []float64) float64 {
	n := len(values)
	var weightSum, weighted float64
	for i, v := range values {
		w := math.Exp(-0.1 * float64(n-1-i))
		weightSum += w
		weighted += v * w
	}
	weighted /= weightSum

	var recent, overall float64
	for _, v := range values[n-3:] {
		recent += v
	}
	recent /= 3
	for _, v := range values {
		overall += v
	}
	overall /= float64(n)

	return 0.5*weighted + 0.3*recent + 0.2*overall
}

func TestWeightedMatchesDocumentedFormula(t *testing.T) {
	values := []float64{18, 22, 25, 30, 27, 19, 24, 28, 31, 23}
	f, err := Weighted(logFromPoints(values...), provider.PropPoints)
	if err != nil {
		t.Fatal(err)
	}

	want := referenceWeighted(values)
	if math.Abs(f.PredictedValue-want) > 0.05 {
		t.Errorf("PredictedValue = %.4f, reference formula gives %.4f", f.PredictedValue, want)
	}
	if f.GamesUsed != 10 || f.Method != MethodWeighted {
		t.Errorf("GamesUsed=%d Method=%s", f.GamesUsed, f.Method)
	}
	if f.Confidence < 0 || f.Confidence > 100 {
		t.Errorf("Confidence = %v out of range", f.Confidence)
	}
	if f.ErrorMargin < 0 {
		t.Errorf("ErrorMargin = %v", f.ErrorMargin)
	}
	if f.Diagnostics.Recent3Avg != (28.0+31.0+23.0)/3.0 {
		t.Errorf("Recent3Avg = %v", f.Diagnostics.Recent3Avg)
	}
}

func TestWeightedDeterministic(t *testing.T) {
	log := logFromPoints(18, 22, 25, 30, 27, 19, 24, 28, 31, 23)
	a, err := Weighted(log, provider.PropPoints)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Weighted(log, provider.PropPoints)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("identical inputs must produce bit-identical forecasts:\n%+v\n%+v", a, b)
	}
}

func TestWeightedInsufficientData(t *testing.T) {
	_, err := Weighted(logFromPoints(20, 25), provider.PropPoints)
	if !errs.Is(err, errs.KindInsufficientData) {
		t.Errorf("kind = %v, want insufficient_data", errs.KindOf(err))
	}
}

func TestWeightedFloorsAtZero(t *testing.T) {
	// All-zero log: prediction must be 0, not negative, not NaN.
	f, err := Weighted(logFromPoints(0, 0, 0, 0), provider.PropPoints)
	if err != nil {
		t.Fatal(err)
	}
	if f.PredictedValue != 0 {
		t.Errorf("PredictedValue = %v, want 0", f.PredictedValue)
	}
	if math.IsNaN(f.Confidence) {
		t.Error("Confidence is NaN for zero-valued log")
	}
}

func TestWeightedCombinedProp(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	games := []provider.Game{
		{Date: start, Points: 20, Rebounds: 10},
		{Date: start.AddDate(0, 0, 2), Points: 20, Rebounds: 10},
		{Date: start.AddDate(0, 0, 4), Points: 20, Rebounds: 10},
	}
	f, err := Weighted(provider.GameLog{Games: games}, provider.PropPointsRebounds)
	if err != nil {
		t.Fatal(err)
	}
	// Constant series: every average is exactly 30.
	if math.Abs(f.PredictedValue-30) > 1e-9 {
		t.Errorf("PredictedValue = %v, want 30", f.PredictedValue)
	}
}

func TestInjuryOutShortCircuit(t *testing.T) {
	log := logFromPoints(30, 35, 40, 28, 33)
	f, err := WithContext(log, provider.PropPoints, Context{InjuryStatus: StatusOut})
	if err != nil {
		t.Fatal(err)
	}
	if f.PredictedValue != 0 {
		t.Errorf("PredictedValue = %v, want exactly 0 regardless of log", f.PredictedValue)
	}
	if f.ErrorMargin != 0 {
		t.Errorf("ErrorMargin = %v, want 0", f.ErrorMargin)
	}
	if f.Confidence < 90 {
		t.Errorf("Confidence = %v, want high", f.Confidence)
	}
	if f.Method != MethodInjuryOut {
		t.Errorf("Method = %q", f.Method)
	}
}

func TestInjuryOutIgnoresInsufficientData(t *testing.T) {
	// The short-circuit bypasses numeric computation entirely, so even a
	// two-game log yields the documented zero forecast.
	f, err := WithContext(logFromPoints(20, 22), provider.PropPoints, Context{InjuryStatus: StatusOut})
	if err != nil {
		t.Fatal(err)
	}
	if f.PredictedValue != 0 {
		t.Errorf("PredictedValue = %v", f.PredictedValue)
	}
}

func TestNumericModelAdjustsBaseline(t *testing.T) {
	log := logFromPoints(20, 22, 24, 26, 25, 23)
	base, err := Weighted(log, provider.PropPoints)
	if err != nil {
		t.Fatal(err)
	}

	high, err := WithContext(log, provider.PropPoints, Context{UsageRate: 0.34})
	if err != nil {
		t.Fatal(err)
	}
	if high.PredictedValue <= base.PredictedValue {
		t.Errorf("high usage should raise the estimate: %v <= %v", high.PredictedValue, base.PredictedValue)
	}
	if high.Method != MethodNumeric {
		t.Errorf("Method = %q", high.Method)
	}

	hurt, err := WithContext(log, provider.PropPoints, Context{InjuryStatus: StatusQuestionable})
	if err != nil {
		t.Fatal(err)
	}
	if hurt.PredictedValue >= base.PredictedValue {
		t.Errorf("questionable status should lower the estimate: %v >= %v", hurt.PredictedValue, base.PredictedValue)
	}
	if hurt.Confidence >= base.Confidence {
		t.Errorf("questionable status should lower confidence")
	}
}

func TestNumericModelDeterministic(t *testing.T) {
	log := logFromPoints(20, 22, 24, 26, 25, 23)
	ctx := Context{UsageRate: 0.28, ExpectedMinutes: 36, InjuryStatus: StatusProbable, OpponentOutCount: 2}
	a, _ := WithContext(log, provider.PropPoints, ctx)
	b, _ := WithContext(log, provider.PropPoints, ctx)
	if a != b {
		t.Errorf("numeric model must be deterministic:\n%+v\n%+v", a, b)
	}
}
